package enrich

// State is the lifecycle of one record inside a run.
type State int

const (
	StatePending State = iota
	StateCalling
	StateParsed
	StateParseFailed
	StateMerged
	StatePersisted
)

func (s State) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateCalling:
		return "calling"
	case StateParsed:
		return "parsed"
	case StateParseFailed:
		return "parse_failed"
	case StateMerged:
		return "merged"
	case StatePersisted:
		return "persisted"
	default:
		return "unknown"
	}
}
