package pipeline

// State is a step of one pipeline run.
type State int

const (
	StateConfigValidating State = iota
	StateProbing
	StateUsingLocal
	StateUsingHosted
	StateCollecting
	StateEnriching
	StateReporting
	StateDone
	StateHalted
)

func (s State) String() string {
	switch s {
	case StateConfigValidating:
		return "config_validating"
	case StateProbing:
		return "probing"
	case StateUsingLocal:
		return "using_local"
	case StateUsingHosted:
		return "using_hosted"
	case StateCollecting:
		return "collecting"
	case StateEnriching:
		return "enriching"
	case StateReporting:
		return "reporting"
	case StateDone:
		return "done"
	case StateHalted:
		return "halted"
	default:
		return "unknown"
	}
}
