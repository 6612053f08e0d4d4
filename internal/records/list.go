package records

import "strings"

// ListSeparator joins list-valued fields for tabular storage. Values that contain
// the separator themselves cannot be recovered exactly by SplitList.
const ListSeparator = "; "

func JoinList(items []string) string {
	return strings.Join(items, ListSeparator)
}

// SplitList reverses JoinList. Blank input yields nil.
func SplitList(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return strings.Split(s, ListSeparator)
}
