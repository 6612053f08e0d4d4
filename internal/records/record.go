package records

import "strings"

// Record is one row of a job table: an ordered mapping from column name to value.
// Column lookup is case-insensitive; stored names keep their original casing.
type Record struct {
	columns []string
	values  []string
}

func NewRecord() *Record {
	return &Record{}
}

// FromPairs builds a record from alternating name/value arguments.
func FromPairs(pairs ...string) *Record {
	r := NewRecord()
	for i := 0; i+1 < len(pairs); i += 2 {
		r.Set(pairs[i], pairs[i+1])
	}
	return r
}

func (r *Record) index(name string) int {
	name = strings.TrimSpace(name)
	for i, col := range r.columns {
		if strings.EqualFold(col, name) {
			return i
		}
	}
	return -1
}

// Lookup returns the value of a column and whether the column exists.
func (r *Record) Lookup(name string) (string, bool) {
	if idx := r.index(name); idx >= 0 {
		return r.values[idx], true
	}
	return "", false
}

func (r *Record) Get(name string) string {
	v, _ := r.Lookup(name)
	return v
}

func (r *Record) Has(name string) bool {
	return r.index(name) >= 0
}

// First returns the first non-blank value among the given column names.
func (r *Record) First(names ...string) string {
	for _, name := range names {
		if v := r.Get(name); strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

// Set overwrites an existing column in place or appends a new one.
func (r *Record) Set(name, value string) {
	if idx := r.index(name); idx >= 0 {
		r.values[idx] = value
		return
	}
	r.columns = append(r.columns, strings.TrimSpace(name))
	r.values = append(r.values, value)
}

func (r *Record) Columns() []string {
	out := make([]string, len(r.columns))
	copy(out, r.columns)
	return out
}

func (r *Record) Len() int {
	return len(r.columns)
}

func (r *Record) Clone() *Record {
	return &Record{
		columns: append([]string(nil), r.columns...),
		values:  append([]string(nil), r.values...),
	}
}

// Table is an ordered sequence of records.
type Table struct {
	Records []*Record
}

func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Records)
}

func (t *Table) Append(r *Record) {
	t.Records = append(t.Records, r)
}

// Columns returns the union of all record columns in first-seen order.
func (t *Table) Columns() []string {
	var cols []string
	seen := make(map[string]struct{})
	for _, r := range t.Records {
		for _, col := range r.columns {
			key := strings.ToLower(col)
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			cols = append(cols, col)
		}
	}
	return cols
}

// Exclude removes the records matching drop, keeping the order of the rest,
// and returns the removed ones.
func (t *Table) Exclude(drop func(*Record) bool) []*Record {
	kept := t.Records[:0]
	var removed []*Record
	for _, r := range t.Records {
		if drop(r) {
			removed = append(removed, r)
			continue
		}
		kept = append(kept, r)
	}
	t.Records = kept
	return removed
}
