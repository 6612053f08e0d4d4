package report

import (
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/spigell/jobfit/internal/records"
)

const (
	topCompanies    = 10
	notSpecifiedTag = "Not specified"
)

// Columns maps report fields to table columns. Lookups are case-insensitive.
type Columns struct {
	Company     string `mapstructure:"company"`
	Logo        string `mapstructure:"company_logo"`
	Title       string `mapstructure:"title"`
	URL         string `mapstructure:"job_url"`
	Description string `mapstructure:"description"`
	Score       string `mapstructure:"score"`
	Why         string `mapstructure:"why"`
	Gaps        string `mapstructure:"gaps"`
	Seniority   string `mapstructure:"seniority"`
	Lang        string `mapstructure:"lang"`
	Location    string `mapstructure:"location"`
}

func DefaultColumns() Columns {
	return Columns{
		Company:     "company",
		Logo:        "company_logo",
		Title:       "title",
		URL:         "job_url",
		Description: "description",
		Score:       "score",
		Why:         "why",
		Gaps:        "gaps",
		Seniority:   "seniority",
		Lang:        "lang",
		Location:    "location",
	}
}

// withDefaults fills every blank mapping with its default column.
func (c Columns) withDefaults() Columns {
	d := DefaultColumns()
	pick := func(v, def string) string {
		if strings.TrimSpace(v) == "" {
			return def
		}
		return strings.TrimSpace(v)
	}
	return Columns{
		Company:     pick(c.Company, d.Company),
		Logo:        pick(c.Logo, d.Logo),
		Title:       pick(c.Title, d.Title),
		URL:         pick(c.URL, d.URL),
		Description: pick(c.Description, d.Description),
		Score:       pick(c.Score, d.Score),
		Why:         pick(c.Why, d.Why),
		Gaps:        pick(c.Gaps, d.Gaps),
		Seniority:   pick(c.Seniority, d.Seniority),
		Lang:        pick(c.Lang, d.Lang),
		Location:    pick(c.Location, d.Location),
	}
}

// ParseScore accepts numbers within [0,100]. Anything else is unscored.
func ParseScore(s string) (float64, bool) {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(f) || f < 0 || f > 100 {
		return 0, false
	}
	return f, true
}

// Sort orders records by score, highest first. Unscored records go last and ties
// keep their input order.
func Sort(recs []*records.Record, scoreColumn string) []*records.Record {
	sorted := append([]*records.Record(nil), recs...)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, aok := ParseScore(sorted[i].Get(scoreColumn))
		b, bok := ParseScore(sorted[j].Get(scoreColumn))
		if aok != bok {
			return aok
		}
		return aok && a > b
	})
	return sorted
}

type Count struct {
	Name  string
	Count int
}

type Aggregates struct {
	Total   int
	Scored  int
	Average float64
	// TopCompanies holds at most ten companies, most frequent first.
	TopCompanies []Count
	Languages    []Count
}

func (a Aggregates) HasAverage() bool { return a.Scored > 0 }

func (a Aggregates) AverageText() string {
	if !a.HasAverage() {
		return "n/a"
	}
	return strconv.FormatFloat(a.Average, 'f', 1, 64)
}

// Aggregate computes the header statistics. Unscored records count towards the
// total but not the average.
func Aggregate(recs []*records.Record, cols Columns) Aggregates {
	cols = cols.withDefaults()
	agg := Aggregates{Total: len(recs)}

	var sum float64
	companies := make(map[string]int)
	languages := make(map[string]int)

	for _, rec := range recs {
		if score, ok := ParseScore(rec.Get(cols.Score)); ok {
			sum += score
			agg.Scored++
		}

		if company := strings.TrimSpace(rec.Get(cols.Company)); company != "" {
			companies[company]++
		}

		lang := strings.TrimSpace(rec.Get(cols.Lang))
		if lang == "" {
			lang = notSpecifiedTag
		}
		languages[lang]++
	}

	if agg.Scored > 0 {
		agg.Average = sum / float64(agg.Scored)
	}

	agg.TopCompanies = ranked(companies)
	if len(agg.TopCompanies) > topCompanies {
		agg.TopCompanies = agg.TopCompanies[:topCompanies]
	}
	agg.Languages = ranked(languages)

	return agg
}

func ranked(counts map[string]int) []Count {
	out := make([]Count, 0, len(counts))
	for name, n := range counts {
		out = append(out, Count{Name: name, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// Page is a zero-indexed window [Start, End) over the sorted records.
type Page struct {
	Number int
	Total  int
	Start  int
	End    int
}

// Paginate clamps page into [1, total pages]. There is always at least one page.
func Paginate(total, size, page int) Page {
	if size <= 0 {
		size = DefaultPageSize
	}
	pages := (total + size - 1) / size
	if pages < 1 {
		pages = 1
	}
	if page < 1 {
		page = 1
	}
	if page > pages {
		page = pages
	}

	start := (page - 1) * size
	end := start + size
	if end > total {
		end = total
	}
	if start > end {
		start = end
	}

	return Page{Number: page, Total: pages, Start: start, End: end}
}
