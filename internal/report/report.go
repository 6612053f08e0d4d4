package report

import (
	"bytes"
	_ "embed"
	"fmt"
	"html/template"
	"io"
	"strings"
	"time"

	"github.com/spigell/jobfit/internal/markup"
	"github.com/spigell/jobfit/internal/records"
	"github.com/spigell/jobfit/internal/utils"
	"go.uber.org/zap"
)

const DefaultPageSize = 10

//go:embed report.html.tmpl
var documentTemplate string

var (
	now  = time.Now
	page = template.Must(template.New("report").Parse(documentTemplate))
)

type Options struct {
	OutputPath  string
	PageSize    int
	DefaultLogo string
	// BaseDir resolves relative logo paths.
	BaseDir   string
	Candidate string
	Columns   Columns
}

// Card is one rendered posting.
type Card struct {
	Index       int
	Hidden      bool
	Company     string
	Title       string
	URL         string
	Location    string
	Description template.HTML
	Score       string
	ScoreClass  string
	Seniority   string
	Lang        string
	Why         string
	Gaps        []string
	Logo        Logo
}

type document struct {
	Title       string
	GeneratedAt string
	Stats       Aggregates
	Cards       []Card
	PageSize    int
	Total       int
	First       Page
}

type Summary struct {
	Path    string
	Backup  string
	Records int
	Pages   int
}

// Generate renders the table into a single self-contained HTML document. An
// existing document is copied to a timestamped backup before it is replaced.
func Generate(table *records.Table, opts Options, logger *zap.Logger) (*Summary, error) {
	var buf bytes.Buffer
	first, err := Render(&buf, table, opts)
	if err != nil {
		return nil, err
	}

	backup, err := records.CopyToBackup(opts.OutputPath)
	if err != nil {
		return nil, err
	}
	if backup != "" {
		logger.Info("previous report copied to backup", zap.String("backup", backup))
	}

	if err := utils.WriteFileAtomic(opts.OutputPath, buf.Bytes()); err != nil {
		return nil, fmt.Errorf("write report: %w", err)
	}

	summary := &Summary{Path: opts.OutputPath, Backup: backup, Records: table.Len(), Pages: first.Total}
	logger.Info("report written",
		zap.String("path", summary.Path),
		zap.Int("records", summary.Records),
		zap.Int("pages", summary.Pages),
	)

	return summary, nil
}

// Render writes the document to w and returns the first page it shows.
func Render(w io.Writer, table *records.Table, opts Options) (Page, error) {
	cols := opts.Columns.withDefaults()
	size := opts.PageSize
	if size <= 0 {
		size = DefaultPageSize
	}

	sorted := Sort(table.Records, cols.Score)
	first := Paginate(len(sorted), size, 1)

	doc := document{
		Title:       "Job matches",
		GeneratedAt: now().Format("2006-01-02 15:04"),
		Stats:       Aggregate(sorted, cols),
		Cards:       make([]Card, 0, len(sorted)),
		PageSize:    size,
		Total:       len(sorted),
		First:       first,
	}
	if name := strings.TrimSpace(opts.Candidate); name != "" {
		doc.Title = "Job matches for " + name
	}

	for i, rec := range sorted {
		card := newCard(rec, cols, opts)
		card.Index = i
		card.Hidden = i < first.Start || i >= first.End
		doc.Cards = append(doc.Cards, card)
	}

	if err := page.Execute(w, doc); err != nil {
		return first, fmt.Errorf("render report: %w", err)
	}

	return first, nil
}

func newCard(rec *records.Record, cols Columns, opts Options) Card {
	company := strings.TrimSpace(rec.Get(cols.Company))

	card := Card{
		Company:     company,
		Title:       strings.TrimSpace(rec.Get(cols.Title)),
		URL:         safeURL(rec.Get(cols.URL)),
		Location:    strings.TrimSpace(rec.Get(cols.Location)),
		Description: template.HTML(markup.Render(rec.Get(cols.Description))),
		Seniority:   strings.TrimSpace(rec.Get(cols.Seniority)),
		Lang:        strings.TrimSpace(rec.Get(cols.Lang)),
		Why:         strings.TrimSpace(rec.Get(cols.Why)),
		Gaps:        records.SplitList(rec.Get(cols.Gaps)),
		Logo:        ResolveLogo(rec.Get(cols.Logo), opts.DefaultLogo, company, opts.BaseDir),
	}
	if card.Company == "" {
		card.Company = "Unknown company"
	}
	if card.Title == "" {
		card.Title = "Untitled position"
	}

	if score, ok := ParseScore(rec.Get(cols.Score)); ok {
		card.Score = fmt.Sprintf("%.0f", score)
		switch {
		case score >= 75:
			card.ScoreClass = "high"
		case score >= 50:
			card.ScoreClass = "mid"
		default:
			card.ScoreClass = "low"
		}
	} else {
		card.Score = "n/a"
		card.ScoreClass = "none"
	}

	return card
}

func safeURL(raw string) string {
	raw = strings.TrimSpace(raw)
	lower := strings.ToLower(raw)
	if strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://") {
		return raw
	}
	return ""
}
