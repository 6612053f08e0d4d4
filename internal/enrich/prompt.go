package enrich

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/spigell/jobfit/internal/records"
)

//go:embed prompt.md
var promptTemplate string

const maxKnobRunes = 300

// Scoring holds the knobs substituted into the system instruction.
type Scoring struct {
	CandidateName      string
	MustHaves          []string
	NiceToHaves        []string
	Exclusions         []string
	Locale             string
	LanguagePreference string
	SeniorityTarget    string
}

var (
	whitespaceRe = regexp.MustCompile(`\s+`)
	htmlTagRe    = regexp.MustCompile(`(?i)</?(p|div|br|ul|ol|li|h[1-6]|span|strong|em|b|i|a)\b[^>]*>`)
)

// SystemPrompt renders the scoring rubric with the configured knobs.
func SystemPrompt(s Scoring) string {
	replacer := strings.NewReplacer(
		"{{CANDIDATE_NAME}}", sanitizeLine(s.CandidateName),
		"{{MUST_HAVES}}", sanitizeList(s.MustHaves),
		"{{NICE_TO_HAVES}}", sanitizeList(s.NiceToHaves),
		"{{EXCLUSIONS}}", sanitizeList(s.Exclusions),
		"{{LOCALE}}", sanitizeLine(s.Locale),
		"{{LANGUAGE_PREFERENCE}}", sanitizeLine(s.LanguagePreference),
		"{{SENIORITY_TARGET}}", sanitizeLine(s.SeniorityTarget),
	)
	return replacer.Replace(promptTemplate)
}

type jobPayload struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

// JobPayload is the compact JSON sent as the job part of the user message.
func JobPayload(rec *records.Record) (string, error) {
	payload := jobPayload{
		Title:       strings.TrimSpace(rec.First(records.TitleColumn)),
		Description: DescriptionText(rec.First(records.DescriptionColumn)),
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal job payload: %w", err)
	}
	return string(data), nil
}

// DescriptionText reduces an HTML description to text. Plain text and markdown
// are returned trimmed but otherwise untouched.
func DescriptionText(description string) string {
	description = strings.TrimSpace(description)
	if !htmlTagRe.MatchString(description) {
		return description
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(description))
	if err != nil {
		return description
	}
	doc.Find("script, style, noscript").Remove()

	var blocks []string
	doc.Find("p, li, h1, h2, h3, h4, h5, h6").Each(func(_ int, s *goquery.Selection) {
		text := collapse(s.Text())
		if text == "" {
			return
		}
		if goquery.NodeName(s) == "li" {
			text = "- " + text
		}
		blocks = append(blocks, text)
	})
	if len(blocks) > 0 {
		return strings.Join(blocks, "\n")
	}

	return collapse(doc.Text())
}

func collapse(s string) string {
	return strings.TrimSpace(whitespaceRe.ReplaceAllString(s, " "))
}

func sanitizeLine(s string) string {
	s = collapse(s)
	s = strings.NewReplacer("[", "(", "]", ")", "{{", "(", "}}", ")").Replace(s)
	if s == "" {
		return "none"
	}
	runes := []rune(s)
	if len(runes) > maxKnobRunes {
		s = strings.TrimSpace(string(runes[:maxKnobRunes]))
	}
	return s
}

func sanitizeList(items []string) string {
	cleaned := make([]string, 0, len(items))
	for _, item := range items {
		if item = collapse(item); item != "" {
			cleaned = append(cleaned, item)
		}
	}
	return sanitizeLine(strings.Join(cleaned, ", "))
}
