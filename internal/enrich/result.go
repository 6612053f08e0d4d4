package enrich

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/mitchellh/mapstructure"
	"github.com/spigell/jobfit/internal/records"
)

const (
	maxTags = 8

	ScoreColumn     = "score"
	WhyColumn       = "why"
	GapsColumn      = "gaps"
	LangColumn      = "lang"
	SeniorityColumn = "seniority"
	TagsColumn      = "tags"
	LocationsColumn = "locations"
)

// Result is the scoring answer of a backend. Keys outside the canonical set
// are kept in Extra and merged verbatim.
type Result struct {
	Score     any            `mapstructure:"score"`
	Why       string         `mapstructure:"why"`
	Gaps      []string       `mapstructure:"gaps"`
	Lang      string         `mapstructure:"lang"`
	Seniority string         `mapstructure:"seniority"`
	Tags      []string       `mapstructure:"tags"`
	Locations []string       `mapstructure:"locations"`
	Extra     map[string]any `mapstructure:",remain"`

	present map[string]bool
}

// ParseResponse strips an optional code fence and decodes the assistant text as a JSON object.
func ParseResponse(raw string) (map[string]any, error) {
	cleaned := extractJSON(raw)

	var data map[string]any
	if err := json.Unmarshal([]byte(cleaned), &data); err != nil {
		return nil, &ParseError{Raw: raw, Err: err}
	}
	if data == nil {
		return nil, &ParseError{Raw: raw, Err: fmt.Errorf("response is not a JSON object")}
	}

	return data, nil
}

// DecodeResult maps the parsed object onto Result. Keys are matched
// case-insensitively and "87" decodes as well as 87.
func DecodeResult(data map[string]any) (*Result, error) {
	result := &Result{present: make(map[string]bool, len(data))}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           result,
	})
	if err != nil {
		return nil, err
	}
	if err := decoder.Decode(data); err != nil {
		return nil, fmt.Errorf("decode scoring result: %w", err)
	}

	for key := range data {
		result.present[strings.ToLower(key)] = true
	}

	return result, nil
}

// Merge writes the parsed result into rec. Parsed values always overwrite
// existing ones and no column is ever removed. Canonical fields come first in a
// fixed order, then the remaining keys sorted by name.
func Merge(rec *records.Record, data map[string]any) {
	result, err := DecodeResult(data)
	if err != nil {
		mergeGeneric(rec, data)
		return
	}

	if result.present[ScoreColumn] {
		if score, ok := NormalizeScore(result.Score); ok {
			rec.Set(ScoreColumn, score)
		}
	}
	if result.present[WhyColumn] {
		rec.Set(WhyColumn, strings.TrimSpace(result.Why))
	}
	if result.present[GapsColumn] {
		rec.Set(GapsColumn, records.JoinList(trimAll(result.Gaps)))
	}
	if result.present[LangColumn] {
		rec.Set(LangColumn, strings.TrimSpace(result.Lang))
	}
	if result.present[SeniorityColumn] {
		rec.Set(SeniorityColumn, strings.TrimSpace(result.Seniority))
	}
	if result.present[TagsColumn] {
		tags := trimAll(result.Tags)
		if len(tags) > maxTags {
			tags = tags[:maxTags]
		}
		rec.Set(TagsColumn, records.JoinList(tags))
	}
	if result.present[LocationsColumn] {
		rec.Set(LocationsColumn, records.JoinList(trimAll(result.Locations)))
	}

	for _, key := range sortedKeys(result.Extra) {
		rec.Set(key, Flatten(result.Extra[key]))
	}
}

// mergeGeneric is used when canonical fields have unexpected shapes, e.g. gaps
// given as objects. Every key is flattened as is, except that the score is
// still normalized.
func mergeGeneric(rec *records.Record, data map[string]any) {
	for _, key := range sortedKeys(data) {
		value := data[key]
		if strings.EqualFold(key, ScoreColumn) {
			if score, ok := NormalizeScore(value); ok {
				rec.Set(key, score)
			}
			continue
		}
		rec.Set(key, Flatten(value))
	}
}

// NormalizeScore clamps a numeric score into [0,100] and rounds it. Values that
// are not numbers are returned verbatim; ok is false for an empty value.
func NormalizeScore(v any) (string, bool) {
	f := coerceFloat(v)
	if math.IsNaN(f) || math.IsInf(f, 0) {
		s := strings.TrimSpace(Flatten(v))
		return s, s != ""
	}

	f = math.Max(0, math.Min(100, math.Round(f)))
	return strconv.Itoa(int(f)), true
}

// Flatten renders a JSON value for tabular storage: arrays are joined with the
// list separator, objects become compact JSON and scalars are written as text.
func Flatten(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case bool:
		return strconv.FormatBool(val)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case int:
		return strconv.Itoa(val)
	case []any:
		parts := make([]string, 0, len(val))
		for _, item := range val {
			parts = append(parts, Flatten(item))
		}
		return records.JoinList(parts)
	case []string:
		return records.JoinList(val)
	default:
		data, err := json.Marshal(val)
		if err != nil {
			return fmt.Sprint(val)
		}
		return string(data)
	}
}

func extractJSON(raw string) string {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "```") {
		raw = strings.TrimPrefix(raw, "```json")
		raw = strings.TrimPrefix(raw, "```")
		raw = strings.TrimSpace(raw)
		if idx := strings.LastIndex(raw, "```"); idx != -1 {
			raw = raw[:idx]
		}
	}
	raw = strings.Trim(raw, "`")
	return strings.TrimSpace(raw)
}

func coerceFloat(v any) float64 {
	switch val := v.(type) {
	case float64:
		return val
	case int:
		return float64(val)
	case string:
		trimmed := strings.TrimSuffix(strings.TrimSpace(val), "%")
		if trimmed == "" {
			return math.NaN()
		}
		f, err := strconv.ParseFloat(trimmed, 64)
		if err != nil {
			return math.NaN()
		}
		return f
	default:
		return math.NaN()
	}
}

func trimAll(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
