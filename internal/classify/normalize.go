package classify

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// recordSchema holds the only structural requirements on model output:
// an object carrying label and score. Everything else is coerced.
const recordSchema = `{
	"$schema": "http://json-schema.org/draft-07/schema#",
	"type": "object",
	"required": ["label", "score"]
}`

var compiledSchema = jsonschema.MustCompileString("classification.json", recordSchema)

var (
	fenceOpen  = regexp.MustCompile("^```[A-Za-z]*")
	fenceClose = regexp.MustCompile("```$")
)

// Normalize converts raw model output into a Record. It never fails: any
// parse or cast error yields Fallback.
func Normalize(raw string) Record {
	rec, err := parse(raw)
	if err != nil {
		return Fallback(err)
	}
	return rec
}

func parse(raw string) (Record, error) {
	payload := repair(raw)

	dec := json.NewDecoder(strings.NewReader(payload))
	dec.UseNumber()
	var doc any
	if err := dec.Decode(&doc); err != nil {
		return Record{}, fmt.Errorf("invalid JSON: %w", err)
	}
	if _, err := dec.Token(); err != io.EOF {
		return Record{}, errors.New("invalid JSON: unexpected data after object")
	}
	if err := compiledSchema.Validate(doc); err != nil {
		return Record{}, err
	}
	fields := doc.(map[string]any)

	score, err := castScore(fields["score"])
	if err != nil {
		return Record{}, err
	}

	rec := Record{
		Label:            text(fields["label"]),
		Score:            score,
		Confidence:       text(fields["confidence"]),
		Rationale:        text(fields["rationale"]),
		DetailedAnalysis: text(fields["detailed_analysis"]),
		KeyIndicators:    indicators(fields["key_indicators"]),
		Methodology:      DefaultMethodology,
	}
	if !validLabel(rec.Label) {
		rec.Label = LabelUncertain
	}
	if !validConfidence(rec.Confidence) {
		rec.Confidence = ConfidenceMedium
	}
	if v, ok := fields["methodology"]; ok && v != nil {
		rec.Methodology = text(v)
	}
	return rec, nil
}

// repair strips code fences and any prose around the outermost braces.
func repair(raw string) string {
	s := strings.TrimSpace(raw)
	s = fenceOpen.ReplaceAllLiteralString(s, "")
	s = fenceClose.ReplaceAllLiteralString(s, "")
	s = strings.TrimSpace(s)

	if !strings.HasPrefix(s, "{") {
		if i := strings.Index(s, "{"); i >= 0 {
			s = s[i:]
		}
	}
	if !strings.HasSuffix(s, "}") {
		if i := strings.LastIndex(s, "}"); i >= 0 {
			s = s[:i+1]
		}
	}
	return s
}

// text casts a decoded JSON value to trimmed text. Absent and null are empty.
func text(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(t)
	case json.Number:
		return t.String()
	case bool:
		return strconv.FormatBool(t)
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return ""
		}
		return string(b)
	}
}

// castScore accepts numbers, numeric strings and booleans, clamped to [0, 1].
func castScore(v any) (float64, error) {
	var f float64
	switch t := v.(type) {
	case json.Number:
		n, err := parseFloat(t.String())
		if err != nil {
			return 0, fmt.Errorf("invalid score %s: %w", t, err)
		}
		f = n
	case string:
		n, err := parseFloat(strings.TrimSpace(t))
		if err != nil {
			return 0, fmt.Errorf("invalid score %q: %w", t, err)
		}
		f = n
	case bool:
		if t {
			f = 1
		}
	default:
		return 0, fmt.Errorf("invalid score: cannot convert %s to a number", describe(v))
	}
	if math.IsNaN(f) {
		return 0, errors.New("invalid score: NaN")
	}
	return math.Max(0, math.Min(1, f)), nil
}

// parseFloat tolerates out-of-range values, which ParseFloat reports as
// ±Inf alongside ErrRange; clamping takes care of them.
func parseFloat(s string) (float64, error) {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		var numErr *strconv.NumError
		if errors.As(err, &numErr) && numErr.Err == strconv.ErrRange {
			return f, nil
		}
		return 0, err
	}
	return f, nil
}

func indicators(v any) []string {
	out := make([]string, 0)
	switch t := v.(type) {
	case nil:
	case []any:
		for _, item := range t {
			if s := text(item); s != "" {
				out = append(out, s)
			}
		}
	default:
		if s := text(t); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func describe(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case []any:
		return "array"
	case map[string]any:
		return "object"
	default:
		return fmt.Sprintf("%T", v)
	}
}
