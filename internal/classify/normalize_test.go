package classify

import (
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want Record
	}{
		{
			name: "minimal valid object",
			raw:  `{"label":"ai","score":0.9}`,
			want: Record{
				Label:         LabelAI,
				Score:         0.9,
				Confidence:    ConfidenceMedium,
				KeyIndicators: []string{},
				Methodology:   DefaultMethodology,
			},
		},
		{
			name: "json fence",
			raw:  "```json\n{\"label\":\"human\",\"score\":0.1}\n```",
			want: Record{
				Label:         LabelHuman,
				Score:         0.1,
				Confidence:    ConfidenceMedium,
				KeyIndicators: []string{},
				Methodology:   DefaultMethodology,
			},
		},
		{
			name: "bare fence",
			raw:  "```\n{\"label\":\"human\",\"score\":0.2}\n```",
			want: Record{
				Label:         LabelHuman,
				Score:         0.2,
				Confidence:    ConfidenceMedium,
				KeyIndicators: []string{},
				Methodology:   DefaultMethodology,
			},
		},
		{
			name: "prose around the object",
			raw:  `Sure! Here is my analysis: {"label":"ai","score":0.8,"confidence":"high"} Hope that helps.`,
			want: Record{
				Label:         LabelAI,
				Score:         0.8,
				Confidence:    ConfidenceHigh,
				KeyIndicators: []string{},
				Methodology:   DefaultMethodology,
			},
		},
		{
			name: "full record with whitespace",
			raw: `{
				"label": " human ",
				"score": 0.15,
				"confidence": " low ",
				"rationale": "  varied rhythm  ",
				"detailed_analysis": " personal anecdotes ",
				"key_indicators": [" typos ", "", "slang", 3, null],
				"methodology": " stylometry "
			}`,
			want: Record{
				Label:            LabelHuman,
				Score:            0.15,
				Confidence:       ConfidenceLow,
				Rationale:        "varied rhythm",
				DetailedAnalysis: "personal anecdotes",
				KeyIndicators:    []string{"typos", "slang", "3"},
				Methodology:      "stylometry",
			},
		},
		{
			name: "unknown label and confidence",
			raw:  `{"label":"AI","score":0.7,"confidence":"very high"}`,
			want: Record{
				Label:         LabelUncertain,
				Score:         0.7,
				Confidence:    ConfidenceMedium,
				KeyIndicators: []string{},
				Methodology:   DefaultMethodology,
			},
		},
		{
			name: "score clamped high",
			raw:  `{"label":"ai","score":1.7}`,
			want: Record{Label: LabelAI, Score: 1, Confidence: ConfidenceMedium, KeyIndicators: []string{}, Methodology: DefaultMethodology},
		},
		{
			name: "score clamped low",
			raw:  `{"label":"human","score":-0.3}`,
			want: Record{Label: LabelHuman, Score: 0, Confidence: ConfidenceMedium, KeyIndicators: []string{}, Methodology: DefaultMethodology},
		},
		{
			name: "score overflow clamps",
			raw:  `{"label":"ai","score":1e400}`,
			want: Record{Label: LabelAI, Score: 1, Confidence: ConfidenceMedium, KeyIndicators: []string{}, Methodology: DefaultMethodology},
		},
		{
			name: "numeric string score",
			raw:  `{"label":"ai","score":" 0.75 "}`,
			want: Record{Label: LabelAI, Score: 0.75, Confidence: ConfidenceMedium, KeyIndicators: []string{}, Methodology: DefaultMethodology},
		},
		{
			name: "boolean score",
			raw:  `{"label":"ai","score":true}`,
			want: Record{Label: LabelAI, Score: 1, Confidence: ConfidenceMedium, KeyIndicators: []string{}, Methodology: DefaultMethodology},
		},
		{
			name: "scalar key indicator is wrapped",
			raw:  `{"label":"ai","score":0.6,"key_indicators":"uniform sentence length"}`,
			want: Record{Label: LabelAI, Score: 0.6, Confidence: ConfidenceMedium, KeyIndicators: []string{"uniform sentence length"}, Methodology: DefaultMethodology},
		},
		{
			name: "object key indicator is wrapped as JSON",
			raw:  `{"label":"ai","score":0.6,"key_indicators":{"a":1}}`,
			want: Record{Label: LabelAI, Score: 0.6, Confidence: ConfidenceMedium, KeyIndicators: []string{`{"a":1}`}, Methodology: DefaultMethodology},
		},
		{
			name: "null fields use defaults",
			raw:  `{"label":null,"score":0.4,"confidence":null,"rationale":null,"key_indicators":null,"methodology":null}`,
			want: Record{Label: LabelUncertain, Score: 0.4, Confidence: ConfidenceMedium, KeyIndicators: []string{}, Methodology: DefaultMethodology},
		},
		{
			name: "empty methodology is kept",
			raw:  `{"label":"ai","score":0.4,"methodology":"   "}`,
			want: Record{Label: LabelAI, Score: 0.4, Confidence: ConfidenceMedium, KeyIndicators: []string{}, Methodology: ""},
		},
		{
			name: "object inside an array is cut out",
			raw:  `[{"label":"ai","score":0.3}]`,
			want: Record{Label: LabelAI, Score: 0.3, Confidence: ConfidenceMedium, KeyIndicators: []string{}, Methodology: DefaultMethodology},
		},
		{
			name: "non-string rationale is cast",
			raw:  `{"label":"ai","score":0.4,"rationale":42,"detailed_analysis":false}`,
			want: Record{Label: LabelAI, Score: 0.4, Confidence: ConfidenceMedium, Rationale: "42", DetailedAnalysis: "false", KeyIndicators: []string{}, Methodology: DefaultMethodology},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Normalize(tt.raw)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Normalize() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestNormalizeFallback(t *testing.T) {
	inputs := map[string]string{
		"garbage":          "not json at all",
		"empty":            "",
		"missing score":    `{"label":"ai"}`,
		"missing label":    `{"score":0.3}`,
		"array root":       `[1,2]`,
		"truncated":        `{"label":"ai","score":`,
		"null score":       `{"label":"ai","score":null}`,
		"array score":      `{"label":"ai","score":[0.5]}`,
		"object score":     `{"label":"ai","score":{"v":0.5}}`,
		"text score":       `{"label":"ai","score":"very likely"}`,
		"nan score":        `{"label":"ai","score":"NaN"}`,
		"trailing object":  `{"label":"ai","score":0.5}{"label":"human","score":0.1}`,
		"unbalanced brace": `}{`,
	}

	for name, raw := range inputs {
		t.Run(name, func(t *testing.T) {
			got := Normalize(raw)
			if got.Label != LabelUncertain || got.Score != 0.5 || got.Confidence != ConfidenceLow {
				t.Errorf("Normalize(%q) = %+v, want fallback", raw, got)
			}
			if diff := cmp.Diff([]string{fallbackIndicator}, got.KeyIndicators); diff != "" {
				t.Errorf("KeyIndicators mismatch (-want +got):\n%s", diff)
			}
			if !strings.HasPrefix(got.Rationale, "detection failed: ") {
				t.Errorf("Rationale = %q", got.Rationale)
			}
			if got.Methodology != fallbackMethodology || got.DetailedAnalysis != fallbackAnalysis {
				t.Errorf("fallback text fields = %q / %q", got.Methodology, got.DetailedAnalysis)
			}
		})
	}
}

func TestFallback(t *testing.T) {
	t.Run("truncates long errors by rune", func(t *testing.T) {
		msg := strings.Repeat("é", 150)
		got := Fallback(errors.New(msg))
		want := "detection failed: " + strings.Repeat("é", 100)
		if got.Rationale != want {
			t.Errorf("Rationale has %d runes, want %d", len([]rune(got.Rationale)), len([]rune(want)))
		}
	})

	t.Run("nil error", func(t *testing.T) {
		got := Fallback(nil)
		if got.Rationale != "detection failed: unknown error" {
			t.Errorf("Rationale = %q", got.Rationale)
		}
	})
}

// Every input, however broken, yields a record within its domains.
func TestNormalizeDomains(t *testing.T) {
	inputs := []string{
		"", " ", "{", "}", "{}", "null", "42", `"ai"`, "```", "```json", "``````",
		`{"label":"ai","score":0.5`, `{"label":1,"score":1}`, `{"label":["ai"],"score":"1"}`,
		`{"label":"ai","score":"-Inf"}`, `{"label":"ai","score":"+Inf"}`, `{"label":"ai","score":-0}`,
		"```json\n{\"label\":\"ai\",\"score\":0.99,\"confidence\":\"high\"}\n```\nExplanation follows.",
		"{\"label\":\"human\",\"score\":0.01}\n\n{\"note\":\"second\"}",
		"模型输出：{\"label\":\"ai\",\"score\":0.66,\"key_indicators\":[\"因此，\"]}",
		strings.Repeat("{", 1000),
	}
	for _, raw := range inputs {
		got := Normalize(raw)
		if !validLabel(got.Label) {
			t.Errorf("Normalize(%q).Label = %q", raw, got.Label)
		}
		if !validConfidence(got.Confidence) {
			t.Errorf("Normalize(%q).Confidence = %q", raw, got.Confidence)
		}
		if math.IsNaN(got.Score) || got.Score < 0 || got.Score > 1 {
			t.Errorf("Normalize(%q).Score = %v", raw, got.Score)
		}
		if got.KeyIndicators == nil {
			t.Errorf("Normalize(%q).KeyIndicators is nil", raw)
		}
		for _, k := range got.KeyIndicators {
			if k == "" {
				t.Errorf("Normalize(%q) produced an empty indicator", raw)
			}
		}
	}
}

func TestRepair(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"  {\"a\":1}  ", `{"a":1}`},
		{"```json\n{\"a\":1}\n```", `{"a":1}`},
		{"```JSON {\"a\":1}```", `{"a":1}`},
		{"prefix {\"a\":1} suffix", `{"a":1}`},
		{"no braces here", "no braces here"},
	}
	for _, tt := range tests {
		if got := repair(tt.in); got != tt.want {
			t.Errorf("repair(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
