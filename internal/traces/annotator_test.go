package traces

import (
	"fmt"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

// seqIDs returns a deterministic id generator: t1, t2, ...
func seqIDs() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("t%d", n)
	}
}

func newTestAnnotator() *Annotator {
	return New(Options{NewID: seqIDs()})
}

func substr(s string, start, end int) string {
	return string([]rune(s)[start:end])
}

func TestAnnotate_WordRepetition(t *testing.T) {
	res := newTestAnnotator().Annotate("test test ok")

	want := []Mark{
		{ID: "t1", Start: 0, End: 4, Type: TypeWordRepetition, Reason: `word "test" is repeated within the same line`},
		{ID: "t2", Start: 5, End: 9, Type: TypeWordRepetition, Reason: `word "test" is repeated within the same line`},
	}
	if diff := cmp.Diff(want, res.Traces); diff != "" {
		t.Errorf("Traces mismatch (-want +got):\n%s", diff)
	}

	wantMarked := "<mark class='ai-trace word_repetition' data-trace-id='t1' title='click for details'>test</mark> " +
		"<mark class='ai-trace word_repetition' data-trace-id='t2' title='click for details'>test</mark> ok"
	if res.MarkedText != wantMarked {
		t.Errorf("MarkedText = %q, want %q", res.MarkedText, wantMarked)
	}
	if got := Strip(res.MarkedText); got != res.OriginalText {
		t.Errorf("Strip(MarkedText) = %q, want %q", got, res.OriginalText)
	}
}

func TestAnnotate_WordRepetitionGroupedByWord(t *testing.T) {
	res := newTestAnnotator().Annotate("aa bb aa bb")

	type span struct{ Start, End int }
	var got []span
	for _, m := range res.Traces {
		got = append(got, span{m.Start, m.End})
	}
	want := []span{{0, 2}, {6, 8}, {3, 5}, {9, 11}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("repetition order mismatch (-want +got):\n%s", diff)
	}
	if res.Traces[1].Reason != `word "aa" is repeated within the same line` {
		t.Errorf("second mark reason = %q", res.Traces[1].Reason)
	}
}

func TestAnnotate_InvalidUTF8(t *testing.T) {
	res := newTestAnnotator().Annotate("ab\xffcd plain plain")

	if res.OriginalText != "ab\uFFFDcd plain plain" {
		t.Errorf("OriginalText = %q", res.OriginalText)
	}
	if got := Strip(res.MarkedText); got != res.OriginalText {
		t.Errorf("Strip(MarkedText) = %q, want %q", got, res.OriginalText)
	}
	if len(res.Traces) != 2 || substr(res.OriginalText, res.Traces[0].Start, res.Traces[0].End) != "plain" {
		t.Errorf("Traces = %+v", res.Traces)
	}
}

func TestAnnotate_SingleRuneTokensIgnored(t *testing.T) {
	res := newTestAnnotator().Annotate("a a a b b")
	if len(res.Traces) != 0 {
		t.Errorf("got %d traces, want 0: %+v", len(res.Traces), res.Traces)
	}
}

func TestAnnotate_WordRepetitionUsesActualPositions(t *testing.T) {
	text := "  go   go"
	res := newTestAnnotator().Annotate(text)
	if len(res.Traces) != 2 {
		t.Fatalf("got %d traces, want 2", len(res.Traces))
	}
	for _, m := range res.Traces {
		if got := substr(res.OriginalText, m.Start, m.End); got != "go" {
			t.Errorf("mark %s covers %q, want %q", m.ID, got, "go")
		}
	}
}

func TestAnnotate_LongLine(t *testing.T) {
	t.Run("81 characters is flagged", func(t *testing.T) {
		line := strings.Repeat("a", 81)
		res := newTestAnnotator().Annotate(line)
		if len(res.Traces) != 1 {
			t.Fatalf("got %d traces, want 1", len(res.Traces))
		}
		m := res.Traces[0]
		if m.Type != TypeLongLine || m.Start != 0 || m.End != 81 {
			t.Errorf("got %+v, want long_line [0,81)", m)
		}
	})

	t.Run("80 characters is not flagged", func(t *testing.T) {
		res := newTestAnnotator().Annotate(strings.Repeat("a", 80))
		if len(res.Traces) != 0 {
			t.Errorf("got %d traces, want 0", len(res.Traces))
		}
	})

	t.Run("threshold counts runes", func(t *testing.T) {
		res := newTestAnnotator().Annotate(strings.Repeat("字", 81))
		if len(res.Traces) != 1 || res.Traces[0].End != 81 {
			t.Errorf("got %+v, want one long_line ending at 81", res.Traces)
		}
	})

	t.Run("surrounding spaces are trimmed for the check but spanned", func(t *testing.T) {
		line := "  " + strings.Repeat("b", 80) + "  x"
		res := newTestAnnotator().Annotate(line)
		if len(res.Traces) != 1 {
			t.Fatalf("got %d traces, want 1", len(res.Traces))
		}
		if res.Traces[0].End != len(line) {
			t.Errorf("End = %d, want %d", res.Traces[0].End, len(line))
		}
	})

	t.Run("custom threshold", func(t *testing.T) {
		a := New(Options{LongLineThreshold: 10, NewID: seqIDs()})
		res := a.Annotate("abcdefghijk")
		if len(res.Traces) != 1 || res.Traces[0].Type != TypeLongLine {
			t.Errorf("got %+v, want one long_line", res.Traces)
		}
	})
}

func TestAnnotate_FormalPatterns(t *testing.T) {
	tests := []struct {
		name  string
		text  string
		typ   string
		match string
	}{
		{"connector full-width comma", "天气很好。因此，我们出发了", TypeFormalConnector, "因此，"},
		{"connector ascii comma", "此外,还有一点", TypeFormalConnector, "此外,"},
		{"conclusion", "综上所述，方案可行", TypeFormalConclusion, "综上所述，"},
		{"attention", "值得注意的是，结果稳定", TypeFormalAttention, "值得注意的是，"},
		{"emphasis", "需要强调的是，这很重要", TypeFormalEmphasis, "需要强调的是，"},
		{"reference", "根据以上，可以判断", TypeFormalReference, "根据以上，"},
		{"english connector", "Therefore, we left early.", TypeFormalConnector, "Therefore,"},
		{"english conclusion", "Fine. In conclusion, it works.", TypeFormalConclusion, "In conclusion,"},
		{"english attention", "It is worth noting that tests pass.", TypeFormalAttention, "It is worth noting that"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := newTestAnnotator().Annotate(tt.text)
			var found *Mark
			for i := range res.Traces {
				if res.Traces[i].Type == tt.typ {
					found = &res.Traces[i]
					break
				}
			}
			if found == nil {
				t.Fatalf("no %s mark in %+v", tt.typ, res.Traces)
			}
			if got := substr(res.OriginalText, found.Start, found.End); got != tt.match {
				t.Errorf("span = %q, want %q", got, tt.match)
			}
			if want := "overly formal expression: " + tt.match; found.Reason != want {
				t.Errorf("Reason = %q, want %q", found.Reason, want)
			}
		})
	}
}

func TestAnnotate_ComplexPatterns(t *testing.T) {
	tests := []struct {
		name  string
		text  string
		typ   string
		match string
	}{
		{"stacked modifiers", "美丽的城市的古老的建筑", TypeComplexModifiers, "的城市的古老的"},
		{"parallel structure", "苹果以及香蕉以及橘子", TypeParallelStructure, "以及香蕉以及"},
		{"causal chain", "通过持续学习从而进步", TypeCausalChain, "通过持续学习从而"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := newTestAnnotator().Annotate(tt.text)
			if len(res.Traces) != 1 {
				t.Fatalf("got %d traces, want 1: %+v", len(res.Traces), res.Traces)
			}
			m := res.Traces[0]
			if m.Type != tt.typ {
				t.Errorf("Type = %q, want %q", m.Type, tt.typ)
			}
			if got := substr(res.OriginalText, m.Start, m.End); got != tt.match {
				t.Errorf("span = %q, want %q", got, tt.match)
			}
			if want := "complex sentence structure: " + tt.match + "..."; m.Reason != want {
				t.Errorf("Reason = %q, want %q", m.Reason, want)
			}
		})
	}

	t.Run("match stops at clause punctuation", func(t *testing.T) {
		res := newTestAnnotator().Annotate("我的书，你的笔，他的纸")
		if len(res.Traces) != 0 {
			t.Errorf("got %+v, want no traces", res.Traces)
		}
	})

	t.Run("reason truncates to 20 runes", func(t *testing.T) {
		text := "通过" + strings.Repeat("长", 30) + "从而"
		res := newTestAnnotator().Annotate(text)
		if len(res.Traces) != 1 {
			t.Fatalf("got %d traces, want 1", len(res.Traces))
		}
		want := "complex sentence structure: 通过" + strings.Repeat("长", 18) + "..."
		if res.Traces[0].Reason != want {
			t.Errorf("Reason = %q, want %q", res.Traces[0].Reason, want)
		}
	})
}

func TestAnnotate_MultiLineOffsets(t *testing.T) {
	text := "hello world\n结论如下。因此，结束"
	res := newTestAnnotator().Annotate(text)

	if len(res.Traces) != 1 {
		t.Fatalf("got %d traces, want 1: %+v", len(res.Traces), res.Traces)
	}
	m := res.Traces[0]
	if m.Start < len("hello world")+1 {
		t.Errorf("Start = %d, want >= %d", m.Start, len("hello world")+1)
	}
	stripped := Strip(res.MarkedText)
	if got, want := substr(stripped, m.Start, m.End), substr(res.OriginalText, m.Start, m.End); got != want {
		t.Errorf("stripped span = %q, original span = %q", got, want)
	}
	if got := substr(res.OriginalText, m.Start, m.End); got != "因此，" {
		t.Errorf("span = %q, want %q", got, "因此，")
	}
}

func TestAnnotate_TraceOrder(t *testing.T) {
	text := "因此， 通过努力从而成功 因此，\nok ok"
	res := newTestAnnotator().Annotate(text)

	var got []string
	for _, m := range res.Traces {
		got = append(got, m.Type)
	}
	want := []string{
		TypeWordRepetition, TypeWordRepetition,
		TypeFormalConnector, TypeFormalConnector,
		TypeCausalChain,
		TypeWordRepetition, TypeWordRepetition,
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("trace order mismatch (-want +got):\n%s", diff)
	}
	for i := 1; i < len(res.Traces); i++ {
		if res.Traces[i].ID == res.Traces[i-1].ID {
			t.Errorf("duplicate id %q", res.Traces[i].ID)
		}
	}
}

func TestAnnotate_Whitespace(t *testing.T) {
	t.Run("trailing whitespace trimmed, leading newlines kept", func(t *testing.T) {
		res := newTestAnnotator().Annotate("\n\nfoo bar  \n\n\t ")
		if res.OriginalText != "\n\nfoo bar" {
			t.Errorf("OriginalText = %q, want %q", res.OriginalText, "\n\nfoo bar")
		}
	})

	t.Run("empty text", func(t *testing.T) {
		res := newTestAnnotator().Annotate("")
		if res.OriginalText != "" || res.MarkedText != "" {
			t.Errorf("got original %q marked %q, want empty", res.OriginalText, res.MarkedText)
		}
		if res.Traces == nil || len(res.Traces) != 0 {
			t.Errorf("Traces = %#v, want empty non-nil slice", res.Traces)
		}
		want := fmt.Sprintf(explanationFormat, 0)
		if res.Explanation != want {
			t.Errorf("Explanation = %q, want %q", res.Explanation, want)
		}
	})
}

func TestAnnotate_RoundTrip(t *testing.T) {
	inputs := []string{
		"",
		"plain text without traces",
		"test test ok",
		strings.Repeat("word ", 30),
		"因此，我们出发了\n此外，还有\n\n综上所述，结束",
		"x的 x的 的",           // repetition crosses a modifier chain
		"以及 以及 以及A以及",      // nested and crossing spans
		"通过因此，从而 通过因此，从而", // formal inside causal chain, repeated tokens
		strings.Repeat("重复 ", 20) + "\n" + strings.Repeat("的a", 50),
		"Therefore, therefore, THEREFORE, it is worth noting that it is worth noting that",
		"emoji 😀😀 emoji 😀😀 and tabs\tand\ttabs",
		"ab\xffcd plain",
		"\xff\xfe xx \xff\xfe xx",
	}

	for i, in := range inputs {
		t.Run(fmt.Sprintf("input_%d", i), func(t *testing.T) {
			res := Annotate(in)
			if got := Strip(res.MarkedText); got != res.OriginalText {
				t.Errorf("Strip(MarkedText) = %q, want %q", got, res.OriginalText)
			}
			length := len([]rune(res.OriginalText))
			for _, m := range res.Traces {
				if m.Start < 0 || m.Start >= m.End || m.End > length {
					t.Errorf("mark %+v out of bounds for length %d", m, length)
				}
				if !strings.Contains(res.MarkedText, "data-trace-id='"+m.ID+"'") {
					t.Errorf("mark %s not addressable in MarkedText", m.ID)
				}
			}
		})
	}
}

func TestRenderLine_NestedSpans(t *testing.T) {
	runes := []rune("abcdef")
	marks := []Mark{
		{ID: "inner", Start: 2, End: 4, Type: "x"},
		{ID: "outer", Start: 0, End: 6, Type: "y"},
	}
	got := renderLine(runes, marks, 0)
	want := openTag(marks[1]) + "ab" + openTag(marks[0]) + "cd" + markCloseTag + "ef" + markCloseTag
	if got != want {
		t.Errorf("renderLine() = %q, want %q", got, want)
	}
}

func TestRenderLine_SkipsOutOfRange(t *testing.T) {
	runes := []rune("abc")
	marks := []Mark{
		{ID: "bad", Start: 2, End: 10, Type: "x"},
		{ID: "neg", Start: -1, End: 1, Type: "x"},
	}
	if got := renderLine(runes, marks, 0); got != "abc" {
		t.Errorf("renderLine() = %q, want %q", got, "abc")
	}
}

func TestTypes(t *testing.T) {
	types := Types()
	if len(types) != 10 {
		t.Fatalf("got %d types, want 10", len(types))
	}
	seen := make(map[string]bool)
	for _, ti := range types {
		if seen[ti.Type] {
			t.Errorf("duplicate type %q", ti.Type)
		}
		seen[ti.Type] = true
		if ti.Name == "" || ti.Description == "" {
			t.Errorf("type %q missing name or description", ti.Type)
		}
	}
	types[0].Name = "changed"
	if Types()[0].Name == "changed" {
		t.Error("Types() exposes the internal catalog")
	}
}
