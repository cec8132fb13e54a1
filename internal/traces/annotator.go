package traces

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/google/uuid"
)

// DefaultLongLineThreshold is the trimmed rune length above which a line is flagged.
const DefaultLongLineThreshold = 80

const explanationFormat = "Found %d potential AI-generated traces, including repeated words, overlong lines, formal expressions and complex sentence structures."

// complexReasonRunes is how much of a structural match is quoted in its reason.
const complexReasonRunes = 20

// Options configures an Annotator.
type Options struct {
	// LongLineThreshold defaults to DefaultLongLineThreshold.
	LongLineThreshold int
	// NewID generates mark ids. Defaults to random UUIDs.
	NewID func() string
}

// Annotator detects trace patterns line by line.
// It holds no mutable state and is safe for concurrent use.
type Annotator struct {
	longLine int
	newID    func() string
}

// New creates an Annotator.
func New(opts Options) *Annotator {
	if opts.LongLineThreshold <= 0 {
		opts.LongLineThreshold = DefaultLongLineThreshold
	}
	if opts.NewID == nil {
		opts.NewID = uuid.NewString
	}
	return &Annotator{
		longLine: opts.LongLineThreshold,
		newID:    opts.NewID,
	}
}

var defaultAnnotator = New(Options{})

// Annotate runs the default annotator over text.
func Annotate(text string) Result {
	return defaultAnnotator.Annotate(text)
}

// LongLineThreshold returns the configured long-line threshold.
func (a *Annotator) LongLineThreshold() int {
	return a.longLine
}

// Annotate detects traces in text and renders the marked copy.
// Trailing whitespace is trimmed; leading newlines are kept. Invalid UTF-8
// is replaced with U+FFFD so offsets and markup share the returned original.
func (a *Annotator) Annotate(text string) Result {
	original := strings.TrimRightFunc(strings.ToValidUTF8(text, "\uFFFD"), unicode.IsSpace)
	lines := strings.Split(original, "\n")

	rendered := make([]string, len(lines))
	traces := make([]Mark, 0)

	offset := 0
	for i, line := range lines {
		runes := []rune(line)
		marks := a.detectLine(line, offset)
		rendered[i] = renderLine(runes, marks, offset)
		traces = append(traces, marks...)
		offset += len(runes) + 1
	}

	return Result{
		OriginalText: original,
		MarkedText:   strings.Join(rendered, "\n"),
		Traces:       traces,
		Explanation:  fmt.Sprintf(explanationFormat, len(traces)),
	}
}

// detectLine runs every heuristic family over one line.
// offset is the rune offset of the line start in the document.
func (a *Annotator) detectLine(line string, offset int) []Mark {
	if line == "" {
		return nil
	}

	var marks []Mark
	marks = append(marks, a.repeatedWords(line, offset)...)
	if m, ok := a.longLineMark(line, offset); ok {
		marks = append(marks, m)
	}
	marks = append(marks, a.matchAll(line, offset, formalPatterns, formalReason)...)
	marks = append(marks, a.matchAll(line, offset, complexPatterns, complexReason)...)
	return marks
}

type token struct {
	text  string
	start int // rune offset within the line
	size  int // rune length
}

// tokenize splits line on whitespace, keeping each token's rune position.
func tokenize(line string) []token {
	var tokens []token
	start := -1
	pos := 0
	var b strings.Builder
	for _, r := range line {
		if unicode.IsSpace(r) {
			if start >= 0 {
				tokens = append(tokens, token{text: b.String(), start: start, size: pos - start})
				b.Reset()
				start = -1
			}
		} else {
			if start < 0 {
				start = pos
			}
			b.WriteRune(r)
		}
		pos++
	}
	if start >= 0 {
		tokens = append(tokens, token{text: b.String(), start: start, size: pos - start})
	}
	return tokens
}

func (a *Annotator) repeatedWords(line string, offset int) []Mark {
	tokens := tokenize(line)
	if len(tokens) < 2 {
		return nil
	}

	// Marks are grouped by word, words in first-seen order.
	var words []string
	positions := make(map[string][]token, len(tokens))
	for _, t := range tokens {
		if _, seen := positions[t.text]; !seen {
			words = append(words, t.text)
		}
		positions[t.text] = append(positions[t.text], t)
	}

	var marks []Mark
	for _, w := range words {
		occurrences := positions[w]
		if len(occurrences) < 2 || occurrences[0].size <= 1 {
			continue
		}
		for _, t := range occurrences {
			marks = append(marks, Mark{
				ID:     a.newID(),
				Start:  offset + t.start,
				End:    offset + t.start + t.size,
				Type:   TypeWordRepetition,
				Reason: fmt.Sprintf("word %q is repeated within the same line", w),
			})
		}
	}
	return marks
}

func (a *Annotator) longLineMark(line string, offset int) (Mark, bool) {
	trimmed := utf8.RuneCountInString(strings.TrimSpace(line))
	if trimmed <= a.longLine {
		return Mark{}, false
	}
	return Mark{
		ID:     a.newID(),
		Start:  offset,
		End:    offset + utf8.RuneCountInString(line),
		Type:   TypeLongLine,
		Reason: fmt.Sprintf("line is too long (%d characters) and lacks natural breaks", trimmed),
	}, true
}

func (a *Annotator) matchAll(line string, offset int, table []pattern, reason func(string) string) []Mark {
	var marks []Mark
	for _, p := range table {
		for _, loc := range p.re.FindAllStringIndex(line, -1) {
			if loc[0] == loc[1] {
				continue
			}
			start := utf8.RuneCountInString(line[:loc[0]])
			end := start + utf8.RuneCountInString(line[loc[0]:loc[1]])
			marks = append(marks, Mark{
				ID:     a.newID(),
				Start:  offset + start,
				End:    offset + end,
				Type:   p.typ,
				Reason: reason(line[loc[0]:loc[1]]),
			})
		}
	}
	return marks
}

func formalReason(match string) string {
	return "overly formal expression: " + match
}

func complexReason(match string) string {
	runes := []rune(match)
	if len(runes) > complexReasonRunes {
		runes = runes[:complexReasonRunes]
	}
	return "complex sentence structure: " + string(runes) + "..."
}

// tagPattern matches every tag renderLine emits.
var tagPattern = regexp.MustCompile(`<mark class='ai-trace [a-z_]+' data-trace-id='[^']*' title='[^']*'>|</mark>`)

// Strip removes trace markup from marked, recovering the original text.
func Strip(marked string) string {
	return tagPattern.ReplaceAllLiteralString(marked, "")
}
