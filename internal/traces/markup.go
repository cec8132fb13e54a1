package traces

import (
	"sort"
	"strings"
)

const (
	markTitle    = "click for details"
	markCloseTag = "</mark>"
)

func openTag(m Mark) string {
	return "<mark class='ai-trace " + m.Type + "' data-trace-id='" + m.ID + "' title='" + markTitle + "'>"
}

type tagEvent struct {
	pos    int
	open   bool
	length int
	mark   int
}

// renderLine copies the line once, inserting tags at boundaries computed
// against the unmodified line. Mark offsets are document-global; offset is
// the line start. Marks outside the line are skipped.
//
// At a shared position closing tags come first, wider spans open before
// narrower ones and close after them, so nested spans stay well formed.
// Spans that cross produce crossing tags, which Strip still removes.
func renderLine(runes []rune, marks []Mark, offset int) string {
	if len(marks) == 0 {
		return string(runes)
	}

	events := make([]tagEvent, 0, 2*len(marks))
	for i, m := range marks {
		start, end := m.Start-offset, m.End-offset
		if start < 0 || end > len(runes) || start >= end {
			continue
		}
		events = append(events,
			tagEvent{pos: start, open: true, length: end - start, mark: i},
			tagEvent{pos: end, open: false, length: end - start, mark: i},
		)
	}
	if len(events) == 0 {
		return string(runes)
	}

	sort.Slice(events, func(i, j int) bool {
		a, b := events[i], events[j]
		if a.pos != b.pos {
			return a.pos < b.pos
		}
		if a.open != b.open {
			return !a.open
		}
		if a.length != b.length {
			if a.open {
				return a.length > b.length
			}
			return a.length < b.length
		}
		if a.open {
			return a.mark < b.mark
		}
		return a.mark > b.mark
	})

	var sb strings.Builder
	prev := 0
	for _, ev := range events {
		sb.WriteString(string(runes[prev:ev.pos]))
		prev = ev.pos
		if ev.open {
			sb.WriteString(openTag(marks[ev.mark]))
		} else {
			sb.WriteString(markCloseTag)
		}
	}
	sb.WriteString(string(runes[prev:]))
	return sb.String()
}
