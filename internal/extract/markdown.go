package extract

import (
	"regexp"
	"strings"

	"github.com/hyperjump/kotae/internal/models"
)

// headingRe matches an ATX heading line: 1-6 '#' characters, whitespace, title.
var headingRe = regexp.MustCompile(`^(#{1,6})\s+(.*)$`)

// SegmentMarkdown splits markdown text into heading-delimited segments. A
// heading line closes the current segment (emitted only when its trimmed body
// is non-empty), truncates the title stack to the heading's level, and opens
// a new segment whose SectionPath is the stack joined by " > ". A document
// with no headings yields one segment with an empty SectionPath; a blank
// document yields none. This keeps every chunk traceable to the heading it
// appeared under.
func SegmentMarkdown(text, sourceName string) []models.Segment {
	var (
		segments    []models.Segment
		stack       []string
		buf         []string
		sectionPath string
	)
	flush := func() {
		content := strings.TrimSpace(strings.Join(buf, "\n"))
		if content != "" {
			segments = append(segments, models.Segment{
				Text:        content,
				Source:      sourceName,
				SectionPath: sectionPath,
			})
		}
		buf = buf[:0]
	}

	for _, line := range strings.Split(text, "\n") {
		m := headingRe.FindStringSubmatch(strings.TrimSpace(line))
		if m == nil {
			buf = append(buf, line)
			continue
		}
		flush()
		keep := len(m[1]) - 1
		if keep > len(stack) {
			keep = len(stack)
		}
		stack = append(stack[:keep], strings.TrimSpace(m[2]))
		sectionPath = strings.Join(stack, " > ")
	}
	flush()

	// Headings without any body: still return the raw text so the document
	// is not silently dropped from the knowledge base.
	if len(segments) == 0 && strings.TrimSpace(text) != "" {
		segments = append(segments, models.Segment{Text: text, Source: sourceName})
	}
	return segments
}
