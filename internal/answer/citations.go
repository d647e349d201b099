package answer

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// citedSource pairs a retrieval rank with its chunk reference, so the
// appended Sources section can label each entry with the [S{rank}] token
// the answer cites it by.
type citedSource struct {
	Rank int
	Ref  string
}

// sourceRefs returns just the references, for the result and audit record.
func sourceRefs(cited []citedSource) []string {
	if len(cited) == 0 {
		return nil
	}
	refs := make([]string, len(cited))
	for i, c := range cited {
		refs[i] = c.Ref
	}
	return refs
}

var citationRe = regexp.MustCompile(`\[S(\d+)\]`)

// hasCitation reports whether the text contains at least one [S<n>] token.
func hasCitation(text string) bool {
	return citationRe.MatchString(text)
}

// citedRanks returns the distinct ranks cited in the text, in order of first
// appearance.
func citedRanks(text string) []int {
	seen := make(map[int]bool)
	var ranks []int
	for _, m := range citationRe.FindAllStringSubmatch(text, -1) {
		n, err := strconv.Atoi(m[1])
		if err != nil || seen[n] {
			continue
		}
		seen[n] = true
		ranks = append(ranks, n)
	}
	return ranks
}

var sourcesHeadingRe = regexp.MustCompile(`(?mi)^\s*sources\s*:?\s*$`)

// hasSourcesSection reports whether the text already carries a "Sources" section.
func hasSourcesSection(text string) bool {
	return sourcesHeadingRe.MatchString(text)
}

// appendSources adds a "Sources" section listing each cited source under its
// [S{rank}] label, unless one is already present or there is nothing to list.
func appendSources(text string, cited []citedSource) string {
	if len(cited) == 0 || hasSourcesSection(text) {
		return text
	}
	var b strings.Builder
	b.WriteString(strings.TrimRight(text, "\n"))
	b.WriteString("\n\nSources:\n")
	for _, c := range cited {
		fmt.Fprintf(&b, "- [S%d] %s\n", c.Rank, c.Ref)
	}
	return strings.TrimRight(b.String(), "\n")
}
