package actions

import (
	"regexp"
	"strings"
)

var (
	htmlTagRe      = regexp.MustCompile(`<[^>]*>`)
	mdLinkRe       = regexp.MustCompile(`\[([^\]]*)\]\([^)]*\)`)
	mdHeadingRe    = regexp.MustCompile(`(?m)^#{1,6}\s*`)
	mdEmphasisRe   = regexp.MustCompile("[*_`~]")
	whitespaceRuns = regexp.MustCompile(`\s+`)
)

// StripMarkup flattens markdown and HTML into plain text suitable for the
// small description slot wallet clients render.
func StripMarkup(s string) string {
	s = htmlTagRe.ReplaceAllString(s, "")
	s = mdLinkRe.ReplaceAllString(s, "$1")
	s = mdHeadingRe.ReplaceAllString(s, "")
	s = mdEmphasisRe.ReplaceAllString(s, "")
	s = whitespaceRuns.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}
