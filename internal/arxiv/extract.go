// Package arxiv resolves arXiv references to paper titles through the public export API.
package arxiv

import (
	"regexp"
	"strings"
)

const (
	newID = `[0-9]{4}\.[0-9]{4,5}(?:v[0-9]+)?`
	oldID = `[a-z-]+/[0-9]{7}(?:v[0-9]+)?`
)

// Checked in order; the first match wins.
var idPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)arxiv\.org/abs/(` + newID + `)`),
	regexp.MustCompile(`(?i)arxiv\.org/pdf/(` + newID + `)(?:\.pdf)?`),
	regexp.MustCompile(`(?i)arxiv\.org/abs/(` + oldID + `)`),
	regexp.MustCompile(`(?i)arxiv\.org/pdf/(` + oldID + `)(?:\.pdf)?`),
	regexp.MustCompile(`(?i)^arXiv:(` + newID + `)$`),
	regexp.MustCompile(`(?i)^arXiv:(` + oldID + `)$`),
	regexp.MustCompile(`(?i)^(` + newID + `)$`),
	regexp.MustCompile(`(?i)^(` + oldID + `)$`),
}

// ExtractID returns the arXiv identifier in ref (abs or pdf URL, "arXiv:" prefix or bare id),
// or "" when ref is not an arXiv reference.
func ExtractID(ref string) string {
	ref = strings.TrimSpace(ref)
	for _, re := range idPatterns {
		if m := re.FindStringSubmatch(ref); m != nil {
			return m[1]
		}
	}
	return ""
}

// IsArxivRef reports whether ref names an arXiv paper.
func IsArxivRef(ref string) bool {
	return ExtractID(ref) != ""
}
