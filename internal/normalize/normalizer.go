// Package normalize cleans extracted candidates into drafts.
package normalize

import (
	"strings"

	"github.com/JakeFAU/headlines-scraper/internal/article"
)

// Normalizer trims candidate text and resolves links against a fixed base.
type Normalizer struct {
	base string
}

// New returns a Normalizer resolving relative links against baseURL.
func New(baseURL string) *Normalizer {
	return &Normalizer{base: strings.TrimRight(strings.TrimSpace(baseURL), "/")}
}

// Normalize validates a candidate and returns its draft. A blank title is rejected;
// a blank description or link is kept empty.
func (n *Normalizer) Normalize(c article.Candidate) (article.Draft, error) {
	draft := article.Draft{
		Title:       collapse(c.Title),
		Description: collapse(c.Description),
		Link:        n.resolve(c.LinkSuffix),
	}
	if draft.Title == "" {
		return article.Draft{}, &article.ValidationError{Field: "title", Reason: "empty after trimming"}
	}
	return draft, nil
}

func (n *Normalizer) resolve(suffix string) string {
	suffix = strings.TrimSpace(suffix)
	if suffix == "" || isAbsolute(suffix) || n.base == "" {
		return suffix
	}
	return n.base + "/" + strings.TrimLeft(suffix, "/")
}

func isAbsolute(link string) bool {
	lower := strings.ToLower(link)
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}

// collapse replaces invalid UTF-8 with U+FFFD, trims the ends and folds inner
// whitespace runs (markup indentation) to one space.
func collapse(s string) string {
	return strings.Join(strings.Fields(strings.ToValidUTF8(s, "\uFFFD")), " ")
}
