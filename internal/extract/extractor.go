// Package extract pulls candidate article records out of listing markup.
package extract

import (
	"bytes"
	"fmt"
	"iter"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/JakeFAU/headlines-scraper/internal/article"
)

// Default selectors for the blog-style listing page.
const (
	DefaultContainerSelector = "div.blog-text"
	DefaultHeadlineSelector  = "a.article-headline-link-blog, a"
	DefaultIntroSelector     = ".intro-blog"
)

// Config holds the CSS selectors used to locate entries. HeadlineSelector may list
// comma-separated alternatives; they are tried in order and the first hit wins.
type Config struct {
	ContainerSelector string
	HeadlineSelector  string
	IntroSelector     string
}

// Extractor turns markup into candidates.
type Extractor struct {
	cfg       Config
	headlines []string
}

// New builds an Extractor, filling empty selectors with the defaults.
func New(cfg Config) *Extractor {
	if cfg.ContainerSelector == "" {
		cfg.ContainerSelector = DefaultContainerSelector
	}
	if cfg.HeadlineSelector == "" {
		cfg.HeadlineSelector = DefaultHeadlineSelector
	}
	if cfg.IntroSelector == "" {
		cfg.IntroSelector = DefaultIntroSelector
	}
	var headlines []string
	for _, sel := range strings.Split(cfg.HeadlineSelector, ",") {
		if sel = strings.TrimSpace(sel); sel != "" {
			headlines = append(headlines, sel)
		}
	}
	return &Extractor{cfg: cfg, headlines: headlines}
}

// Extract parses markup once and returns a sequence yielding one candidate per container.
// Ranging over the sequence again walks the same parsed document.
func (e *Extractor) Extract(markup []byte) (iter.Seq[article.Candidate], error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(markup))
	if err != nil {
		return nil, fmt.Errorf("parse markup: %w", err)
	}
	containers := doc.Find(e.cfg.ContainerSelector)
	return func(yield func(article.Candidate) bool) {
		for i := range containers.Length() {
			if !yield(e.candidate(containers.Eq(i))) {
				return
			}
		}
	}, nil
}

// candidate reads the fields of one container; missing nodes leave empty strings.
func (e *Extractor) candidate(s *goquery.Selection) article.Candidate {
	headline := e.headline(s)
	href, _ := headline.Attr("href")
	return article.Candidate{
		Title:       headline.Text(),
		Description: s.Find(e.cfg.IntroSelector).First().Text(),
		LinkSuffix:  href,
	}
}

func (e *Extractor) headline(s *goquery.Selection) *goquery.Selection {
	for _, sel := range e.headlines {
		if found := s.Find(sel).First(); found.Length() > 0 {
			return found
		}
	}
	return s.Slice(0, 0)
}
