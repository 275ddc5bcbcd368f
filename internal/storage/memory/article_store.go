// Package memory holds in-memory stores for development and tests.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/JakeFAU/headlines-scraper/internal/article"
)

// ArticleStore implements article.Repository in process memory.
type ArticleStore struct {
	mu       sync.RWMutex
	idGen    article.IDGenerator
	articles map[string]article.Article
	order    []string
	links    map[string]string
	notes    map[string]article.Note
}

// Option configures an ArticleStore.
type Option func(*ArticleStore)

// WithNotes seeds notes that FindByID can populate.
func WithNotes(notes ...article.Note) Option {
	return func(s *ArticleStore) {
		for _, n := range notes {
			s.notes[n.ID] = n
		}
	}
}

// NewArticleStore constructs an ArticleStore that takes ids from idGen.
func NewArticleStore(idGen article.IDGenerator, opts ...Option) *ArticleStore {
	s := &ArticleStore{
		idGen:    idGen,
		articles: make(map[string]article.Article),
		links:    make(map[string]string),
		notes:    make(map[string]article.Note),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create stores a draft. A non-empty link already present yields article.ErrDuplicateLink.
func (s *ArticleStore) Create(_ context.Context, draft article.Draft) (article.Article, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if draft.Link != "" {
		if _, exists := s.links[draft.Link]; exists {
			return article.Article{}, article.ErrDuplicateLink
		}
	}
	id, err := s.idGen.NewID()
	if err != nil {
		return article.Article{}, &article.StoreError{Op: "create", Err: fmt.Errorf("assign id: %w", err)}
	}
	rec := article.Article{
		ID:          id,
		Title:       draft.Title,
		Description: draft.Description,
		Link:        draft.Link,
	}
	s.articles[id] = rec
	s.order = append(s.order, id)
	if rec.Link != "" {
		s.links[rec.Link] = id
	}
	return rec, nil
}

// FindAll returns the matching articles in insertion order.
func (s *ArticleStore) FindAll(_ context.Context, filter article.Filter) ([]article.Article, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]article.Article, 0, len(s.order))
	for _, id := range s.order {
		rec := s.articles[id]
		if filter == article.FilterSaved && !rec.Saved {
			continue
		}
		out = append(out, rec)
	}
	return out, nil
}

// FindByID returns one article with its note populated.
func (s *ArticleStore) FindByID(_ context.Context, id string) (article.Article, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.articles[id]
	if !ok {
		return article.Article{}, article.ErrNotFound
	}
	if note, ok := s.notes[rec.NoteID]; ok && rec.NoteID != "" {
		rec.Note = &note
	}
	return rec, nil
}

// MarkSaved flips saved to true.
func (s *ArticleStore) MarkSaved(_ context.Context, id string) (article.Article, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.articles[id]
	if !ok {
		return article.Article{}, article.ErrNotFound
	}
	rec.Saved = true
	s.articles[id] = rec
	return rec, nil
}

// AttachNote points an article at a seeded note. It backs the fixtures of API tests.
func (s *ArticleStore) AttachNote(id, noteID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.articles[id]
	if !ok {
		return article.ErrNotFound
	}
	rec.NoteID = noteID
	s.articles[id] = rec
	return nil
}

// DeleteByID removes an article and returns it.
func (s *ArticleStore) DeleteByID(_ context.Context, id string) (article.Article, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.articles[id]
	if !ok {
		return article.Article{}, article.ErrNotFound
	}
	delete(s.articles, id)
	if rec.Link != "" {
		delete(s.links, rec.Link)
	}
	for i, oid := range s.order {
		if oid == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return rec, nil
}

// ClearAll drops every article and reports how many were removed.
func (s *ArticleStore) ClearAll(_ context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := int64(len(s.articles))
	s.articles = make(map[string]article.Article)
	s.links = make(map[string]string)
	s.order = nil
	return n, nil
}

// Ping always succeeds.
func (s *ArticleStore) Ping(context.Context) error { return nil }
