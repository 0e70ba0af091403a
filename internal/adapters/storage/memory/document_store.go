package memory

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/PabloGalante/csr-lab/internal/domain"
)

type record struct {
	id  string
	doc domain.Document
}

// DocumentStore is an in-memory domain.DocumentStore. Every call holds the
// store lock, which makes UpdateOne atomic. Not persistent: dev/test only.
type DocumentStore struct {
	mu          sync.RWMutex
	collections map[string][]*record
}

func NewDocumentStore() *DocumentStore {
	return &DocumentStore{
		collections: make(map[string][]*record),
	}
}

func (s *DocumentStore) Insert(_ context.Context, collection string, doc domain.Document) (string, error) {
	norm, err := doc.Normalize()
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	id := uuid.NewString()
	s.collections[collection] = append(s.collections[collection], &record{id: id, doc: norm})
	return id, nil
}

func (s *DocumentStore) FindOne(_ context.Context, collection string, filter domain.Filter) (domain.Document, error) {
	f, err := filter.Normalize()
	if err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, r := range s.collections[collection] {
		if f.Matches(r.doc) {
			return r.doc.Normalize()
		}
	}
	return nil, domain.ErrNotFound
}

func (s *DocumentStore) Find(_ context.Context, collection string, filter domain.Filter) ([]domain.Document, error) {
	f, err := filter.Normalize()
	if err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []domain.Document{}
	for _, r := range s.collections[collection] {
		if !f.Matches(r.doc) {
			continue
		}
		cp, err := r.doc.Normalize()
		if err != nil {
			return nil, err
		}
		out = append(out, cp)
	}
	return out, nil
}

func (s *DocumentStore) UpdateOne(_ context.Context, collection string, filter domain.Filter, updates domain.Document) (int, error) {
	f, err := filter.Normalize()
	if err != nil {
		return 0, err
	}
	set, err := updates.Normalize()
	if err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, r := range s.collections[collection] {
		if !f.Matches(r.doc) {
			continue
		}
		for k, v := range set {
			r.doc[k] = v
		}
		return 1, nil
	}
	return 0, nil
}

func (s *DocumentStore) Count(_ context.Context, collection string, filter domain.Filter) (int, error) {
	f, err := filter.Normalize()
	if err != nil {
		return 0, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	n := 0
	for _, r := range s.collections[collection] {
		if f.Matches(r.doc) {
			n++
		}
	}
	return n, nil
}
