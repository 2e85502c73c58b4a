package store

import (
	"context"
	"fmt"
	"strconv"
	"sync"
)

// MemStore is an in-process DataStore used by unit tests and the dev
// server. Documents are deep-copied on the way in and out, so callers can
// never alias store-owned state.
type MemStore struct {
	mu     sync.RWMutex
	data   map[string][]Document
	unique map[string][]string
	nextID int64
}

type MemOption func(*MemStore)

// WithUniqueIndex rejects inserts whose field value already exists in the
// collection, mirroring the unique indexes the real backends carry.
func WithUniqueIndex(collection, field string) MemOption {
	return func(s *MemStore) {
		s.unique[collection] = append(s.unique[collection], field)
	}
}

func NewMemStore(opts ...MemOption) *MemStore {
	s := &MemStore{
		data:   make(map[string][]Document),
		unique: make(map[string][]string),
		nextID: 1,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *MemStore) FindOne(_ context.Context, collection string, filter Filter) (Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, doc := range s.data[collection] {
		if matches(doc, filter) {
			return copyDocument(doc), nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemStore) FindMany(_ context.Context, collection string, filter Filter) (Cursor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var docs []Document
	for _, doc := range s.data[collection] {
		if filter == nil || matches(doc, filter) {
			docs = append(docs, copyDocument(doc))
		}
	}
	return &memCursor{docs: docs}, nil
}

func (s *MemStore) InsertOne(_ context.Context, collection string, doc Document) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.insertLocked(collection, doc)
}

func (s *MemStore) InsertMany(_ context.Context, collection string, docs []Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, doc := range docs {
		if _, err := s.insertLocked(collection, doc); err != nil {
			return err
		}
	}
	return nil
}

func (s *MemStore) insertLocked(collection string, doc Document) (string, error) {
	for _, field := range s.unique[collection] {
		value, ok := doc[field]
		if !ok {
			continue
		}
		for _, existing := range s.data[collection] {
			if valuesEqual(existing[field], value) {
				return "", fmt.Errorf("unique index %s.%s: %w", collection, field, ErrDuplicate)
			}
		}
	}

	stored := copyDocument(doc)
	id, _ := stored.Str("id")
	if id == "" {
		id = strconv.FormatInt(s.nextID, 10)
		s.nextID++
		stored["id"] = id
	}

	s.data[collection] = append(s.data[collection], stored)
	return id, nil
}

func (s *MemStore) DeleteOne(_ context.Context, collection string, filter Filter) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	docs := s.data[collection]
	for i, doc := range docs {
		if matches(doc, filter) {
			s.data[collection] = append(docs[:i], docs[i+1:]...)
			return 1, nil
		}
	}
	return 0, nil
}

func (s *MemStore) Close(context.Context) error {
	return nil
}

type memCursor struct {
	docs []Document
	pos  int
}

func (c *memCursor) Next(context.Context) bool {
	if c.pos >= len(c.docs) {
		return false
	}
	c.pos++
	return true
}

func (c *memCursor) Document() Document {
	return c.docs[c.pos-1]
}

func (c *memCursor) Err() error { return nil }

func (c *memCursor) Close(context.Context) error { return nil }

func matches(doc Document, filter Filter) bool {
	for field, want := range filter {
		got, ok := doc[field]
		if !ok || !valuesEqual(got, want) {
			return false
		}
	}
	return true
}

// valuesEqual compares across the integer widths different decoders
// produce for the same document.
func valuesEqual(a, b any) bool {
	if an, ok := asInt64(a); ok {
		bn, bok := asInt64(b)
		return bok && an == bn
	}
	return a == b
}

func asInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	case float64:
		return int64(n), true
	default:
		return 0, false
	}
}

func copyDocument(doc Document) Document {
	out := make(Document, len(doc))
	for k, v := range doc {
		out[k] = v
	}
	return out
}
