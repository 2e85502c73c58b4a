package times

import (
	"context"
	"errors"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/michaelsproul/website/internal/store"
)

var ErrInvalidEntry = errors.New("invalid timesheet entry")

// Service implements timesheet handling on top of a DataStore.
type Service struct {
	store store.DataStore
	codec Codec
}

func NewService(ds store.DataStore) *Service {
	return &Service{store: ds}
}

// Summary returns all entries with the free-text notes blanked, for the
// overview that only cares about hours.
func (s *Service) Summary(ctx context.Context) ([]Entry, error) {
	entries, err := store.FindAll(ctx, s.store, s.codec, Collection)
	if err != nil {
		return nil, fmt.Errorf("fetch entries: %w", err)
	}

	for i := range entries {
		entries[i].Morning = ""
		entries[i].Afternoon = ""
	}
	return entries, nil
}

// Entries returns all entries, notes included.
func (s *Service) Entries(ctx context.Context) ([]Entry, error) {
	return store.FindAll(ctx, s.store, s.codec, Collection)
}

// Save persists the entry and returns it with the store-assigned id set.
func (s *Service) Save(ctx context.Context, entry Entry) (*Entry, error) {
	if entry.End.Before(entry.Start) {
		return nil, fmt.Errorf("%w: end is before start", ErrInvalidEntry)
	}
	if entry.Breaks < 0 {
		return nil, fmt.Errorf("%w: negative break duration", ErrInvalidEntry)
	}

	log.Debugf("saving entry for %s", entry.Start.Format(time.RFC1123))

	id, err := store.InsertRecord(ctx, s.store, s.codec, Collection, entry)
	if err != nil {
		return nil, fmt.Errorf("insert entry: %w", err)
	}

	entry.ID = id
	return &entry, nil
}

// Delete removes the entry with the given id. Returns false when nothing
// matched, which is not an error.
func (s *Service) Delete(ctx context.Context, id string) (bool, error) {
	deleted, err := s.store.DeleteOne(ctx, Collection, store.Filter{"id": id})
	if err != nil {
		return false, fmt.Errorf("delete entry: %w", err)
	}
	if deleted == 0 {
		log.Debugf("no entry deleted for id %s", id)
		return false, nil
	}
	return true, nil
}
