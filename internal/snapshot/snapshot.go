// Package snapshot serializes the entire logical database to JSON and
// restores it, for backups and test fixtures.
package snapshot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	log "github.com/sirupsen/logrus"

	"github.com/michaelsproul/website/internal/store"
	"github.com/michaelsproul/website/internal/times"
	"github.com/michaelsproul/website/internal/users"
)

// ErrStructural means the snapshot bytes do not have the expected shape.
var ErrStructural = errors.New("malformed database snapshot")

// DatabaseContents is an in-memory image of every collection. Ordering
// within a collection carries no meaning but is preserved so a dump/load
// round trip compares equal.
type DatabaseContents struct {
	Users            []users.User  `json:"users"`
	TimesheetEntries []times.Entry `json:"timesheet_entries"`
}

// Dump walks every collection and writes a pretty-printed JSON snapshot.
// It takes no lock: the caller must make sure nothing is writing to the
// store while the dump runs, otherwise the snapshot may straddle a write.
func Dump(ctx context.Context, ds store.DataStore, w io.Writer) error {
	contents, err := Read(ctx, ds)
	if err != nil {
		return err
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(contents); err != nil {
		return fmt.Errorf("serialize database contents: %w", err)
	}
	return nil
}

// Read collects the full database contents without serializing them.
func Read(ctx context.Context, ds store.DataStore) (*DatabaseContents, error) {
	allUsers, err := store.FindAll(ctx, ds, users.Codec{}, users.Collection)
	if err != nil {
		return nil, fmt.Errorf("dump users: %w", err)
	}

	entries, err := store.FindAll(ctx, ds, times.Codec{}, times.Collection)
	if err != nil {
		return nil, fmt.Errorf("dump timesheet entries: %w", err)
	}

	return &DatabaseContents{
		Users:            allUsers,
		TimesheetEntries: entries,
	}, nil
}

// Load restores a snapshot into the store. Load is additive: existing
// records are kept, a caller wanting a clean restore clears the
// collections first.
func Load(ctx context.Context, ds store.DataStore, data []byte) error {
	var contents DatabaseContents
	if err := json.Unmarshal(data, &contents); err != nil {
		return fmt.Errorf("%w: %s", ErrStructural, err)
	}

	log.Infof(
		"loading database snapshot: %d users, %d timesheet entries",
		len(contents.Users), len(contents.TimesheetEntries),
	)

	userDocs := make([]store.Document, 0, len(contents.Users))
	userCodec := users.Codec{}
	for _, u := range contents.Users {
		userDocs = append(userDocs, userCodec.Encode(u))
	}
	if err := ds.InsertMany(ctx, users.Collection, userDocs); err != nil {
		return fmt.Errorf("load users: %w", err)
	}

	entryDocs := make([]store.Document, 0, len(contents.TimesheetEntries))
	entryCodec := times.Codec{}
	for _, e := range contents.TimesheetEntries {
		entryDocs = append(entryDocs, entryCodec.Encode(e))
	}
	if err := ds.InsertMany(ctx, times.Collection, entryDocs); err != nil {
		return fmt.Errorf("load timesheet entries: %w", err)
	}

	return nil
}
