package store

import (
	"context"

	log "github.com/sirupsen/logrus"
)

var _ DataStore = (*MongoStore)(nil)
var _ DataStore = (*PostgresStore)(nil)
var _ DataStore = (*MemStore)(nil)

// DataStore is the capability surface shared by every backing store. It is
// a stateless gateway: the storage engine owns the record lifecycle, and
// concurrency is delegated to the engine's own connection handling.
//
// InsertOne and DeleteOne request the strongest write acknowledgement the
// backend offers before returning, so a crash right after a successful
// call cannot lose the write. InsertMany uses the backend default and is
// meant for bulk restore.
type DataStore interface {
	// FindOne returns the first document matching the filter, or
	// ErrNotFound.
	FindOne(ctx context.Context, collection string, filter Filter) (Document, error)
	// FindMany returns a forward-only cursor over all matching documents.
	// A nil filter matches the whole collection.
	FindMany(ctx context.Context, collection string, filter Filter) (Cursor, error)
	// InsertOne appends a document and returns the store-assigned id, or
	// the document's own id when it carried one. Uniqueness violations
	// surface as ErrDuplicate.
	InsertOne(ctx context.Context, collection string, doc Document) (string, error)
	InsertMany(ctx context.Context, collection string, docs []Document) error
	// DeleteOne removes at most one matching document and reports how many
	// documents were actually removed. Zero is not an error.
	DeleteOne(ctx context.Context, collection string, filter Filter) (int64, error)
	Close(ctx context.Context) error
}

// Cursor walks FindMany results. A backend failure mid-iteration stops
// Next and surfaces in Err, it never silently truncates the sequence.
type Cursor interface {
	Next(ctx context.Context) bool
	Document() Document
	Err() error
	Close(ctx context.Context) error
}

// FindBy looks up a single record through the codec. Not-found and decode
// failures keep their distinct error identities (ErrNotFound vs
// ErrConversion).
func FindBy[T any](ctx context.Context, ds DataStore, codec Codec[T], collection string, filter Filter) (*T, error) {
	log.Tracef("searching %q with filter %v", collection, filter)

	doc, err := ds.FindOne(ctx, collection, filter)
	if err != nil {
		return nil, err
	}

	record, err := codec.Decode(doc)
	if err != nil {
		return nil, err
	}
	return &record, nil
}

// FindMany decodes every matching document, failing fast on the first
// conversion error instead of returning a partial result.
func FindManyRecords[T any](ctx context.Context, ds DataStore, codec Codec[T], collection string, filter Filter) ([]T, error) {
	cursor, err := ds.FindMany(ctx, collection, filter)
	if err != nil {
		return nil, err
	}
	defer func() {
		if closeErr := cursor.Close(ctx); closeErr != nil {
			log.Errorf("close cursor for %q: %s", collection, closeErr)
		}
	}()

	var records []T
	for cursor.Next(ctx) {
		record, err := codec.Decode(cursor.Document())
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	if err := cursor.Err(); err != nil {
		return nil, err
	}

	return records, nil
}

// FindAll decodes the entire collection.
func FindAll[T any](ctx context.Context, ds DataStore, codec Codec[T], collection string) ([]T, error) {
	return FindManyRecords(ctx, ds, codec, collection, nil)
}

// InsertRecord encodes and inserts a single record, returning the assigned id.
func InsertRecord[T any](ctx context.Context, ds DataStore, codec Codec[T], collection string, record T) (string, error) {
	return ds.InsertOne(ctx, collection, codec.Encode(record))
}
