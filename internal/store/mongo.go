package store

import (
	"context"
	"errors"
	"fmt"

	log "github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/writeconcern"
)

// MongoStore keeps each collection as-is in MongoDB. The driver's "_id"
// is exposed to callers as the document field "id" (hex string), so the
// codecs never see backend-specific types.
type MongoStore struct {
	db *mongo.Database
}

func NewMongoStore(db *mongo.Database) *MongoStore {
	return &MongoStore{db: db}
}

// EnsureIndexes creates the unique index on users.name. The index is the
// authoritative duplicate-username check, the application-level lookup in
// the users service is only a fast path.
func (s *MongoStore) EnsureIndexes(ctx context.Context) error {
	_, err := s.db.Collection("users").Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "name", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("create users.name index: %w", err)
	}
	return nil
}

// journaled returns a collection handle that blocks writes until the
// journal commit is acknowledged.
func (s *MongoStore) journaled(collection string) *mongo.Collection {
	return s.db.Collection(collection, options.Collection().SetWriteConcern(writeconcern.Journaled()))
}

func (s *MongoStore) FindOne(ctx context.Context, collection string, filter Filter) (Document, error) {
	var raw bson.M
	err := s.db.Collection(collection).FindOne(ctx, toMongoFilter(filter)).Decode(&raw)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, backendError(fmt.Sprintf("find one in %q", collection), err)
	}
	return fromMongoDocument(raw), nil
}

func (s *MongoStore) FindMany(ctx context.Context, collection string, filter Filter) (Cursor, error) {
	cur, err := s.db.Collection(collection).Find(ctx, toMongoFilter(filter))
	if err != nil {
		return nil, backendError(fmt.Sprintf("find in %q", collection), err)
	}
	return &mongoCursor{cur: cur}, nil
}

func (s *MongoStore) InsertOne(ctx context.Context, collection string, doc Document) (string, error) {
	raw, id := toMongoDocument(doc)
	if _, err := s.journaled(collection).InsertOne(ctx, raw); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return "", fmt.Errorf("insert into %q: %w", collection, ErrDuplicate)
		}
		return "", backendError(fmt.Sprintf("insert into %q", collection), err)
	}
	return id, nil
}

func (s *MongoStore) InsertMany(ctx context.Context, collection string, docs []Document) error {
	if len(docs) == 0 {
		return nil
	}

	raws := make([]any, 0, len(docs))
	for _, doc := range docs {
		raw, _ := toMongoDocument(doc)
		raws = append(raws, raw)
	}

	if _, err := s.db.Collection(collection).InsertMany(ctx, raws); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("insert many into %q: %w", collection, ErrDuplicate)
		}
		return backendError(fmt.Sprintf("insert many into %q", collection), err)
	}
	return nil
}

func (s *MongoStore) DeleteOne(ctx context.Context, collection string, filter Filter) (int64, error) {
	result, err := s.journaled(collection).DeleteOne(ctx, toMongoFilter(filter))
	if err != nil {
		return 0, backendError(fmt.Sprintf("delete from %q", collection), err)
	}
	return result.DeletedCount, nil
}

func (s *MongoStore) Close(ctx context.Context) error {
	return s.db.Client().Disconnect(ctx)
}

type mongoCursor struct {
	cur       *mongo.Cursor
	current   Document
	decodeErr error
}

func (c *mongoCursor) Next(ctx context.Context) bool {
	if c.decodeErr != nil {
		return false
	}
	if !c.cur.Next(ctx) {
		return false
	}

	var raw bson.M
	if err := c.cur.Decode(&raw); err != nil {
		c.decodeErr = backendError("decode cursor document", err)
		return false
	}
	c.current = fromMongoDocument(raw)
	return true
}

func (c *mongoCursor) Document() Document {
	return c.current
}

func (c *mongoCursor) Err() error {
	if c.decodeErr != nil {
		return c.decodeErr
	}
	if err := c.cur.Err(); err != nil {
		return backendError("iterate cursor", err)
	}
	return nil
}

func (c *mongoCursor) Close(ctx context.Context) error {
	return c.cur.Close(ctx)
}

// toMongoDocument maps the portable "id" field onto "_id", assigning a
// fresh ObjectID when the document has none yet. Returns the hex id the
// document ends up stored under.
func toMongoDocument(doc Document) (bson.M, string) {
	raw := make(bson.M, len(doc)+1)
	for k, v := range doc {
		if k == "id" {
			continue
		}
		raw[k] = v
	}

	if id, _ := doc.Str("id"); id != "" {
		if oid, err := primitive.ObjectIDFromHex(id); err == nil {
			raw["_id"] = oid
			return raw, id
		}
		// not an ObjectID hex, keep it as an opaque string key
		raw["_id"] = id
		return raw, id
	}

	oid := primitive.NewObjectID()
	raw["_id"] = oid
	return raw, oid.Hex()
}

func fromMongoDocument(raw bson.M) Document {
	doc := make(Document, len(raw))
	for k, v := range raw {
		if k == "_id" {
			switch id := v.(type) {
			case primitive.ObjectID:
				doc["id"] = id.Hex()
			case string:
				doc["id"] = id
			default:
				log.Warnf("unexpected _id type %T, dropping", v)
			}
			continue
		}
		doc[k] = v
	}
	return doc
}

func toMongoFilter(filter Filter) bson.M {
	raw := bson.M{}
	for k, v := range filter {
		if k == "id" {
			if s, ok := v.(string); ok {
				if oid, err := primitive.ObjectIDFromHex(s); err == nil {
					raw["_id"] = oid
					continue
				}
			}
			raw["_id"] = v
			continue
		}
		raw[k] = v
	}
	return raw
}
