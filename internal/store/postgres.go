package store

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel/attribute"

	"github.com/michaelsproul/website/internal/telemetry/tracing"
)

// PostgresStore maps each collection to a fixed table. Field values stay
// in their canonical document form (RFC3339 text for timestamps), so the
// same codecs work against both backends. Single-document writes rely on
// synchronous_commit staying on, which makes every acknowledged commit
// journal-durable.
type PostgresStore struct {
	db *pgxpool.Pool
}

type tableSpec struct {
	idColumn string
	serialID bool
	columns  []string
}

func (t tableSpec) allColumns() []string {
	return append([]string{t.idColumn}, t.columns...)
}

var tables = map[string]tableSpec{
	"users": {
		idColumn: "uuid",
		columns:  []string{"name", "password_hash", "admin"},
	},
	"timesheet_entries": {
		idColumn: "id",
		serialID: true,
		columns:  []string{"start", "end", "breaks", "morning", "afternoon"},
	},
}

func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

// InitSchema creates the collection tables and unique indexes if they do
// not exist yet.
func (s *PostgresStore) InitSchema(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS users (
			uuid TEXT PRIMARY KEY,
			name TEXT NOT NULL UNIQUE,
			password_hash TEXT NOT NULL,
			admin BOOLEAN NOT NULL DEFAULT FALSE
		);`,
		`CREATE TABLE IF NOT EXISTS timesheet_entries (
			id BIGSERIAL PRIMARY KEY,
			"start" TEXT NOT NULL,
			"end" TEXT NOT NULL,
			breaks BIGINT NOT NULL DEFAULT 0,
			morning TEXT NOT NULL DEFAULT '',
			afternoon TEXT NOT NULL DEFAULT ''
		);`,
	}
	for _, stmt := range statements {
		if _, err := s.db.Exec(ctx, stmt); err != nil {
			return backendError("init schema", err)
		}
	}
	return nil
}

func (s *PostgresStore) FindOne(ctx context.Context, collection string, filter Filter) (_ Document, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "store.postgres.findOne")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("collection", collection))

	spec, err := tableFor(collection)
	if err != nil {
		return nil, err
	}

	where, args, err := whereClause(spec, filter)
	if errors.Is(err, errNoMatch) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`SELECT %s FROM %s%s LIMIT 1;`, selectList(spec), pgx.Identifier{collection}.Sanitize(), where)
	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, backendError(fmt.Sprintf("find one in %q", collection), err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, backendError(fmt.Sprintf("find one in %q", collection), err)
		}
		return nil, ErrNotFound
	}

	doc, err := rowToDocument(spec, rows)
	if err != nil {
		return nil, err
	}
	return doc, nil
}

func (s *PostgresStore) FindMany(ctx context.Context, collection string, filter Filter) (_ Cursor, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "store.postgres.findMany")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("collection", collection))

	spec, err := tableFor(collection)
	if err != nil {
		return nil, err
	}

	where, args, err := whereClause(spec, filter)
	if errors.Is(err, errNoMatch) {
		return &memCursor{}, nil
	}
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf(
		`SELECT %s FROM %s%s ORDER BY %s;`,
		selectList(spec), pgx.Identifier{collection}.Sanitize(), where, pgx.Identifier{spec.idColumn}.Sanitize(),
	)
	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, backendError(fmt.Sprintf("find in %q", collection), err)
	}

	return &pgCursor{spec: spec, rows: rows}, nil
}

func (s *PostgresStore) InsertOne(ctx context.Context, collection string, doc Document) (_ string, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "store.postgres.insertOne")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("collection", collection))

	spec, err := tableFor(collection)
	if err != nil {
		return "", err
	}

	columns, args, err := insertColumns(spec, doc)
	if err != nil {
		return "", err
	}

	placeholders := make([]string, len(args))
	for i := range args {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
	}

	query := fmt.Sprintf(
		`INSERT INTO %s (%s) VALUES (%s) RETURNING %s::text;`,
		pgx.Identifier{collection}.Sanitize(),
		joinSanitized(columns),
		strings.Join(placeholders, ", "),
		pgx.Identifier{spec.idColumn}.Sanitize(),
	)

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return "", insertError(collection, err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return "", insertError(collection, err)
		}
		return "", backendError(fmt.Sprintf("insert into %q", collection), fmt.Errorf("no id returned"))
	}

	var id string
	if err := rows.Scan(&id); err != nil {
		return "", backendError(fmt.Sprintf("insert into %q", collection), err)
	}
	return id, nil
}

func (s *PostgresStore) InsertMany(ctx context.Context, collection string, docs []Document) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "store.postgres.insertMany")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(
		attribute.String("collection", collection),
		attribute.Int("count", len(docs)),
	)

	for _, doc := range docs {
		if _, err := s.InsertOne(ctx, collection, doc); err != nil {
			return err
		}
	}
	return nil
}

func (s *PostgresStore) DeleteOne(ctx context.Context, collection string, filter Filter) (_ int64, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "store.postgres.deleteOne")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("collection", collection))

	spec, err := tableFor(collection)
	if err != nil {
		return 0, err
	}

	where, args, err := whereClause(spec, filter)
	if errors.Is(err, errNoMatch) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}

	table := pgx.Identifier{collection}.Sanitize()
	// ctid subselect caps the delete at a single row
	query := fmt.Sprintf(
		`DELETE FROM %s WHERE ctid IN (SELECT ctid FROM %s%s LIMIT 1);`,
		table, table, where,
	)
	tag, err := s.db.Exec(ctx, query, args...)
	if err != nil {
		return 0, backendError(fmt.Sprintf("delete from %q", collection), err)
	}
	return tag.RowsAffected(), nil
}

func (s *PostgresStore) Close(context.Context) error {
	s.db.Close()
	return nil
}

type pgCursor struct {
	spec     tableSpec
	rows     pgx.Rows
	current  Document
	iterErr  error
	finished bool
}

func (c *pgCursor) Next(context.Context) bool {
	if c.iterErr != nil || c.finished {
		return false
	}
	if !c.rows.Next() {
		c.finished = true
		if err := c.rows.Err(); err != nil {
			c.iterErr = backendError("iterate rows", err)
		}
		return false
	}

	doc, err := rowToDocument(c.spec, c.rows)
	if err != nil {
		c.iterErr = err
		return false
	}
	c.current = doc
	return true
}

func (c *pgCursor) Document() Document {
	return c.current
}

func (c *pgCursor) Err() error {
	return c.iterErr
}

func (c *pgCursor) Close(context.Context) error {
	c.rows.Close()
	return nil
}

func tableFor(collection string) (tableSpec, error) {
	spec, ok := tables[collection]
	if !ok {
		return tableSpec{}, fmt.Errorf("unknown collection %q", collection)
	}
	return spec, nil
}

func insertError(collection string, err error) error {
	if isUniqueViolation(err) {
		return fmt.Errorf("insert into %q: %w", collection, ErrDuplicate)
	}
	return backendError(fmt.Sprintf("insert into %q", collection), err)
}

// isUniqueViolation matches SQLSTATE 23505, a violated unique constraint.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// insertColumns picks the document fields that map to table columns. The
// id column is included only when the document carries one, otherwise a
// serial id is left to the database.
func insertColumns(spec tableSpec, doc Document) ([]string, []any, error) {
	var columns []string
	var args []any

	if idValue, ok := doc[spec.idColumn]; ok {
		if id, isStr := idValue.(string); !isStr || id != "" {
			value, err := idArg(spec, idValue)
			if errors.Is(err, errNoMatch) {
				// inserting with an unusable id is a caller bug, not a miss
				return nil, nil, &FieldError{Field: spec.idColumn, Reason: "is not a numeric id"}
			}
			if err != nil {
				return nil, nil, err
			}
			columns = append(columns, spec.idColumn)
			args = append(args, value)
		}
	}

	for _, col := range spec.columns {
		value, ok := doc[col]
		if !ok {
			return nil, nil, &FieldError{Field: col, Reason: "is missing"}
		}
		columns = append(columns, col)
		args = append(args, value)
	}
	return columns, args, nil
}

func whereClause(spec tableSpec, filter Filter) (string, []any, error) {
	if len(filter) == 0 {
		return "", nil, nil
	}

	known := map[string]bool{spec.idColumn: true}
	for _, col := range spec.columns {
		known[col] = true
	}

	clause := " WHERE "
	var args []any
	first := true
	for field, value := range filter {
		if !known[field] {
			return "", nil, fmt.Errorf("unknown field %q in filter", field)
		}
		if field == spec.idColumn {
			converted, err := idArg(spec, value)
			if err != nil {
				return "", nil, err
			}
			value = converted
		}
		if !first {
			clause += " AND "
		}
		args = append(args, value)
		clause += fmt.Sprintf("%s = $%d", pgx.Identifier{field}.Sanitize(), len(args))
		first = false
	}
	return clause, args, nil
}

// errNoMatch marks a filter that can never match a row, e.g. a
// non-numeric id against a serial id column. Callers translate it into
// their empty result instead of surfacing it.
var errNoMatch = errors.New("filter matches no rows")

// idArg converts a portable string id into the column's native type.
func idArg(spec tableSpec, value any) (any, error) {
	if !spec.serialID {
		return value, nil
	}
	s, ok := value.(string)
	if !ok {
		return value, nil
	}
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return nil, errNoMatch
	}
	return id, nil
}

func rowToDocument(spec tableSpec, rows pgx.Rows) (Document, error) {
	values, err := rows.Values()
	if err != nil {
		return nil, backendError("read row values", err)
	}

	columns := spec.allColumns()
	if len(values) != len(columns) {
		return nil, fmt.Errorf("row has %d values, expected %d", len(values), len(columns))
	}

	doc := make(Document, len(columns))
	for i, col := range columns {
		value := values[i]
		if col == spec.idColumn && spec.serialID {
			if id, ok := asInt64(value); ok {
				doc[col] = strconv.FormatInt(id, 10)
				continue
			}
		}
		doc[col] = value
	}
	return doc, nil
}

func selectList(spec tableSpec) string {
	return joinSanitized(spec.allColumns())
}

func joinSanitized(columns []string) string {
	sanitized := make([]string, len(columns))
	for i, col := range columns {
		sanitized[i] = pgx.Identifier{col}.Sanitize()
	}
	return strings.Join(sanitized, ", ")
}
