package store

import (
	"time"
)

// Document is the untyped key/value shape a record takes in the backing
// store. Field values are restricted to string, bool and int64, with
// timestamps as RFC3339 strings, so that every backend can round-trip a
// document without loss.
type Document map[string]any

// Filter matches documents whose fields equal the given values.
type Filter map[string]any

// Codec converts between typed records and documents. Encode is total:
// every valid record has a document form. Decode handles untrusted input
// and must reject a malformed document with an error naming the field,
// never guess.
type Codec[T any] interface {
	Encode(T) Document
	Decode(Document) (T, error)
}

func (d Document) Str(field string) (string, error) {
	v, ok := d[field]
	if !ok {
		return "", &FieldError{Field: field, Reason: "is missing"}
	}
	s, ok := v.(string)
	if !ok {
		return "", &FieldError{Field: field, Reason: "is not a string"}
	}
	return s, nil
}

func (d Document) Bool(field string) (bool, error) {
	v, ok := d[field]
	if !ok {
		return false, &FieldError{Field: field, Reason: "is missing"}
	}
	b, ok := v.(bool)
	if !ok {
		return false, &FieldError{Field: field, Reason: "is not a boolean"}
	}
	return b, nil
}

// Int accepts every numeric representation the JSON and BSON decoders
// produce (float64, int32, int64) in addition to plain int.
func (d Document) Int(field string) (int64, error) {
	v, ok := d[field]
	if !ok {
		return 0, &FieldError{Field: field, Reason: "is missing"}
	}
	switch n := v.(type) {
	case int:
		return int64(n), nil
	case int32:
		return int64(n), nil
	case int64:
		return n, nil
	case float64:
		return int64(n), nil
	default:
		return 0, &FieldError{Field: field, Reason: "is not a number"}
	}
}

// Time parses an RFC3339 timestamp field.
func (d Document) Time(field string) (time.Time, error) {
	s, err := d.Str(field)
	if err != nil {
		return time.Time{}, err
	}
	ts, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, &FieldError{Field: field, Reason: "is not an RFC3339 timestamp"}
	}
	return ts, nil
}
