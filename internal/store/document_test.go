package store

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDocument_Getters(t *testing.T) {
	ts := time.Date(2019, 5, 12, 9, 30, 0, 0, time.UTC)
	doc := Document{
		"name":    "michael",
		"admin":   true,
		"breaks":  int64(30),
		"start":   ts.Format(time.RFC3339),
		"garbage": []string{"nested"},
	}

	name, err := doc.Str("name")
	require.NoError(t, err)
	assert.Equal(t, "michael", name)

	admin, err := doc.Bool("admin")
	require.NoError(t, err)
	assert.True(t, admin)

	breaks, err := doc.Int("breaks")
	require.NoError(t, err)
	assert.Equal(t, int64(30), breaks)

	start, err := doc.Time("start")
	require.NoError(t, err)
	assert.True(t, ts.Equal(start))
}

func TestDocument_Time_KeepsFractionalSeconds(t *testing.T) {
	ts := time.Date(2026, 8, 24, 9, 0, 0, 123456789, time.UTC)

	got, err := Document{"start": ts.Format(time.RFC3339Nano)}.Time("start")
	require.NoError(t, err)
	assert.True(t, ts.Equal(got), "put in %v, got back %v", ts, got)
}

func TestDocument_Int_AcceptsDecoderWidths(t *testing.T) {
	for name, value := range map[string]any{
		"int":     42,
		"int32":   int32(42),
		"int64":   int64(42),
		"float64": float64(42), // encoding/json numbers
	} {
		t.Run(name, func(t *testing.T) {
			got, err := Document{"breaks": value}.Int("breaks")
			require.NoError(t, err)
			assert.Equal(t, int64(42), got)
		})
	}
}

func TestDocument_MissingAndInvalidFields(t *testing.T) {
	doc := Document{"name": 42, "start": "not-a-timestamp"}

	_, err := doc.Str("password_hash")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrConversion)
	assert.Contains(t, err.Error(), `field "password_hash" is missing`)

	_, err = doc.Str("name")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `field "name" is not a string`)

	_, err = doc.Time("start")
	require.Error(t, err)
	var fieldErr *FieldError
	require.ErrorAs(t, err, &fieldErr)
	assert.Equal(t, "start", fieldErr.Field)

	_, err = doc.Bool("admin")
	assert.ErrorIs(t, err, ErrConversion)

	_, err = doc.Int("breaks")
	assert.True(t, errors.Is(err, ErrConversion))
}
