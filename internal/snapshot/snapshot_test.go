package snapshot

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/michaelsproul/website/internal/store"
	"github.com/michaelsproul/website/internal/times"
	"github.com/michaelsproul/website/internal/users"
)

func testStore() *store.MemStore {
	return store.NewMemStore(
		store.WithUniqueIndex(users.Collection, "name"),
	)
}

func seedStore(t *testing.T, ds store.DataStore) {
	t.Helper()
	ctx := context.Background()

	userCodec := users.Codec{}
	for _, u := range []users.User{
		{UUID: uuid.New(), Name: "michael", PasswordHash: "$2a$14$abcdef", Admin: true},
		{UUID: uuid.New(), Name: "sarah", PasswordHash: "$2a$14$ghijkl", Admin: false},
	} {
		_, err := store.InsertRecord(ctx, ds, userCodec, users.Collection, u)
		require.NoError(t, err)
	}

	start := time.Date(2026, 8, 24, 9, 0, 0, 0, time.UTC)
	entryCodec := times.Codec{}
	for day := 0; day < 3; day++ {
		entry := times.Entry{
			Start:   start.AddDate(0, 0, day),
			End:     start.AddDate(0, 0, day).Add(8 * time.Hour),
			Breaks:  45,
			Morning: "meetings",
		}
		_, err := store.InsertRecord(ctx, ds, entryCodec, times.Collection, entry)
		require.NoError(t, err)
	}
}

func TestDump_ProducesWellFormedJSON(t *testing.T) {
	ctx := context.Background()
	ds := testStore()
	seedStore(t, ds)

	var buf bytes.Buffer
	require.NoError(t, Dump(ctx, ds, &buf))

	var contents DatabaseContents
	require.NoError(t, json.Unmarshal(buf.Bytes(), &contents))
	assert.Len(t, contents.Users, 2)
	assert.Len(t, contents.TimesheetEntries, 3)

	// the dump keeps password hashes, it is a full backup
	assert.Equal(t, "$2a$14$abcdef", contents.Users[0].PasswordHash)
	assert.NotEmpty(t, contents.TimesheetEntries[0].ID)
}

func TestDump_EmptyDatabase(t *testing.T) {
	ctx := context.Background()

	var buf bytes.Buffer
	require.NoError(t, Dump(ctx, testStore(), &buf))

	var contents DatabaseContents
	require.NoError(t, json.Unmarshal(buf.Bytes(), &contents))
	assert.Empty(t, contents.Users)
	assert.Empty(t, contents.TimesheetEntries)
}

func TestDumpLoadDump_RoundTrip(t *testing.T) {
	ctx := context.Background()
	source := testStore()
	seedStore(t, source)

	var first bytes.Buffer
	require.NoError(t, Dump(ctx, source, &first))

	restored := testStore()
	require.NoError(t, Load(ctx, restored, first.Bytes()))

	var second bytes.Buffer
	require.NoError(t, Dump(ctx, restored, &second))

	assert.JSONEq(t, first.String(), second.String())
}

func TestLoad_IsAdditive(t *testing.T) {
	ctx := context.Background()
	ds := testStore()

	existing := users.User{UUID: uuid.New(), Name: "resident", PasswordHash: "h"}
	_, err := store.InsertRecord(ctx, ds, users.Codec{}, users.Collection, existing)
	require.NoError(t, err)

	incoming := DatabaseContents{
		Users: []users.User{
			{UUID: uuid.New(), Name: "newcomer", PasswordHash: "h2"},
		},
	}
	data, err := json.Marshal(incoming)
	require.NoError(t, err)
	require.NoError(t, Load(ctx, ds, data))

	contents, err := Read(ctx, ds)
	require.NoError(t, err)
	require.Len(t, contents.Users, 2)

	names := []string{contents.Users[0].Name, contents.Users[1].Name}
	assert.Contains(t, names, "resident")
	assert.Contains(t, names, "newcomer")
}

func TestLoad_DuplicateUsernameFails(t *testing.T) {
	ctx := context.Background()
	ds := testStore()
	seedStore(t, ds)

	incoming := DatabaseContents{
		Users: []users.User{
			{UUID: uuid.New(), Name: "michael", PasswordHash: "other"},
		},
	}
	data, err := json.Marshal(incoming)
	require.NoError(t, err)

	err = Load(ctx, ds, data)
	require.Error(t, err)
	assert.ErrorIs(t, err, store.ErrDuplicate)
}

func TestLoad_MalformedSnapshot(t *testing.T) {
	ctx := context.Background()

	for _, data := range [][]byte{
		[]byte("not json at all"),
		[]byte(`{"users": "should be an array"}`),
		[]byte(`[]`),
	} {
		err := Load(ctx, testStore(), data)
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrStructural)
	}
}
