package times

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/michaelsproul/website/internal/store"
)

func testService() *Service {
	return NewService(store.NewMemStore())
}

func TestService_SaveAssignsID(t *testing.T) {
	ctx := context.Background()
	svc := testService()

	saved, err := svc.Save(ctx, randomEntry())
	require.NoError(t, err)
	assert.NotEmpty(t, saved.ID)

	second, err := svc.Save(ctx, randomEntry())
	require.NoError(t, err)
	assert.NotEqual(t, saved.ID, second.ID)
}

func TestService_Save_RejectsInvalid(t *testing.T) {
	ctx := context.Background()
	svc := testService()

	backwards := randomEntry()
	backwards.Start, backwards.End = backwards.End, backwards.Start
	_, err := svc.Save(ctx, backwards)
	assert.ErrorIs(t, err, ErrInvalidEntry)

	negative := randomEntry()
	negative.Breaks = -1
	_, err = svc.Save(ctx, negative)
	assert.ErrorIs(t, err, ErrInvalidEntry)

	entries, err := svc.Entries(ctx)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestService_SummaryBlanksNotes(t *testing.T) {
	ctx := context.Background()
	svc := testService()

	entry := randomEntry()
	entry.Morning = "reviewed the deployment scripts"
	entry.Afternoon = "paired on the importer"
	saved, err := svc.Save(ctx, entry)
	require.NoError(t, err)

	summary, err := svc.Summary(ctx)
	require.NoError(t, err)
	require.Len(t, summary, 1)
	assert.Equal(t, saved.ID, summary[0].ID)
	assert.Empty(t, summary[0].Morning)
	assert.Empty(t, summary[0].Afternoon)
	assert.Equal(t, entry.Breaks, summary[0].Breaks)

	// the full listing keeps the notes
	full, err := svc.Entries(ctx)
	require.NoError(t, err)
	require.Len(t, full, 1)
	assert.Equal(t, "reviewed the deployment scripts", full[0].Morning)
	assert.Equal(t, "paired on the importer", full[0].Afternoon)
}

func TestService_Delete(t *testing.T) {
	ctx := context.Background()
	svc := testService()

	saved, err := svc.Save(ctx, randomEntry())
	require.NoError(t, err)

	deleted, err := svc.Delete(ctx, saved.ID)
	require.NoError(t, err)
	assert.True(t, deleted)

	// deleting the same id again is a clean no-op
	deleted, err = svc.Delete(ctx, saved.ID)
	require.NoError(t, err)
	assert.False(t, deleted)

	// so is an id no backend could ever have assigned
	deleted, err = svc.Delete(ctx, "abc")
	require.NoError(t, err)
	assert.False(t, deleted)

	entries, err := svc.Entries(ctx)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestService_EntriesOrderIndependent(t *testing.T) {
	ctx := context.Background()
	svc := testService()

	base := time.Date(2026, 8, 3, 9, 0, 0, 0, time.UTC)
	for day := 0; day < 5; day++ {
		entry := Entry{
			Start:  base.AddDate(0, 0, day),
			End:    base.AddDate(0, 0, day).Add(8 * time.Hour),
			Breaks: 30,
		}
		_, err := svc.Save(ctx, entry)
		require.NoError(t, err)
	}

	entries, err := svc.Entries(ctx)
	require.NoError(t, err)
	assert.Len(t, entries, 5)

	seen := make(map[string]bool, len(entries))
	for _, e := range entries {
		assert.False(t, seen[e.ID])
		seen[e.ID] = true
	}
}
