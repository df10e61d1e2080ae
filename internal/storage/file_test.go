package storage

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/taylorsterlingwrites/threshold-compass/internal"
)

var t0 = time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

func newFileStore(t *testing.T, dir string) *FileStorage {
	t.Helper()
	s, err := NewFileStorage(dir, internal.NewNopLogger())
	require.NoError(t, err)
	return s
}

func TestFileStorage_DosesNewestFirst(t *testing.T) {
	s := newFileStore(t, t.TempDir())
	defer s.Close()
	ctx := context.Background()

	for i, offset := range []int{0, 48, 24} {
		require.NoError(t, s.SaveDose(ctx, &internal.DoseLog{
			ID:        string(rune('a' + i)),
			UserID:    "u1",
			Amount:    100,
			Timestamp: t0.Add(time.Duration(offset) * time.Hour),
		}))
	}
	require.NoError(t, s.SaveDose(ctx, &internal.DoseLog{ID: "other", UserID: "u2", Timestamp: t0}))

	doses, err := s.ListDoses(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, doses, 3)
	assert.Equal(t, []string{"b", "c", "a"}, []string{doses[0].ID, doses[1].ID, doses[2].ID})

	recent, err := s.ListDosesSince(ctx, "u1", t0.Add(12*time.Hour))
	require.NoError(t, err)
	assert.Len(t, recent, 2)

	empty, err := s.ListDoses(ctx, "nobody")
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)
}

func TestFileStorage_ReplaceKeepsIndexConsistent(t *testing.T) {
	s := newFileStore(t, t.TempDir())
	defer s.Close()
	ctx := context.Background()

	d := &internal.DoseLog{ID: "a", UserID: "u1", Amount: 100, Timestamp: t0}
	require.NoError(t, s.SaveDose(ctx, d))
	d.Amount = 150
	require.NoError(t, s.SaveDose(ctx, d))

	doses, err := s.ListDoses(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, doses, 1)
	assert.Equal(t, 150.0, doses[0].Amount)
}

func TestFileStorage_Batches(t *testing.T) {
	s := newFileStore(t, t.TempDir())
	defer s.Close()
	ctx := context.Background()

	require.NoError(t, s.SaveBatch(ctx, &internal.Batch{ID: "b1", UserID: "u1", Name: "Golden Teacher", CreatedAt: t0}))
	require.NoError(t, s.IncrementBatchDoses(ctx, "u1", "b1"))
	require.NoError(t, s.IncrementBatchDoses(ctx, "u1", "b1"))

	b, err := s.GetBatch(ctx, "u1", "b1")
	require.NoError(t, err)
	assert.Equal(t, 2, b.DosesLogged)

	_, err = s.GetBatch(ctx, "u2", "b1")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, s.IncrementBatchDoses(ctx, "u1", "missing"), ErrNotFound)
}

func TestFileStorage_UsersByToken(t *testing.T) {
	s := newFileStore(t, t.TempDir())
	defer s.Close()
	ctx := context.Background()

	u := internal.DefaultUser("u1")
	u.Token = "first"
	require.NoError(t, s.SaveUser(ctx, &u))
	u.Token = "second"
	require.NoError(t, s.SaveUser(ctx, &u))

	got, err := s.GetUserByToken(ctx, "second")
	require.NoError(t, err)
	assert.Equal(t, "u1", got.ID)

	_, err = s.GetUserByToken(ctx, "first")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = s.GetUser(ctx, "nobody")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFileStorage_SurvivesReopen(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()
	doseID := "d1"

	s := newFileStore(t, dir)
	require.NoError(t, s.SaveDose(ctx, &internal.DoseLog{
		ID: doseID, UserID: "u1", BatchID: "b1", Amount: 120, Timestamp: t0,
		FoodState: internal.FoodLight, EffectiveDose: 96,
		Carryover: &internal.CarryoverResult{Score: 40, Tier: internal.TierMild, EffectiveDoseMultiplier: 0.8},
		Tags:      []string{"work"},
	}))
	require.NoError(t, s.SaveCheckIn(ctx, &internal.CheckIn{
		ID: "c1", UserID: "u1", DoseID: &doseID, Timestamp: t0.Add(2 * time.Hour),
		Signals: internal.Signals{Energy: 4, Clarity: 5, Stability: 4}, BodyMap: []string{"chest"},
	}))
	require.NoError(t, s.SaveBatch(ctx, &internal.Batch{ID: "b1", UserID: "u1", DosesLogged: 1, CreatedAt: t0}))
	u := internal.DefaultUser("u1")
	u.Token = "dev-token"
	require.NoError(t, s.SaveUser(ctx, &u))
	require.NoError(t, s.Close())
	require.NoError(t, s.Close(), "close is idempotent")

	reopened := newFileStore(t, dir)
	defer reopened.Close()

	doses, err := reopened.ListDoses(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, doses, 1)
	assert.Equal(t, 96.0, doses[0].EffectiveDose)
	require.NotNil(t, doses[0].Carryover)
	assert.Equal(t, internal.TierMild, doses[0].Carryover.Tier)
	assert.True(t, doses[0].Timestamp.Equal(t0))

	checkIns, err := reopened.ListCheckIns(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, checkIns, 1)
	require.NotNil(t, checkIns[0].DoseID)
	assert.Equal(t, doseID, *checkIns[0].DoseID)

	b, err := reopened.GetBatch(ctx, "u1", "b1")
	require.NoError(t, err)
	assert.Equal(t, 1, b.DosesLogged)

	got, err := reopened.GetUserByToken(ctx, "dev-token")
	require.NoError(t, err)
	assert.Equal(t, 3, got.Sensitivity.BodyAwareness)
}
