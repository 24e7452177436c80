//go:build integration

package repository

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nbastats/ingestion/internal/models"
)

func TestLineupRepository_CreateReturnsExisting(t *testing.T) {
	db, ctx := setupTestDB(t)
	defer teardownTestDB(t, db)

	first, err := db.Lineups.Create(ctx, "  Bench mob ")
	require.NoError(t, err)
	assert.Equal(t, "Bench mob", first.Name, "Name should be trimmed")

	second, err := db.Lineups.Create(ctx, "Bench mob")
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID, "Same name should return the existing lineup")

	blank, err := db.Lineups.Create(ctx, "   ")
	require.NoError(t, err)
	assert.Equal(t, models.DefaultLineupName, blank.Name)

	lineups, err := db.Lineups.List(ctx)
	require.NoError(t, err)
	assert.Len(t, lineups, 2)
}

func TestLineupRepository_Membership(t *testing.T) {
	db, ctx := setupTestDB(t)
	defer teardownTestDB(t, db)

	seedPlayers(t, db, ctx,
		models.PlayerIndexRow{PersonID: 1, FirstName: "A", LastName: "One", Slug: "a-one", Position: strPtr("G")},
		models.PlayerIndexRow{PersonID: 2, FirstName: "B", LastName: "Two", Slug: "b-two", Position: strPtr("C")},
	)
	_, err := db.GameLogs.UpsertBatch(ctx, []models.PlayerGameLogRow{
		gameLogRow(1, "0022500001", 20),
		gameLogRow(1, "0022500002", 30),
	})
	require.NoError(t, err)

	lineup, err := db.Lineups.Create(ctx, "Starters")
	require.NoError(t, err)

	require.NoError(t, db.Lineups.AddPlayer(ctx, lineup.ID, 1))
	require.NoError(t, db.Lineups.AddPlayer(ctx, lineup.ID, 1), "Adding twice should be a no-op")
	require.NoError(t, db.Lineups.AddPlayer(ctx, lineup.ID, 2))

	entries, err := db.Lineups.ListWithStats(ctx, lineup.ID)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	first := entries[0]
	assert.Equal(t, 1, first.Player.ID)
	assert.Equal(t, int64(2), first.Averages.Games)
	assert.InDelta(t, 25.0, first.Averages.Points.Float64, 0.0001)
	assert.Nil(t, first.LineupPlayer.CustomPositions)

	second := entries[1]
	assert.Equal(t, int64(0), second.Averages.Games)
	assert.False(t, second.Averages.Points.Valid, "Player without logs has no averages")

	require.NoError(t, db.Lineups.UpdatePositions(ctx, lineup.ID, first.LineupPlayer.ID, []string{"PG", "SG"}))
	entries, err = db.Lineups.ListWithStats(ctx, lineup.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"PG", "SG"}, entries[0].LineupPlayer.CustomPositions)

	require.NoError(t, db.Lineups.UpdatePositions(ctx, lineup.ID, first.LineupPlayer.ID, nil))
	entries, err = db.Lineups.ListWithStats(ctx, lineup.ID)
	require.NoError(t, err)
	assert.Nil(t, entries[0].LineupPlayer.CustomPositions)

	err = db.Lineups.UpdatePositions(ctx, lineup.ID, 9999, []string{"C"})
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, db.Lineups.RemovePlayer(ctx, lineup.ID, 1))
	entries, err = db.Lineups.ListWithStats(ctx, lineup.ID)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, 2, entries[0].Player.ID)
}
