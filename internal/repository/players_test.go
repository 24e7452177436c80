//go:build integration

package repository

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nbastats/ingestion/internal/models"
)

func TestPlayerRepository_UpsertBatch(t *testing.T) {
	db, ctx := setupTestDB(t)
	defer teardownTestDB(t, db)

	rows := []models.PlayerIndexRow{
		{PersonID: 2544, FirstName: "LeBron", LastName: "James", Slug: "lebron-james", TeamID: intPtr(1610612747), Position: strPtr("F"), Points: floatPtr(24.4)},
		{PersonID: 201939, FirstName: "Stephen", LastName: "Curry", Slug: "stephen-curry", Position: strPtr("G")},
	}

	ids, err := db.Players.UpsertBatch(ctx, rows)
	require.NoError(t, err, "Should upsert players")
	assert.Equal(t, []int{2544, 201939}, ids, "Should return ids in input order")

	// Same batch again leaves exactly the same rows
	_, err = db.Players.UpsertBatch(ctx, rows)
	require.NoError(t, err, "Repeat upsert should succeed")

	count, err := db.Players.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, count, "Upsert should be idempotent")

	lebron, err := db.Players.GetByID(ctx, 2544)
	require.NoError(t, err)
	assert.Equal(t, "James", lebron.LastName)
	assert.True(t, lebron.TeamID.Valid)
	assert.InDelta(t, 24.4, lebron.Points.Float64, 0.0001)
}

func TestPlayerRepository_UpsertReplacesNulls(t *testing.T) {
	db, ctx := setupTestDB(t)
	defer teardownTestDB(t, db)

	seedPlayers(t, db, ctx, models.PlayerIndexRow{
		PersonID: 1, FirstName: "Jane", LastName: "Doe", Slug: "jane-doe", TeamID: intPtr(10), Position: strPtr("C"),
	})
	seedPlayers(t, db, ctx, models.PlayerIndexRow{
		PersonID: 1, FirstName: "Jane", LastName: "Doe", Slug: "jane-doe",
	})

	player, err := db.Players.GetByID(ctx, 1)
	require.NoError(t, err)
	assert.False(t, player.TeamID.Valid, "Team should be cleared by the replacing row")
	assert.False(t, player.Position.Valid, "Position should be cleared by the replacing row")
}

func TestPlayerRepository_UpsertEmptyBatch(t *testing.T) {
	db, ctx := setupTestDB(t)
	defer teardownTestDB(t, db)

	ids, err := db.Players.UpsertBatch(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestPlayerRepository_GetByIDNotFound(t *testing.T) {
	db, ctx := setupTestDB(t)
	defer teardownTestDB(t, db)

	_, err := db.Players.GetByID(ctx, 999)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPlayerRepository_Search(t *testing.T) {
	db, ctx := setupTestDB(t)
	defer teardownTestDB(t, db)

	seedPlayers(t, db, ctx,
		models.PlayerIndexRow{PersonID: 1, FirstName: "Anthony", LastName: "Davis", Slug: "anthony-davis"},
		models.PlayerIndexRow{PersonID: 2, FirstName: "Anthony", LastName: "Edwards", Slug: "anthony-edwards"},
		models.PlayerIndexRow{PersonID: 3, FirstName: "Stephen", LastName: "Curry", Slug: "stephen-curry"},
	)

	page, err := db.Players.Search(ctx, "anthony", 1, 10)
	require.NoError(t, err)
	assert.Equal(t, 2, page.Total)
	require.Len(t, page.Players, 2)
	assert.Equal(t, "Davis", page.Players[0].LastName, "Results should be ordered by last name")

	page, err = db.Players.Search(ctx, "anthony  EDW", 1, 10)
	require.NoError(t, err)
	assert.Equal(t, 1, page.Total, "Every term must match")

	// Out of range pages are clamped
	page, err = db.Players.Search(ctx, "", 9, 2)
	require.NoError(t, err)
	assert.Equal(t, 3, page.Total)
	assert.Equal(t, 2, page.TotalPages)
	assert.Equal(t, 2, page.Page)
	assert.Len(t, page.Players, 1)

	page, err = db.Players.Search(ctx, "nobody", 0, 10)
	require.NoError(t, err)
	assert.Equal(t, 0, page.Total)
	assert.Equal(t, 1, page.TotalPages, "Empty result still has one page")
	assert.Equal(t, 1, page.Page)
	assert.Empty(t, page.Players)
}
