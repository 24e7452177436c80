package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

type lineupHandler struct {
	svc LineupService
}

type createLineupRequest struct {
	Name string `json:"name" binding:"max=128"`
}

type addPlayerRequest struct {
	PlayerID int `json:"player_id" binding:"required,gt=0"`
}

type updatePositionsRequest struct {
	Positions []string `json:"positions" binding:"max=6,dive,max=8"`
}

// GET /api/lineups
func (h *lineupHandler) List(c *gin.Context) {
	details, err := h.svc.Compare(c.Request.Context())
	if err != nil {
		failure(c, err)
		return
	}
	successWithMeta(c, http.StatusOK, details, &Meta{Total: len(details)})
}

// POST /api/lineups
func (h *lineupHandler) Create(c *gin.Context) {
	var req createLineupRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			failure(c, badRequest(err.Error()))
			return
		}
	}

	l, err := h.svc.Create(c.Request.Context(), req.Name)
	if err != nil {
		failure(c, err)
		return
	}
	success(c, http.StatusCreated, l)
}

// GET /api/lineups/:id
func (h *lineupHandler) Get(c *gin.Context) {
	id, ok := int64Param(c, "id")
	if !ok {
		return
	}

	detail, err := h.svc.Detail(c.Request.Context(), id)
	if err != nil {
		failure(c, err)
		return
	}
	success(c, http.StatusOK, detail)
}

// POST /api/lineups/:id/players
func (h *lineupHandler) AddPlayer(c *gin.Context) {
	id, ok := int64Param(c, "id")
	if !ok {
		return
	}

	var req addPlayerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		failure(c, badRequest(err.Error()))
		return
	}

	if err := h.svc.AddPlayer(c.Request.Context(), id, req.PlayerID); err != nil {
		failure(c, err)
		return
	}

	detail, err := h.svc.Detail(c.Request.Context(), id)
	if err != nil {
		failure(c, err)
		return
	}
	success(c, http.StatusCreated, detail)
}

// DELETE /api/lineups/:id/players/:playerId
func (h *lineupHandler) RemovePlayer(c *gin.Context) {
	id, ok := int64Param(c, "id")
	if !ok {
		return
	}
	playerID, ok := int64Param(c, "playerId")
	if !ok {
		return
	}

	if err := h.svc.RemovePlayer(c.Request.Context(), id, int(playerID)); err != nil {
		failure(c, err)
		return
	}
	success(c, http.StatusOK, gin.H{"removed": playerID})
}

// PUT /api/lineups/:id/players/:lineupPlayerId/positions
func (h *lineupHandler) UpdatePositions(c *gin.Context) {
	id, ok := int64Param(c, "id")
	if !ok {
		return
	}
	memberID, ok := int64Param(c, "lineupPlayerId")
	if !ok {
		return
	}

	var req updatePositionsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		failure(c, badRequest(err.Error()))
		return
	}

	positions, err := h.svc.UpdatePositions(c.Request.Context(), id, memberID, req.Positions)
	if err != nil {
		failure(c, err)
		return
	}
	success(c, http.StatusOK, gin.H{"lineupPlayerId": memberID, "positions": positions})
}

func int64Param(c *gin.Context, name string) (int64, bool) {
	v, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || v <= 0 {
		failure(c, badRequest(name+" must be a positive integer"))
		return 0, false
	}
	return v, true
}
