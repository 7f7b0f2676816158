package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"trade-journal/internal/auth"
	"trade-journal/internal/database"
	"trade-journal/internal/ledger"
)

func (s *Server) handleGetCapital(c *gin.Context) {
	strategyID, err := strategyIDFrom(c)
	if err != nil {
		respondBadRequest(c, err.Error())
		return
	}

	snapshot, err := s.ledger.GetCapital(c.Request.Context(), auth.GetUserID(c), strategyID)
	if errors.Is(err, ledger.ErrAnchorNotSet) {
		c.JSON(http.StatusOK, gin.H{"initial_capital_set": false})
		return
	}
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"initial_capital_set": true,
		"total_assets":        snapshot.TotalAssets,
		"available_funds":     snapshot.AvailableFunds,
		"position_value":      snapshot.PositionValue,
	})
}

func (s *Server) handleSetCapital(c *gin.Context) {
	strategyID, err := strategyIDFrom(c)
	if err != nil {
		respondBadRequest(c, err.Error())
		return
	}

	var req ledger.SetAnchorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err.Error())
		return
	}

	userID := auth.GetUserID(c)
	anchor, err := s.ledger.SetAnchor(c.Request.Context(), userID, strategyID, &req)
	if err != nil {
		respondError(c, err)
		return
	}

	s.bus.PublishCapitalUpdated(userID, strategyID)
	c.JSON(http.StatusOK, anchor)
}

func (s *Server) handleCapitalHistory(c *gin.Context) {
	strategyID, err := strategyIDFrom(c)
	if err != nil {
		respondBadRequest(c, err.Error())
		return
	}

	history, err := s.ledger.GetCapitalHistory(c.Request.Context(), auth.GetUserID(c), strategyID,
		c.Query("start_date"), c.Query("end_date"))
	if err != nil {
		respondError(c, err)
		return
	}
	if history == nil {
		history = []*database.CapitalPoint{}
	}
	c.JSON(http.StatusOK, history)
}

// handleCapitalHistories returns one daily series per strategy of the caller
// in the requested market, keyed by strategy ID
func (s *Server) handleCapitalHistories(c *gin.Context) {
	userID := auth.GetUserID(c)
	strategies, err := s.repo.ListStrategies(c.Request.Context(), userID, marketFrom(c))
	if err != nil {
		respondError(c, err)
		return
	}

	type strategyRef struct {
		ID   int64  `json:"id"`
		Name string `json:"name"`
	}

	refs := make([]strategyRef, 0, len(strategies))
	series := make(map[int64][]*database.CapitalPoint, len(strategies))
	for _, strategy := range strategies {
		history, err := s.ledger.GetCapitalHistory(c.Request.Context(), userID, strategy.ID,
			c.Query("start_date"), c.Query("end_date"))
		if err != nil {
			respondError(c, err)
			return
		}
		if history == nil {
			history = []*database.CapitalPoint{}
		}
		refs = append(refs, strategyRef{ID: strategy.ID, Name: strategy.Name})
		series[strategy.ID] = history
	}
	c.JSON(http.StatusOK, gin.H{
		"strategies":            refs,
		"series_by_strategy_id": series,
	})
}
