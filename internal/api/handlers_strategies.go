package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"trade-journal/internal/auth"
	"trade-journal/internal/database"
)

type createStrategyRequest struct {
	Name   string `json:"name" binding:"required,min=1,max=100"`
	Market string `json:"market"`
}

func (s *Server) handleListStrategies(c *gin.Context) {
	strategies, err := s.repo.ListStrategies(c.Request.Context(), auth.GetUserID(c), marketFrom(c))
	if err != nil {
		respondError(c, err)
		return
	}
	if strategies == nil {
		strategies = []*database.Strategy{}
	}
	c.JSON(http.StatusOK, strategies)
}

type renameStrategyRequest struct {
	Name string `json:"name" binding:"required,min=1,max=100"`
}

func (s *Server) handleRenameStrategy(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		respondBadRequest(c, err.Error())
		return
	}
	var req renameStrategyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err.Error())
		return
	}

	if err := s.repo.RenameStrategy(c.Request.Context(), auth.GetUserID(c), id, req.Name); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "strategy renamed"})
}

func (s *Server) handleCreateStrategy(c *gin.Context) {
	var req createStrategyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err.Error())
		return
	}
	market := database.MarketStock
	if req.Market == database.MarketForex {
		market = database.MarketForex
	}

	strategy := &database.Strategy{
		UserID: auth.GetUserID(c),
		Name:   req.Name,
		Market: market,
	}
	if err := s.repo.CreateStrategy(c.Request.Context(), strategy); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, strategy)
}

// handleDeleteStrategy removes one strategy with its trades, anchor, and
// history
func (s *Server) handleDeleteStrategy(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		respondBadRequest(c, err.Error())
		return
	}

	if err := s.ledger.DeleteStrategy(c.Request.Context(), auth.GetUserID(c), id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "strategy deleted"})
}

// handleDeleteAllStrategies removes every strategy of the caller in the
// requested market
func (s *Server) handleDeleteAllStrategies(c *gin.Context) {
	userID := auth.GetUserID(c)
	strategies, err := s.repo.ListStrategies(c.Request.Context(), userID, marketFrom(c))
	if err != nil {
		respondError(c, err)
		return
	}

	deleted := 0
	for _, strategy := range strategies {
		if err := s.ledger.DeleteStrategy(c.Request.Context(), userID, strategy.ID); err != nil {
			respondError(c, err)
			return
		}
		deleted++
	}
	c.JSON(http.StatusOK, gin.H{"deleted_count": deleted})
}
