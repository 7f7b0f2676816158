package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"trade-journal/internal/auth"
	"trade-journal/internal/database"
	"trade-journal/internal/events"
	"trade-journal/internal/ledger"
)

const (
	defaultPageSize = 50
	maxPageSize     = 200
)

func pagination(c *gin.Context) (page, pageSize int) {
	page = 1
	pageSize = defaultPageSize
	if raw := c.Query("page"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v > 0 {
			page = v
		}
	}
	if raw := c.Query("page_size"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v > 0 {
			pageSize = v
		}
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	return page, pageSize
}

func (s *Server) handleListTrades(c *gin.Context) {
	strategyID, err := strategyIDFrom(c)
	if err != nil {
		respondBadRequest(c, err.Error())
		return
	}
	page, pageSize := pagination(c)

	trades, total, err := s.repo.ListTrades(c.Request.Context(), auth.GetUserID(c), strategyID,
		pageSize, (page-1)*pageSize)
	if err != nil {
		respondError(c, err)
		return
	}
	if trades == nil {
		trades = []*database.Trade{}
	}
	totalPages := (total + pageSize - 1) / pageSize
	c.JSON(http.StatusOK, gin.H{
		"items":       trades,
		"total":       total,
		"page":        page,
		"total_pages": totalPages,
	})
}

func (s *Server) handleTradesByDate(c *gin.Context) {
	strategyID, err := strategyIDFrom(c)
	if err != nil {
		respondBadRequest(c, err.Error())
		return
	}
	dayStart, dayEnd, err := s.ledger.DayBounds(c.Param("date"))
	if err != nil {
		respondError(c, err)
		return
	}

	trades, err := s.repo.ListTradesByDate(c.Request.Context(), auth.GetUserID(c), strategyID, dayStart, dayEnd)
	if err != nil {
		respondError(c, err)
		return
	}
	if trades == nil {
		trades = []*database.Trade{}
	}
	c.JSON(http.StatusOK, trades)
}

func (s *Server) handleTradeDates(c *gin.Context) {
	strategyID, err := strategyIDFrom(c)
	if err != nil {
		respondBadRequest(c, err.Error())
		return
	}

	dates, err := s.ledger.TradeDates(c.Request.Context(), auth.GetUserID(c), strategyID)
	if err != nil {
		respondError(c, err)
		return
	}
	if dates == nil {
		dates = []string{}
	}
	c.JSON(http.StatusOK, dates)
}

func (s *Server) handleStockCodes(c *gin.Context) {
	strategyID, err := strategyIDFrom(c)
	if err != nil {
		respondBadRequest(c, err.Error())
		return
	}

	codes, err := s.repo.ListStockCodes(c.Request.Context(), auth.GetUserID(c), strategyID)
	if err != nil {
		respondError(c, err)
		return
	}
	if codes == nil {
		codes = []database.StockCode{}
	}
	c.JSON(http.StatusOK, codes)
}

// handleTradesByCode returns every trade of one instrument together with its
// summary statistics
func (s *Server) handleTradesByCode(c *gin.Context) {
	strategyID, err := strategyIDFrom(c)
	if err != nil {
		respondBadRequest(c, err.Error())
		return
	}

	trades, err := s.repo.ListTradesByCode(c.Request.Context(), auth.GetUserID(c), strategyID, c.Param("code"))
	if err != nil {
		respondError(c, err)
		return
	}
	if trades == nil {
		trades = []*database.Trade{}
	}
	c.JSON(http.StatusOK, gin.H{
		"trades":     trades,
		"statistics": s.ledger.GetStockStatistics(trades),
	})
}

func (s *Server) handleCreateTrade(c *gin.Context) {
	var req ledger.CreateTradeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err.Error())
		return
	}

	userID := auth.GetUserID(c)
	trade, err := s.ledger.CreateTrade(c.Request.Context(), userID, &req)
	if err != nil {
		respondError(c, err)
		return
	}

	s.bus.Publish(events.Event{
		Type:   events.EventTradeCreated,
		UserID: userID,
		Data:   map[string]interface{}{"trade_id": trade.ID, "stock_code": trade.StockCode},
	})
	s.bus.PublishCapitalUpdated(userID, trade.StrategyID)
	c.JSON(http.StatusCreated, trade)
}

func (s *Server) handleUpdateTrade(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		respondBadRequest(c, err.Error())
		return
	}
	var req ledger.UpdateTradeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err.Error())
		return
	}

	userID := auth.GetUserID(c)
	trade, err := s.ledger.UpdateTrade(c.Request.Context(), userID, id, &req)
	if err != nil {
		respondError(c, err)
		return
	}

	s.bus.PublishCapitalUpdated(userID, trade.StrategyID)
	c.JSON(http.StatusOK, trade)
}

func (s *Server) handleDeleteTrade(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		respondBadRequest(c, err.Error())
		return
	}

	if err := s.ledger.DeleteTrade(c.Request.Context(), auth.GetUserID(c), id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "trade deleted"})
}

func (s *Server) handleClearAllTrades(c *gin.Context) {
	strategyID, err := strategyIDFrom(c)
	if err != nil {
		respondBadRequest(c, err.Error())
		return
	}

	userID := auth.GetUserID(c)
	deleted, err := s.ledger.ClearAllTrades(c.Request.Context(), userID, strategyID)
	if err != nil {
		respondError(c, err)
		return
	}

	s.bus.PublishCapitalUpdated(userID, strategyID)
	c.JSON(http.StatusOK, gin.H{"deleted_count": deleted})
}
