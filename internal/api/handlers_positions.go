package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"trade-journal/internal/auth"
	"trade-journal/internal/database"
	"trade-journal/internal/events"
	"trade-journal/internal/ledger"
)

func (s *Server) handleListPositions(c *gin.Context) {
	strategyID, err := strategyIDFrom(c)
	if err != nil {
		respondBadRequest(c, err.Error())
		return
	}

	positions, err := s.ledger.GetPositions(c.Request.Context(), auth.GetUserID(c), strategyID)
	if err != nil {
		respondError(c, err)
		return
	}
	if positions == nil {
		positions = []*ledger.Position{}
	}
	c.JSON(http.StatusOK, positions)
}

// handleUpdatePosition adjusts stop and target settings on an open lot
func (s *Server) handleUpdatePosition(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		respondBadRequest(c, err.Error())
		return
	}
	var req ledger.UpdatePositionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err.Error())
		return
	}

	trade, err := s.ledger.UpdatePosition(c.Request.Context(), auth.GetUserID(c), id, &req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, trade)
}

func (s *Server) handleTakeProfit(c *gin.Context) {
	s.closePosition(c, database.ResultTakeProfit)
}

func (s *Server) handleStopLoss(c *gin.Context) {
	s.closePosition(c, database.ResultStopLoss)
}

// handleForexClose is the forex surface's close endpoint; forex lots have no
// separate stop and target buttons so every close records as manual
func (s *Server) handleForexClose(c *gin.Context) {
	s.closePosition(c, database.ResultManual)
}

func (s *Server) closePosition(c *gin.Context, orderResult string) {
	id, err := pathID(c)
	if err != nil {
		respondBadRequest(c, err.Error())
		return
	}
	var req ledger.ClosePositionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err.Error())
		return
	}

	userID := auth.GetUserID(c)
	trade, err := s.ledger.ClosePosition(c.Request.Context(), userID, id, &req, orderResult)
	if err != nil {
		respondError(c, err)
		return
	}

	s.bus.Publish(events.Event{
		Type:   events.EventTradeClosed,
		UserID: userID,
		Data: map[string]interface{}{
			"trade_id":     trade.ID,
			"stock_code":   trade.StockCode,
			"order_result": orderResult,
		},
	})
	s.bus.PublishCapitalUpdated(userID, trade.StrategyID)
	c.JSON(http.StatusOK, trade)
}
