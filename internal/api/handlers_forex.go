package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"trade-journal/internal/auth"
)

// The forex surface mirrors the stock ledger endpoints over forex-market
// strategies. Trades, positions, and capital history share the same
// handlers; only the account naming and the quote chain differ.

func (s *Server) handleForexAccount(c *gin.Context) {
	s.handleGetCapital(c)
}

func (s *Server) handleForexSetInitial(c *gin.Context) {
	s.handleSetCapital(c)
}

func (s *Server) handleForexListTrades(c *gin.Context) {
	s.handleListTrades(c)
}

// handleForexReset wipes the account's trade log; the history collapses back
// to a flat line at the anchor
func (s *Server) handleForexReset(c *gin.Context) {
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
	c.JSON(http.StatusOK, gin.H{"message": "account reset", "deleted_count": deleted})
}

type forexQuotesRequest struct {
	Symbols []string `json:"symbols" binding:"required,min=1,max=50"`
}

// handleForexQuotes returns rates for currency pair symbols, e.g. USDCNY
func (s *Server) handleForexQuotes(c *gin.Context) {
	symbols := c.QueryArray("symbol")
	if len(symbols) == 0 {
		var req forexQuotesRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondBadRequest(c, "symbol query parameters or a symbols body is required")
			return
		}
		symbols = req.Symbols
	}
	force := c.Query("force_refresh") == "true"

	quotes := s.forexCache.Batch(c.Request.Context(), symbols, force)
	prices := make([]priceResponse, len(quotes))
	for i, q := range quotes {
		prices[i] = toPriceResponse(q)
	}
	c.JSON(http.StatusOK, gin.H{"quotes": prices})
}
