package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"trade-journal/internal/quote"
)

// priceResponse is the wire form of a quote. Prices are rounded through
// decimal arithmetic so float artifacts never reach the client.
type priceResponse struct {
	StockCode string    `json:"stock_code"`
	Price     float64   `json:"price"`
	Source    string    `json:"source"`
	FetchedAt time.Time `json:"fetched_at"`
}

func toPriceResponse(q quote.Quote) priceResponse {
	price, _ := decimal.NewFromFloat(q.Price).Round(4).Float64()
	return priceResponse{
		StockCode: q.Code,
		Price:     price,
		Source:    q.Source,
		FetchedAt: q.FetchedAt,
	}
}

func (s *Server) handleGetPrice(c *gin.Context) {
	code := c.Param("code")
	if code == "" {
		respondBadRequest(c, "stock code is required")
		return
	}
	force := c.Query("force_refresh") == "true"

	q := s.stockCache.Get(c.Request.Context(), code, force)
	c.JSON(http.StatusOK, toPriceResponse(q))
}

type batchPricesRequest struct {
	Codes []string `json:"codes" binding:"required,min=1,max=100"`
}

// handleBatchPrices resolves many codes at once; results come back in the
// request order
func (s *Server) handleBatchPrices(c *gin.Context) {
	var req batchPricesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err.Error())
		return
	}
	force := c.Query("force_refresh") == "true"

	quotes := s.stockCache.Batch(c.Request.Context(), req.Codes, force)
	prices := make([]priceResponse, len(quotes))
	for i, q := range quotes {
		prices[i] = toPriceResponse(q)
	}
	c.JSON(http.StatusOK, prices)
}
