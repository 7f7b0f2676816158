package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"trade-journal/internal/auth"
	"trade-journal/internal/billing"
	"trade-journal/internal/database"
)

func (s *Server) handleListOrders(c *gin.Context) {
	orders, err := s.billing.ListOrders(c.Request.Context(), auth.GetUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	if orders == nil {
		orders = []*database.PaymentOrder{}
	}
	c.JSON(http.StatusOK, gin.H{"orders": orders})
}

func (s *Server) handleCreateOrder(c *gin.Context) {
	var req billing.CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err.Error())
		return
	}

	order, err := s.billing.CreateOrder(c.Request.Context(), auth.GetUserID(c), &req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, order)
}

func (s *Server) handleCancelOrder(c *gin.Context) {
	if err := s.billing.CancelOrder(c.Request.Context(), auth.GetUserID(c), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "order cancelled"})
}
