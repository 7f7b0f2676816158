package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"trade-journal/internal/database"
)

func (s *Server) handleAdminListUsers(c *gin.Context) {
	users, err := s.repo.ListUsers(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	if users == nil {
		users = []*database.User{}
	}
	c.JSON(http.StatusOK, gin.H{"users": users})
}

func (s *Server) handleAdminGetSettings(c *gin.Context) {
	settings, err := s.settings.GetAll(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	// SMTP credentials are write-only through this surface
	if _, ok := settings[database.SettingSMTPPassword]; ok {
		settings[database.SettingSMTPPassword] = "********"
	}
	c.JSON(http.StatusOK, gin.H{"settings": settings})
}

type putSettingsRequest struct {
	Settings map[string]string `json:"settings" binding:"required,min=1"`
}

func (s *Server) handleAdminPutSettings(c *gin.Context) {
	var req putSettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err.Error())
		return
	}

	for key, value := range req.Settings {
		if err := s.settings.Set(c.Request.Context(), key, value); err != nil {
			respondError(c, err)
			return
		}
	}
	s.logger.Info("Admin settings updated", "count", len(req.Settings))
	c.JSON(http.StatusOK, gin.H{"message": "settings updated"})
}

func (s *Server) handleAdminDeleteSetting(c *gin.Context) {
	if err := s.settings.Delete(c.Request.Context(), c.Param("key")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "setting deleted"})
}

func (s *Server) handleAdminPendingOrders(c *gin.Context) {
	orders, err := s.billing.ListPendingOrders(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	if orders == nil {
		orders = []*database.PaymentOrder{}
	}
	c.JSON(http.StatusOK, gin.H{"orders": orders})
}

func (s *Server) handleAdminConfirmOrder(c *gin.Context) {
	order, err := s.billing.ConfirmOrder(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}
