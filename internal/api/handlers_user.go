package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"trade-journal/internal/auth"
)

func (s *Server) handleProfile(c *gin.Context) {
	user, err := s.authService.GetUser(c.Request.Context(), auth.GetUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

// handleEmailAlerts toggles the account-wide email alert preference via the
// enabled query parameter
func (s *Server) handleEmailAlerts(c *gin.Context) {
	enabled := c.Query("enabled")
	if enabled != "true" && enabled != "false" {
		respondBadRequest(c, "enabled must be true or false")
		return
	}

	user, err := s.authService.UpdateEmailAlerts(c.Request.Context(), auth.GetUserID(c), enabled == "true")
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

// handleTestEmail sends a test message to the caller's address using the
// active SMTP configuration
func (s *Server) handleTestEmail(c *gin.Context) {
	user, err := s.repo.GetUserByID(c.Request.Context(), auth.GetUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	if !s.email.IsSMTPConfigured(c.Request.Context()) {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error":   "SMTP_NOT_CONFIGURED",
			"message": "no SMTP server is configured",
		})
		return
	}

	if err := s.email.SendTestEmail(c.Request.Context(), user.Email); err != nil {
		s.logger.Error("Test email failed", "user_id", user.ID, "error", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "SMTP_SEND_FAILED", "message": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "test email sent", "to": user.Email})
}

func (s *Server) handleBillingStatus(c *gin.Context) {
	status, err := s.billing.GetStatus(c.Request.Context(), auth.GetUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, status)
}
