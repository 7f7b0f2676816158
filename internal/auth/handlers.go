package auth

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Handlers provides HTTP handlers for authentication
type Handlers struct {
	service *Service
}

// NewHandlers creates new auth handlers
func NewHandlers(service *Service) *Handlers {
	return &Handlers{service: service}
}

// RegisterRoutes registers auth routes on the router
func (h *Handlers) RegisterRoutes(public *gin.RouterGroup, protected *gin.RouterGroup) {
	public.POST("/auth/register", h.Register)
	public.POST("/auth/login", h.Login)

	protected.GET("/auth/me", h.Me)
	protected.POST("/auth/change-password", h.ChangePassword)
	protected.PUT("/auth/alerts", h.UpdateAlerts)
}

// Register handles POST /api/auth/register
func (h *Handlers) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "INVALID_REQUEST", "message": err.Error()})
		return
	}

	resp, err := h.service.Register(c.Request.Context(), &req)
	if err != nil {
		respondAuthError(c, err, http.StatusConflict)
		return
	}

	c.JSON(http.StatusCreated, resp)
}

// Login handles POST /api/auth/login
func (h *Handlers) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "INVALID_REQUEST", "message": err.Error()})
		return
	}

	resp, err := h.service.Login(c.Request.Context(), &req)
	if err != nil {
		respondAuthError(c, err, http.StatusUnauthorized)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// Me handles GET /api/auth/me
func (h *Handlers) Me(c *gin.Context) {
	user, err := h.service.GetUser(c.Request.Context(), GetUserID(c))
	if err != nil {
		respondAuthError(c, err, http.StatusNotFound)
		return
	}
	c.JSON(http.StatusOK, user)
}

// ChangePassword handles POST /api/auth/change-password
func (h *Handlers) ChangePassword(c *gin.Context) {
	var req ChangePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "INVALID_REQUEST", "message": err.Error()})
		return
	}

	if err := h.service.ChangePassword(c.Request.Context(), GetUserID(c), &req); err != nil {
		respondAuthError(c, err, http.StatusBadRequest)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "password updated"})
}

// UpdateAlerts handles PUT /api/auth/alerts
func (h *Handlers) UpdateAlerts(c *gin.Context) {
	var req UpdateAlertsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "INVALID_REQUEST", "message": err.Error()})
		return
	}

	user, err := h.service.UpdateEmailAlerts(c.Request.Context(), GetUserID(c), *req.EmailAlertsEnabled)
	if err != nil {
		respondAuthError(c, err, http.StatusInternalServerError)
		return
	}

	c.JSON(http.StatusOK, user)
}

// respondAuthError maps auth errors to HTTP responses. Typed errors keep
// their code; anything else becomes a 500.
func respondAuthError(c *gin.Context, err error, typedStatus int) {
	if authErr, ok := err.(AuthError); ok {
		status := typedStatus
		switch authErr.Code {
		case ErrInvalidCredentials.Code, ErrInvalidToken.Code, ErrTokenExpired.Code:
			status = http.StatusUnauthorized
		case ErrUserNotFound.Code:
			status = http.StatusNotFound
		case ErrWeakPassword.Code:
			status = http.StatusBadRequest
		case ErrForbidden.Code:
			status = http.StatusForbidden
		}
		c.JSON(status, gin.H{"error": authErr.Code, "message": authErr.Message})
		return
	}
	c.JSON(http.StatusInternalServerError, gin.H{"error": "INTERNAL_ERROR", "message": "internal server error"})
}
