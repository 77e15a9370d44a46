package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/gridpool/gridpool/core"
	"github.com/gridpool/gridpool/service"
)

// AuthHandlers contains HTTP handlers for auth endpoints
type AuthHandlers struct {
	authService *service.AuthService
}

// NewAuthHandlers creates new auth handlers
func NewAuthHandlers(authService *service.AuthService) *AuthHandlers {
	return &AuthHandlers{
		authService: authService,
	}
}

// Challenge handles the challenge request
func (h *AuthHandlers) Challenge(c *gin.Context) {
	var req struct {
		PubKey string `json:"pubkey" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	ch, err := h.authService.CreateChallenge(c.Request.Context(), req.PubKey)
	if err != nil {
		if errors.Is(err, core.ErrInvalidIdentity) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid public key"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create challenge"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"challenge_id":  ch.ID,
		"server_pubkey": ch.ServerPubKey,
		"expires_at":    ch.ExpiresAt.Unix(),
	})
}

// Login handles submission of a signed challenge event
func (h *AuthHandlers) Login(c *gin.Context) {
	var req struct {
		Event core.SignedEvent `json:"event" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	accessToken, refreshToken, err := h.authService.Login(c.Request.Context(), &req.Event)
	if err != nil {
		statusCode := http.StatusInternalServerError
		errorMsg := "Authentication failed"

		switch {
		case errors.Is(err, core.ErrUnknownChallenge):
			statusCode = http.StatusBadRequest
			errorMsg = "Unknown challenge"
		case errors.Is(err, core.ErrChallengeMismatch), errors.Is(err, core.ErrInvalidIdentity):
			statusCode = http.StatusBadRequest
			errorMsg = "Event does not match challenge"
		case errors.Is(err, core.ErrChallengeConsumed):
			statusCode = http.StatusConflict
			errorMsg = "Challenge already consumed"
		case errors.Is(err, core.ErrChallengeExpired):
			statusCode = http.StatusGone
			errorMsg = "Challenge expired"
		case errors.Is(err, core.ErrSignatureMismatch):
			statusCode = http.StatusUnauthorized
			errorMsg = "Invalid signature"
		}

		c.JSON(statusCode, gin.H{"error": errorMsg})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"access_token":  accessToken,
		"refresh_token": refreshToken,
		"token_type":    "Bearer",
		"expires_in":    300, // 5 minutes in seconds
	})
}

// Refresh handles token refresh
func (h *AuthHandlers) Refresh(c *gin.Context) {
	var req struct {
		RefreshToken string `json:"refresh_token" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	accessToken, refreshToken, err := h.authService.Refresh(c.Request.Context(), req.RefreshToken)
	if err != nil {
		statusCode := http.StatusInternalServerError
		errorMsg := "Failed to refresh tokens"

		switch {
		case errors.Is(err, core.ErrInvalidToken):
			statusCode = http.StatusBadRequest
			errorMsg = "Invalid refresh token"
		case errors.Is(err, core.ErrTokenExpired):
			statusCode = http.StatusUnauthorized
			errorMsg = "Refresh token expired"
		case errors.Is(err, core.ErrTokenInvalidated):
			statusCode = http.StatusUnauthorized
			errorMsg = "Refresh token has been invalidated"
		}

		c.JSON(statusCode, gin.H{"error": errorMsg})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"access_token":  accessToken,
		"refresh_token": refreshToken,
		"token_type":    "Bearer",
		"expires_in":    300,
	})
}

// Logout handles session logout
func (h *AuthHandlers) Logout(c *gin.Context) {
	var req struct {
		RefreshToken string `json:"refresh_token" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	if err := h.authService.Logout(c.Request.Context(), req.RefreshToken); err != nil {
		if errors.Is(err, core.ErrTokenExpired) {
			c.JSON(http.StatusOK, gin.H{"message": "Logged out"})
			return
		}
		if errors.Is(err, core.ErrInvalidToken) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid refresh token"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to logout"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Logged out"})
}

// ProviderHandlers contains HTTP handlers for registry and discovery
// endpoints
type ProviderHandlers struct {
	registry  *service.Registry
	discovery *service.Discovery
}

// NewProviderHandlers creates new provider handlers
func NewProviderHandlers(registry *service.Registry, discovery *service.Discovery) *ProviderHandlers {
	return &ProviderHandlers{
		registry:  registry,
		discovery: discovery,
	}
}

// List returns a page of providers in registration order
func (h *ProviderHandlers) List(c *gin.Context) {
	var req struct {
		Page     int `form:"page,default=1"`
		PageSize int `form:"page_size,default=20"`
	}

	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	page, err := h.registry.List(c.Request.Context(), req.Page, req.PageSize)
	if err != nil {
		if errors.Is(err, core.ErrInvalidConfiguration) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Page and page size must be positive"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list providers"})
		return
	}

	c.JSON(http.StatusOK, page)
}

// Discover returns a ranked list of providers matching the requirements
func (h *ProviderHandlers) Discover(c *gin.Context) {
	var req service.DiscoveryRequest

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	providers, err := h.discovery.Discover(c.Request.Context(), req)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Discovery failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"providers": providers})
}

// Register adds a provider owned by the authenticated identity
func (h *ProviderHandlers) Register(c *gin.Context) {
	var req struct {
		Name       string            `json:"name" binding:"required"`
		Caps       core.Capabilities `json:"capabilities"`
		Status     string            `json:"status"`
		Reputation float64           `json:"reputation"`
		Price      string            `json:"price"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	pubkey := c.GetString("userPubKey")

	price := decimal.Zero
	if req.Price != "" {
		var err error
		price, err = decimal.NewFromString(req.Price)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid price"})
			return
		}
	}

	status := core.ProviderStatus(req.Status)
	if req.Status == "" {
		status = core.StatusOffline
	}

	record, err := h.registry.Register(c.Request.Context(), &core.ProviderRecord{
		PubKey:       pubkey,
		Name:         req.Name,
		Capabilities: req.Caps,
		Status:       status,
		Reputation:   req.Reputation,
		Price:        price,
	})
	if err != nil {
		if errors.Is(err, core.ErrInvalidConfiguration) || errors.Is(err, core.ErrInvalidIdentity) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid provider record"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to register provider"})
		return
	}

	c.JSON(http.StatusCreated, record)
}

// Deregister removes a provider
func (h *ProviderHandlers) Deregister(c *gin.Context) {
	if err := h.registry.Deregister(c.Request.Context(), c.Param("id")); err != nil {
		if errors.Is(err, core.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Provider not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to deregister provider"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Deregistered"})
}

// UpdateStatus replaces the status of a provider
func (h *ProviderHandlers) UpdateStatus(c *gin.Context) {
	var req struct {
		Status core.ProviderStatus `json:"status" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	err := h.registry.UpdateStatus(c.Request.Context(), c.Param("id"), req.Status)
	if err != nil {
		switch {
		case errors.Is(err, core.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "Provider not found"})
		case errors.Is(err, core.ErrInvalidConfiguration):
			c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown status"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update status"})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Status updated"})
}

// ApplyReputationDelta applies an externally computed reputation delta
func (h *ProviderHandlers) ApplyReputationDelta(c *gin.Context) {
	var req struct {
		Delta float64 `json:"delta"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	updated, err := h.registry.ApplyReputationDelta(c.Request.Context(), c.Param("id"), req.Delta)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Provider not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to apply reputation delta"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"reputation": updated})
}
