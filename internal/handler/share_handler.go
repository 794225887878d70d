package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"buildcrm/sharehub/internal/service"
	"buildcrm/sharehub/pkg/response"
)

type ShareLinkHandler struct {
	shareService service.ShareLinkService
}

func NewShareLinkHandler(shareService service.ShareLinkService) *ShareLinkHandler {
	return &ShareLinkHandler{shareService: shareService}
}

type CreateShareLinkRequest struct {
	ResourceType string                 `json:"resource_type" binding:"required"`
	ResourceID   string                 `json:"resource_id" binding:"required"`
	Permissions  []string               `json:"permissions" binding:"required"`
	ExpiresAt    string                 `json:"expires_at"`
	MaxUses      int                    `json:"max_uses"`
	Password     string                 `json:"password"`
	Metadata     map[string]interface{} `json:"metadata"`
	SingleUse    bool                   `json:"single_use"`
}

type ClaimShareLinkRequest struct {
	Password string `json:"password"`
}

// Create mints a new share link for the caller's tenant.
func (h *ShareLinkHandler) Create(c *gin.Context) {
	userID, tenantID, err := principalFromContext(c)
	if err != nil {
		response.Unauthorized(c, "invalid user context")
		return
	}

	var req CreateShareLinkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	result, err := h.shareService.Create(c.Request.Context(), tenantID, userID, service.CreateShareLinkInput{
		ResourceType: req.ResourceType,
		ResourceID:   req.ResourceID,
		Permissions:  req.Permissions,
		ExpiresAt:    req.ExpiresAt,
		MaxUses:      req.MaxUses,
		Password:     req.Password,
		Metadata:     req.Metadata,
		SingleUse:    req.SingleUse,
	})
	if err != nil {
		if ve, ok := service.AsValidationError(err); ok {
			response.BadRequest(c, ve.Error())
			return
		}
		response.InternalError(c, "failed to create share link")
		return
	}

	response.Success(c, result)
}

// Claim redeems a share token for a scoped credential. Anonymous: the link
// itself is the policy gate.
func (h *ShareLinkHandler) Claim(c *gin.Context) {
	token := c.Param("token")

	var req ClaimShareLinkRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.BadRequest(c, "invalid request body: "+err.Error())
			return
		}
	}

	result, err := h.shareService.Claim(c.Request.Context(), token, req.Password, c.ClientIP())
	if err != nil {
		switch {
		case errors.Is(err, service.ErrShareLinkNotFound):
			response.NotFound(c, "share link not found")
		case errors.Is(err, service.ErrShareLinkRevoked):
			response.Gone(c, err.Error())
		case errors.Is(err, service.ErrShareLinkExpired):
			response.Gone(c, err.Error())
		case errors.Is(err, service.ErrUsageExceeded):
			response.Forbidden(c, err.Error())
		case errors.Is(err, service.ErrInvalidPassword):
			response.Unauthorized(c, err.Error())
		case errors.Is(err, service.ErrClaimConflict):
			response.Conflict(c, err.Error())
		case errors.Is(err, service.ErrTooManyAttempts):
			response.TooManyRequests(c, err.Error())
		case errors.Is(err, service.ErrStoreUnavailable):
			response.Unavailable(c, "share link store unavailable")
		default:
			response.InternalError(c, "failed to claim share link")
		}
		return
	}

	response.Success(c, result)
}

// Revoke permanently disables future claims on a link in the caller's tenant.
// Already-issued credentials stay valid until their own expiry.
func (h *ShareLinkHandler) Revoke(c *gin.Context) {
	_, tenantID, err := principalFromContext(c)
	if err != nil {
		response.Unauthorized(c, "invalid user context")
		return
	}

	token := c.Param("token")
	if err := h.shareService.Revoke(c.Request.Context(), token, tenantID); err != nil {
		switch {
		case errors.Is(err, service.ErrShareLinkNotFound):
			response.NotFound(c, "share link not found")
		case errors.Is(err, service.ErrStoreUnavailable):
			response.Unavailable(c, "share link store unavailable")
		default:
			response.InternalError(c, "failed to revoke share link")
		}
		return
	}

	response.Success(c, gin.H{"revoked": true})
}

// List returns the caller-tenant's links, newest first, without secrets.
func (h *ShareLinkHandler) List(c *gin.Context) {
	_, tenantID, err := principalFromContext(c)
	if err != nil {
		response.Unauthorized(c, "invalid user context")
		return
	}

	views, err := h.shareService.List(c.Request.Context(), tenantID)
	if err != nil {
		response.InternalError(c, "failed to list share links")
		return
	}

	response.Success(c, views)
}
