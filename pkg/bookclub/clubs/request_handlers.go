package clubs

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/bookclubhq/bookclub/pkg/bookclub/apperr"
	"github.com/bookclubhq/bookclub/pkg/bookclub/auth"
	"github.com/bookclubhq/bookclub/pkg/bookclub/models"
	"github.com/bookclubhq/bookclub/pkg/bookclub/notifications"
)

// JoinRequestResponse represents a join request in API responses
type JoinRequestResponse struct {
	ID        uint      `json:"id"`
	ClubID    uint      `json:"club_id"`
	UserID    uint      `json:"user_id"`
	UserName  string    `json:"user_name,omitempty"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

// RequestJoin files a join request against an approval-required club
// @Summary Request to join a club
// @Description File a pending join request for an approval-required club
// @Tags clubs
// @Produce json
// @Param id path int true "Club ID"
// @Success 201 {object} JoinRequestResponse
// @Failure 400 {object} map[string]string "Club is open, join directly"
// @Failure 409 {object} map[string]string "Already a member or request pending"
// @Security BearerAuth
// @Router /clubs/{id}/requests [post]
func (h *Handler) RequestJoin(c *gin.Context) {
	userID, _ := auth.GetUserID(c)
	clubID, err := parseIDParam(c, "id")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid club ID"})
		return
	}

	request, err := h.requests.Request(clubID, userID)
	if err != nil {
		c.JSON(apperr.Status(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, toRequestResponse(*request))
}

// ListJoinRequests returns the pending requests for a club
// @Summary List pending join requests
// @Description Get the pending join requests for a club; owner/admin only
// @Tags clubs
// @Produce json
// @Param id path int true "Club ID"
// @Success 200 {array} JoinRequestResponse
// @Failure 404 {object} map[string]string "Club not found"
// @Security BearerAuth
// @Router /clubs/{id}/requests [get]
func (h *Handler) ListJoinRequests(c *gin.Context) {
	userID, _ := auth.GetUserID(c)
	clubID, err := parseIDParam(c, "id")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid club ID"})
		return
	}

	// Same 404 for non-members and non-staff as for a missing club
	membership, err := h.memberships.Get(h.db, clubID, userID)
	if err != nil || !CanManageRequests(membership.Role) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Club not found"})
		return
	}

	requests, err := h.requests.ListPending(clubID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch join requests"})
		return
	}

	responses := make([]JoinRequestResponse, len(requests))
	for i, r := range requests {
		responses[i] = toRequestResponse(r)
		responses[i].UserName = r.User.Name
	}
	c.JSON(http.StatusOK, responses)
}

// ApproveJoinRequest approves a pending request and creates the membership
// @Summary Approve a join request
// @Description Approve a pending request; the requester becomes a member
// @Tags clubs
// @Produce json
// @Param id path int true "Club ID"
// @Param requestId path int true "Request ID"
// @Success 200 {object} JoinRequestResponse
// @Failure 403 {object} map[string]string "Owner/admin only"
// @Failure 404 {object} map[string]string "No pending request"
// @Failure 409 {object} map[string]string "Requester already a member"
// @Security BearerAuth
// @Router /clubs/{id}/requests/{requestId}/approve [post]
func (h *Handler) ApproveJoinRequest(c *gin.Context) {
	userID, _ := auth.GetUserID(c)
	requestID, err := parseIDParam(c, "requestId")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request ID"})
		return
	}

	approved, err := h.requests.Approve(requestID, userID)
	if err != nil {
		c.JSON(apperr.Status(err), gin.H{"error": err.Error()})
		return
	}

	h.sink.Emit(c.Request.Context(), notifications.KindJoinRequestApproved, notifications.JoinRequestResolved{
		RequestID: approved.ID,
		ClubID:    approved.ClubID,
		UserID:    approved.UserID,
	})
	c.JSON(http.StatusOK, toRequestResponse(*approved))
}

// RejectJoinRequest rejects a pending request
// @Summary Reject a join request
// @Description Reject a pending request; no membership is created
// @Tags clubs
// @Produce json
// @Param id path int true "Club ID"
// @Param requestId path int true "Request ID"
// @Success 200 {object} JoinRequestResponse
// @Failure 403 {object} map[string]string "Owner/admin only"
// @Failure 404 {object} map[string]string "No pending request"
// @Security BearerAuth
// @Router /clubs/{id}/requests/{requestId}/reject [post]
func (h *Handler) RejectJoinRequest(c *gin.Context) {
	userID, _ := auth.GetUserID(c)
	requestID, err := parseIDParam(c, "requestId")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request ID"})
		return
	}

	rejected, err := h.requests.Reject(requestID, userID)
	if err != nil {
		c.JSON(apperr.Status(err), gin.H{"error": err.Error()})
		return
	}

	h.sink.Emit(c.Request.Context(), notifications.KindJoinRequestRejected, notifications.JoinRequestResolved{
		RequestID: rejected.ID,
		ClubID:    rejected.ClubID,
		UserID:    rejected.UserID,
	})
	c.JSON(http.StatusOK, toRequestResponse(*rejected))
}

// RegisterRequestRoutes registers join request routes
func (h *Handler) RegisterRequestRoutes(rg *gin.RouterGroup) {
	rg.POST("/:id/requests", h.RequestJoin)
	rg.GET("/:id/requests", h.ListJoinRequests)
	rg.POST("/:id/requests/:requestId/approve", h.ApproveJoinRequest)
	rg.POST("/:id/requests/:requestId/reject", h.RejectJoinRequest)
}

func toRequestResponse(r models.ClubJoinRequest) JoinRequestResponse {
	return JoinRequestResponse{
		ID:        r.ID,
		ClubID:    r.ClubID,
		UserID:    r.UserID,
		Status:    string(r.Status),
		CreatedAt: r.CreatedAt,
	}
}
