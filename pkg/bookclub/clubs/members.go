package clubs

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/bookclubhq/bookclub/pkg/bookclub/apperr"
	"github.com/bookclubhq/bookclub/pkg/bookclub/auth"
	"github.com/bookclubhq/bookclub/pkg/bookclub/models"
	"github.com/bookclubhq/bookclub/pkg/bookclub/notifications"
)

// MemberResponse represents a club member in API responses
type MemberResponse struct {
	ID    uint   `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
	Role  string `json:"role"`
}

// UpdateMemberRequest represents a request to update a member's role
type UpdateMemberRequest struct {
	Role string `json:"role" binding:"required,oneof=admin member"`
}

// ListMembers returns all members of a club
// @Summary List club members
// @Description Get all members of a club the caller belongs to
// @Tags clubs
// @Produce json
// @Param id path int true "Club ID"
// @Success 200 {array} MemberResponse
// @Failure 404 {object} map[string]string "Club not found"
// @Security BearerAuth
// @Router /clubs/{id}/members [get]
func (h *Handler) ListMembers(c *gin.Context) {
	userID, _ := auth.GetUserID(c)
	clubID, err := parseIDParam(c, "id")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid club ID"})
		return
	}

	// Non-members get the same answer as a missing club so a private
	// club's roster cannot be probed.
	if _, err := h.memberships.Get(h.db, clubID, userID); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Club not found"})
		return
	}

	var memberships []models.ClubMembership
	if err := h.db.Preload("User").Where("club_id = ?", clubID).Find(&memberships).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch members"})
		return
	}

	members := make([]MemberResponse, len(memberships))
	for i, m := range memberships {
		members[i] = MemberResponse{
			ID:    m.User.ID,
			Email: m.User.Email,
			Name:  m.User.Name,
			Role:  string(m.Role),
		}
	}

	c.JSON(http.StatusOK, members)
}

// UpdateMember changes a member's role, subject to the role rules
// @Summary Update a member's role
// @Description Promote or demote a member; only the owner grants admin
// @Tags clubs
// @Accept json
// @Produce json
// @Param id path int true "Club ID"
// @Param userId path int true "Target user ID"
// @Param request body UpdateMemberRequest true "New role"
// @Success 200 {object} MemberResponse
// @Failure 403 {object} map[string]string "Role rule violated"
// @Failure 404 {object} map[string]string "Member not found"
// @Security BearerAuth
// @Router /clubs/{id}/members/{userId} [put]
func (h *Handler) UpdateMember(c *gin.Context) {
	userID, _ := auth.GetUserID(c)
	clubID, err := parseIDParam(c, "id")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid club ID"})
		return
	}
	targetID, err := parseIDParam(c, "userId")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user ID"})
		return
	}

	var req UpdateMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	newRole := models.ClubRole(req.Role)

	var updated *models.ClubMembership
	var outcome error
	err = h.db.Transaction(func(tx *gorm.DB) error {
		acting, err := h.memberships.Get(tx, clubID, userID)
		if err != nil {
			if errors.Is(err, apperr.ErrNotFound) {
				outcome = apperr.Forbiddenf("you are not a member of this club")
				return nil
			}
			return err
		}
		target, err := h.memberships.Get(tx, clubID, targetID)
		if err != nil {
			if errors.Is(err, apperr.ErrNotFound) {
				outcome = err
				return nil
			}
			return err
		}
		if err := CanChangeRole(acting.Role, target.Role, newRole); err != nil {
			outcome = err
			return nil
		}
		updated, err = h.memberships.SetRole(tx, clubID, targetID, newRole)
		if err != nil {
			if errors.Is(err, apperr.ErrForbidden) || errors.Is(err, apperr.ErrNotFound) {
				outcome = err
				return nil
			}
			return err
		}
		return nil
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update member"})
		return
	}
	if outcome != nil {
		c.JSON(apperr.Status(outcome), gin.H{"error": outcome.Error()})
		return
	}

	h.sink.Emit(c.Request.Context(), notifications.KindRoleChanged, notifications.RoleChanged{
		ClubID:  clubID,
		UserID:  targetID,
		Role:    string(newRole),
		ActorID: userID,
	})

	var targetUser models.User
	h.db.First(&targetUser, targetID)
	c.JSON(http.StatusOK, MemberResponse{
		ID:    targetUser.ID,
		Email: targetUser.Email,
		Name:  targetUser.Name,
		Role:  string(updated.Role),
	})
}

// RemoveMember removes a member from a club, subject to the role rules
// @Summary Remove a club member
// @Description Remove a member; admins cannot remove other admins, nobody removes the owner
// @Tags clubs
// @Produce json
// @Param id path int true "Club ID"
// @Param userId path int true "Target user ID"
// @Success 200 {object} map[string]string
// @Failure 403 {object} map[string]string "Role rule violated"
// @Failure 404 {object} map[string]string "Member not found"
// @Security BearerAuth
// @Router /clubs/{id}/members/{userId} [delete]
func (h *Handler) RemoveMember(c *gin.Context) {
	userID, _ := auth.GetUserID(c)
	clubID, err := parseIDParam(c, "id")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid club ID"})
		return
	}
	targetID, err := parseIDParam(c, "userId")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user ID"})
		return
	}

	var outcome error
	err = h.db.Transaction(func(tx *gorm.DB) error {
		acting, err := h.memberships.Get(tx, clubID, userID)
		if err != nil {
			if errors.Is(err, apperr.ErrNotFound) {
				outcome = apperr.Forbiddenf("you are not a member of this club")
				return nil
			}
			return err
		}
		target, err := h.memberships.Get(tx, clubID, targetID)
		if err != nil {
			if errors.Is(err, apperr.ErrNotFound) {
				outcome = err
				return nil
			}
			return err
		}
		if err := CanRemoveMember(acting.Role, target.Role); err != nil {
			outcome = err
			return nil
		}
		if err := h.memberships.Remove(tx, clubID, targetID); err != nil {
			if errors.Is(err, apperr.ErrForbidden) || errors.Is(err, apperr.ErrNotFound) {
				outcome = err
				return nil
			}
			return err
		}
		return nil
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to remove member"})
		return
	}
	if outcome != nil {
		c.JSON(apperr.Status(outcome), gin.H{"error": outcome.Error()})
		return
	}

	h.sink.Emit(c.Request.Context(), notifications.KindMemberRemoved, notifications.MemberRemoved{
		ClubID:  clubID,
		UserID:  targetID,
		ActorID: userID,
	})
	c.JSON(http.StatusOK, gin.H{"message": "Member removed"})
}

// RegisterMemberRoutes registers member management routes
func (h *Handler) RegisterMemberRoutes(rg *gin.RouterGroup) {
	rg.GET("/:id/members", h.ListMembers)
	rg.PUT("/:id/members/:userId", h.UpdateMember)
	rg.DELETE("/:id/members/:userId", h.RemoveMember)
}
