package clubs

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/bookclubhq/bookclub/pkg/bookclub/apperr"
	"github.com/bookclubhq/bookclub/pkg/bookclub/auth"
	"github.com/bookclubhq/bookclub/pkg/bookclub/models"
	"github.com/bookclubhq/bookclub/pkg/bookclub/notifications"
)

// Handler handles club-related requests
type Handler struct {
	db          *gorm.DB
	sink        notifications.Sink
	memberships MembershipStore
	requests    *JoinRequests
	transfer    *OwnershipTransfer
}

// NewHandler creates a new clubs handler
func NewHandler(db *gorm.DB, sink notifications.Sink) *Handler {
	return &Handler{
		db:       db,
		sink:     sink,
		requests: NewJoinRequests(db),
		transfer: NewOwnershipTransfer(db),
	}
}

// CreateClubRequest represents the request to create a club
type CreateClubRequest struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
	Visibility  string `json:"visibility" binding:"omitempty,oneof=open approval_required"`
}

// ClubResponse represents a club in API responses
type ClubResponse struct {
	ID               uint   `json:"id"`
	Name             string `json:"name"`
	Description      string `json:"description"`
	Visibility       string `json:"visibility"`
	OwnerID          uint   `json:"owner_id"`
	MemberCount      int    `json:"member_count,omitempty"`
	MembershipStatus string `json:"membership_status,omitempty"` // owner/admin/member/pending_request/not_member
}

// Create creates a new club with the creator as owner
// @Summary Create a club
// @Description Create a new club; the creator becomes its owner
// @Tags clubs
// @Accept json
// @Produce json
// @Param request body CreateClubRequest true "Club details"
// @Success 201 {object} ClubResponse
// @Failure 400 {object} map[string]string "Validation error"
// @Security BearerAuth
// @Router /clubs [post]
func (h *Handler) Create(c *gin.Context) {
	userID, _ := auth.GetUserID(c)

	var req CreateClubRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	visibility := models.ClubVisibility(req.Visibility)
	if req.Visibility == "" {
		visibility = models.ClubVisibilityOpen
	}

	// Club and owner membership are created together: a club without an
	// owner membership must never be observable.
	var club models.Club
	err := h.db.Transaction(func(tx *gorm.DB) error {
		club = models.Club{
			Name:        req.Name,
			Description: req.Description,
			Visibility:  visibility,
			OwnerID:     userID,
		}
		if err := tx.Create(&club).Error; err != nil {
			return err
		}
		_, err := h.memberships.Add(tx, club.ID, userID, models.ClubRoleOwner)
		return err
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create club"})
		return
	}

	c.JSON(http.StatusCreated, ClubResponse{
		ID:               club.ID,
		Name:             club.Name,
		Description:      club.Description,
		Visibility:       string(club.Visibility),
		OwnerID:          club.OwnerID,
		MemberCount:      1,
		MembershipStatus: string(models.ClubRoleOwner),
	})
}

// List returns the open clubs
// @Summary List clubs
// @Description Get all open clubs
// @Tags clubs
// @Produce json
// @Success 200 {array} ClubResponse
// @Security BearerAuth
// @Router /clubs [get]
func (h *Handler) List(c *gin.Context) {
	var clubList []models.Club
	if err := h.db.Where("visibility = ?", models.ClubVisibilityOpen).Find(&clubList).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch clubs"})
		return
	}
	c.JSON(http.StatusOK, h.toResponses(clubList))
}

// ListMine returns the clubs the current user belongs to
// @Summary List my clubs
// @Description Get all clubs the current user is a member of
// @Tags clubs
// @Produce json
// @Success 200 {array} ClubResponse
// @Security BearerAuth
// @Router /clubs/mine [get]
func (h *Handler) ListMine(c *gin.Context) {
	userID, _ := auth.GetUserID(c)

	var memberships []models.ClubMembership
	if err := h.db.Preload("Club").Where("user_id = ?", userID).Find(&memberships).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch clubs"})
		return
	}

	responses := make([]ClubResponse, len(memberships))
	for i, m := range memberships {
		count, _ := h.memberships.Count(h.db, m.ClubID)
		responses[i] = ClubResponse{
			ID:               m.Club.ID,
			Name:             m.Club.Name,
			Description:      m.Club.Description,
			Visibility:       string(m.Club.Visibility),
			OwnerID:          m.Club.OwnerID,
			MemberCount:      int(count),
			MembershipStatus: string(m.Role),
		}
	}
	c.JSON(http.StatusOK, responses)
}

// Get returns one club with the caller's membership status
// @Summary Get a club
// @Description Get a club's details and the caller's standing in it
// @Tags clubs
// @Produce json
// @Param id path int true "Club ID"
// @Success 200 {object} ClubResponse
// @Failure 404 {object} map[string]string "Club not found"
// @Security BearerAuth
// @Router /clubs/{id} [get]
func (h *Handler) Get(c *gin.Context) {
	userID, _ := auth.GetUserID(c)
	clubID, err := parseIDParam(c, "id")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid club ID"})
		return
	}

	var club models.Club
	if err := h.db.First(&club, clubID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Club not found"})
		return
	}

	status := h.membershipStatus(club.ID, userID)
	count, _ := h.memberships.Count(h.db, club.ID)

	c.JSON(http.StatusOK, ClubResponse{
		ID:               club.ID,
		Name:             club.Name,
		Description:      club.Description,
		Visibility:       string(club.Visibility),
		OwnerID:          club.OwnerID,
		MemberCount:      int(count),
		MembershipStatus: status,
	})
}

// Join adds the current user to an open club
// @Summary Join an open club
// @Description Directly join a club whose visibility is open
// @Tags clubs
// @Produce json
// @Param id path int true "Club ID"
// @Success 201 {object} map[string]string
// @Failure 400 {object} map[string]string "Club requires approval"
// @Failure 409 {object} map[string]string "Already a member"
// @Security BearerAuth
// @Router /clubs/{id}/join [post]
func (h *Handler) Join(c *gin.Context) {
	userID, _ := auth.GetUserID(c)
	clubID, err := parseIDParam(c, "id")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid club ID"})
		return
	}

	var outcome error
	err = h.db.Transaction(func(tx *gorm.DB) error {
		var club models.Club
		if err := tx.First(&club, clubID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				outcome = apperr.NotFoundf("club %d not found", clubID)
				return nil
			}
			return err
		}
		if club.Visibility != models.ClubVisibilityOpen {
			outcome = apperr.InvalidStatef("club requires approval, submit a join request instead")
			return nil
		}
		_, addErr := h.memberships.Add(tx, clubID, userID, models.ClubRoleMember)
		if addErr != nil {
			if errors.Is(addErr, apperr.ErrConflict) {
				outcome = addErr
				return nil
			}
			return addErr
		}
		return nil
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to join club"})
		return
	}
	if outcome != nil {
		c.JSON(apperr.Status(outcome), gin.H{"error": outcome.Error()})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"message": "Joined club"})
}

// Leave removes the current user's membership. The owner cannot leave;
// ownership must be transferred first.
// @Summary Leave a club
// @Description Leave a club the current user is a member of
// @Tags clubs
// @Produce json
// @Param id path int true "Club ID"
// @Success 200 {object} map[string]string
// @Failure 403 {object} map[string]string "Owner cannot leave"
// @Failure 404 {object} map[string]string "Not a member"
// @Security BearerAuth
// @Router /clubs/{id}/leave [post]
func (h *Handler) Leave(c *gin.Context) {
	userID, _ := auth.GetUserID(c)
	clubID, err := parseIDParam(c, "id")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid club ID"})
		return
	}

	if err := h.memberships.Remove(h.db, clubID, userID); err != nil {
		c.JSON(apperr.Status(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Left club"})
}

// TransferOwnershipRequest names the member taking over the club
type TransferOwnershipRequest struct {
	NewOwnerID uint `json:"new_owner_id" binding:"required"`
}

// TransferOwnership hands the club to another member
// @Summary Transfer club ownership
// @Description Atomically move the owner role to another member; the previous owner becomes an admin
// @Tags clubs
// @Accept json
// @Produce json
// @Param id path int true "Club ID"
// @Param request body TransferOwnershipRequest true "New owner"
// @Success 200 {object} map[string]string
// @Failure 403 {object} map[string]string "Only the owner may transfer"
// @Failure 404 {object} map[string]string "New owner is not a member"
// @Security BearerAuth
// @Router /clubs/{id}/transfer [post]
func (h *Handler) TransferOwnership(c *gin.Context) {
	userID, _ := auth.GetUserID(c)
	clubID, err := parseIDParam(c, "id")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid club ID"})
		return
	}

	var req TransferOwnershipRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.transfer.Transfer(clubID, req.NewOwnerID, userID); err != nil {
		c.JSON(apperr.Status(err), gin.H{"error": err.Error()})
		return
	}

	h.sink.Emit(c.Request.Context(), notifications.KindOwnershipTransferred, notifications.OwnershipTransferred{
		ClubID:     clubID,
		OldOwnerID: userID,
		NewOwnerID: req.NewOwnerID,
	})
	c.JSON(http.StatusOK, gin.H{"message": "Ownership transferred"})
}

// RegisterRoutes registers club routes on the given router group
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("", h.Create)
	rg.GET("", h.List)
	rg.GET("/mine", h.ListMine)
	rg.GET("/:id", h.Get)
	rg.POST("/:id/join", h.Join)
	rg.POST("/:id/leave", h.Leave)
	rg.POST("/:id/transfer", h.TransferOwnership)
}

func (h *Handler) toResponses(clubList []models.Club) []ClubResponse {
	responses := make([]ClubResponse, len(clubList))
	for i, club := range clubList {
		count, _ := h.memberships.Count(h.db, club.ID)
		responses[i] = ClubResponse{
			ID:          club.ID,
			Name:        club.Name,
			Description: club.Description,
			Visibility:  string(club.Visibility),
			OwnerID:     club.OwnerID,
			MemberCount: int(count),
		}
	}
	return responses
}

// membershipStatus classifies the caller relative to a club, including a
// pending join request.
func (h *Handler) membershipStatus(clubID, userID uint) string {
	if m, err := h.memberships.Get(h.db, clubID, userID); err == nil {
		return string(m.Role)
	}
	var pending models.ClubJoinRequest
	err := h.db.Where("club_id = ? AND user_id = ? AND status = ?", clubID, userID, models.JoinRequestPending).
		First(&pending).Error
	if err == nil {
		return "pending_request"
	}
	return "not_member"
}

func parseIDParam(c *gin.Context, name string) (uint, error) {
	id, err := strconv.ParseUint(c.Param(name), 10, 32)
	if err != nil {
		return 0, err
	}
	return uint(id), nil
}
