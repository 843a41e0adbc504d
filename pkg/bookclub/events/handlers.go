package events

import (
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/bookclubhq/bookclub/pkg/bookclub/apperr"
	"github.com/bookclubhq/bookclub/pkg/bookclub/auth"
	"github.com/bookclubhq/bookclub/pkg/bookclub/clubs"
	"github.com/bookclubhq/bookclub/pkg/bookclub/models"
	"github.com/bookclubhq/bookclub/pkg/bookclub/notifications"
)

// Handler handles event-related requests
type Handler struct {
	db            *gorm.DB
	sink          notifications.Sink
	memberships   clubs.MembershipStore
	registrations *Registrations
}

// NewHandler creates a new events handler
func NewHandler(db *gorm.DB, sink notifications.Sink) *Handler {
	return &Handler{
		db:            db,
		sink:          sink,
		registrations: NewRegistrations(db),
	}
}

// CreateEventRequest represents the request to create an event
type CreateEventRequest struct {
	Title           string    `json:"title" binding:"required,max=100"`
	Description     string    `json:"description" binding:"required,max=2000"`
	EventDatetime   time.Time `json:"event_datetime" binding:"required"`
	MeetingURL      string    `json:"meeting_url" binding:"required,max=500"`
	MaxParticipants *int      `json:"max_participants" binding:"omitempty,min=1"`
	Status          string    `json:"status" binding:"omitempty,oneof=draft published"`
}

// EventResponse represents an event in API responses
type EventResponse struct {
	ID                  uint      `json:"id"`
	ClubID              uint      `json:"club_id"`
	Title               string    `json:"title"`
	Description         string    `json:"description"`
	EventDatetime       time.Time `json:"event_datetime"`
	MeetingURL          string    `json:"meeting_url"`
	OrganizerID         uint      `json:"organizer_id"`
	MaxParticipants     *int      `json:"max_participants"`
	Status              string    `json:"status"`
	CurrentParticipants int       `json:"current_participants"`
}

// Create schedules a new event for a club
// @Summary Create an event
// @Description Create a club event; any member may organize one
// @Tags events
// @Accept json
// @Produce json
// @Param id path int true "Club ID"
// @Param request body CreateEventRequest true "Event details"
// @Success 201 {object} EventResponse
// @Failure 400 {object} map[string]string "Validation error"
// @Failure 403 {object} map[string]string "Not a club member"
// @Security BearerAuth
// @Router /clubs/{id}/events [post]
func (h *Handler) Create(c *gin.Context) {
	userID, _ := auth.GetUserID(c)
	clubID, err := parseIDParam(c, "id")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid club ID"})
		return
	}

	var req CreateEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if !req.EventDatetime.After(time.Now()) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Event datetime must be in the future"})
		return
	}
	if !validMeetingURL(req.MeetingURL) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Meeting URL must be a valid http or https URL"})
		return
	}

	if _, err := h.memberships.Get(h.db, clubID, userID); err != nil {
		c.JSON(http.StatusForbidden, gin.H{"error": "Only club members can create events"})
		return
	}

	status := models.EventStatus(req.Status)
	if req.Status == "" {
		status = models.EventStatusDraft
	}

	event := models.Event{
		ClubID:          clubID,
		Title:           req.Title,
		Description:     req.Description,
		EventDatetime:   req.EventDatetime,
		MeetingURL:      req.MeetingURL,
		OrganizerID:     userID,
		MaxParticipants: req.MaxParticipants,
		Status:          status,
	}
	if err := h.db.Create(&event).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create event"})
		return
	}

	kind := notifications.KindEventCreated
	if event.Status == models.EventStatusPublished {
		kind = notifications.KindEventPublished
	}
	h.sink.Emit(c.Request.Context(), kind, notifications.EventChanged{
		EventID: event.ID,
		ClubID:  event.ClubID,
		Title:   event.Title,
	})

	c.JSON(http.StatusCreated, h.toResponse(event, 0))
}

// ListClubEvents returns the events of a club
// @Summary List club events
// @Description Get all events of a club the caller belongs to
// @Tags events
// @Produce json
// @Param id path int true "Club ID"
// @Success 200 {array} EventResponse
// @Failure 404 {object} map[string]string "Club not found"
// @Security BearerAuth
// @Router /clubs/{id}/events [get]
func (h *Handler) ListClubEvents(c *gin.Context) {
	userID, _ := auth.GetUserID(c)
	clubID, err := parseIDParam(c, "id")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid club ID"})
		return
	}

	if _, err := h.memberships.Get(h.db, clubID, userID); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Club not found"})
		return
	}

	var eventList []models.Event
	if err := h.db.Where("club_id = ?", clubID).Order("event_datetime asc").Find(&eventList).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch events"})
		return
	}

	responses := make([]EventResponse, len(eventList))
	for i, event := range eventList {
		count, _ := h.registrations.RegisteredCount(event.ID)
		responses[i] = h.toResponse(event, int(count))
	}
	c.JSON(http.StatusOK, responses)
}

// Get returns one event with its registration count
// @Summary Get an event
// @Description Get an event's details; club members only
// @Tags events
// @Produce json
// @Param id path int true "Event ID"
// @Success 200 {object} EventResponse
// @Failure 404 {object} map[string]string "Event not found"
// @Security BearerAuth
// @Router /events/{id} [get]
func (h *Handler) Get(c *gin.Context) {
	userID, _ := auth.GetUserID(c)
	eventID, err := parseIDParam(c, "id")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid event ID"})
		return
	}

	var event models.Event
	if err := h.db.First(&event, eventID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Event not found"})
		return
	}
	if _, err := h.memberships.Get(h.db, event.ClubID, userID); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Event not found"})
		return
	}

	count, _ := h.registrations.RegisteredCount(event.ID)
	c.JSON(http.StatusOK, h.toResponse(event, int(count)))
}

// Publish moves a draft event to published
// @Summary Publish an event
// @Description Open a draft event for registration; organizer or club staff only
// @Tags events
// @Produce json
// @Param id path int true "Event ID"
// @Success 200 {object} EventResponse
// @Failure 400 {object} map[string]string "Event is not a draft"
// @Failure 403 {object} map[string]string "Not the organizer or club staff"
// @Security BearerAuth
// @Router /events/{id}/publish [post]
func (h *Handler) Publish(c *gin.Context) {
	userID, _ := auth.GetUserID(c)
	eventID, err := parseIDParam(c, "id")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid event ID"})
		return
	}

	var event models.Event
	if err := h.db.First(&event, eventID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Event not found"})
		return
	}

	membership, err := h.memberships.Get(h.db, event.ClubID, userID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Event not found"})
		return
	}
	isStaff := membership.Role == models.ClubRoleOwner || membership.Role == models.ClubRoleAdmin
	if event.OrganizerID != userID && !isStaff {
		c.JSON(http.StatusForbidden, gin.H{"error": "Only the organizer or club staff can publish this event"})
		return
	}
	if event.Status != models.EventStatusDraft {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Only draft events can be published"})
		return
	}

	if err := h.db.Model(&event).Update("status", models.EventStatusPublished).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to publish event"})
		return
	}
	event.Status = models.EventStatusPublished

	h.sink.Emit(c.Request.Context(), notifications.KindEventPublished, notifications.EventChanged{
		EventID: event.ID,
		ClubID:  event.ClubID,
		Title:   event.Title,
	})

	count, _ := h.registrations.RegisteredCount(event.ID)
	c.JSON(http.StatusOK, h.toResponse(event, int(count)))
}

// Register signs the current user up for an event
// @Summary Register for an event
// @Description Register for a published, future event with free capacity
// @Tags events
// @Produce json
// @Param id path int true "Event ID"
// @Success 201 {object} map[string]string
// @Failure 400 {object} map[string]string "Event not open for registration"
// @Failure 403 {object} map[string]string "Not a club member"
// @Failure 409 {object} map[string]string "Already registered or event full"
// @Security BearerAuth
// @Router /events/{id}/register [post]
func (h *Handler) Register(c *gin.Context) {
	userID, _ := auth.GetUserID(c)
	eventID, err := parseIDParam(c, "id")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid event ID"})
		return
	}

	if _, err := h.registrations.Register(eventID, userID); err != nil {
		c.JSON(apperr.Status(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "Registered"})
}

// CancelRegistration withdraws the current user's registration
// @Summary Cancel a registration
// @Description Cancel an existing registration before the event starts
// @Tags events
// @Produce json
// @Param id path int true "Event ID"
// @Success 200 {object} map[string]string
// @Failure 400 {object} map[string]string "Event already started"
// @Failure 404 {object} map[string]string "No registration"
// @Security BearerAuth
// @Router /events/{id}/register [delete]
func (h *Handler) CancelRegistration(c *gin.Context) {
	userID, _ := auth.GetUserID(c)
	eventID, err := parseIDParam(c, "id")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid event ID"})
		return
	}

	if err := h.registrations.Cancel(eventID, userID); err != nil {
		c.JSON(apperr.Status(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Registration cancelled"})
}

// RegisterClubRoutes registers the club-scoped event routes
func (h *Handler) RegisterClubRoutes(rg *gin.RouterGroup) {
	rg.POST("/:id/events", h.Create)
	rg.GET("/:id/events", h.ListClubEvents)
}

// RegisterRoutes registers the event-scoped routes
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/:id", h.Get)
	rg.POST("/:id/publish", h.Publish)
	rg.POST("/:id/register", h.Register)
	rg.DELETE("/:id/register", h.CancelRegistration)
}

func (h *Handler) toResponse(event models.Event, participants int) EventResponse {
	return EventResponse{
		ID:                  event.ID,
		ClubID:              event.ClubID,
		Title:               event.Title,
		Description:         event.Description,
		EventDatetime:       event.EventDatetime,
		MeetingURL:          event.MeetingURL,
		OrganizerID:         event.OrganizerID,
		MaxParticipants:     event.MaxParticipants,
		Status:              string(event.Status),
		CurrentParticipants: participants,
	}
}

func validMeetingURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

func parseIDParam(c *gin.Context, name string) (uint, error) {
	id, err := strconv.ParseUint(c.Param(name), 10, 32)
	if err != nil {
		return 0, err
	}
	return uint(id), nil
}
