package api

import (
	"alcyxob/coaching-programmes/internal/domain"
	"alcyxob/coaching-programmes/internal/service"
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// AssignmentHandler serves assignments, update negotiation and event feeds.
type AssignmentHandler struct {
	assignmentService  service.AssignmentService
	negotiationService service.NegotiationService
}

// NewAssignmentHandler creates a new AssignmentHandler.
func NewAssignmentHandler(assignmentService service.AssignmentService, negotiationService service.NegotiationService) *AssignmentHandler {
	return &AssignmentHandler{assignmentService: assignmentService, negotiationService: negotiationService}
}

// --- DTOs ---

// CreateAssignmentRequest offers a version to a client.
type CreateAssignmentRequest struct {
	ClientID  primitive.ObjectID `json:"clientId"`
	VersionID primitive.ObjectID `json:"versionId"`
	StartDate *time.Time         `json:"startDate"`
	EndDate   *time.Time         `json:"endDate"`
	Notes     string             `json:"notes"`
}

// RejectAssignmentRequest carries the client's optional reason.
type RejectAssignmentRequest struct {
	Reason string `json:"reason"`
}

// ChangeStatusRequest moves an assignment along its lifecycle.
type ChangeStatusRequest struct {
	Status domain.AssignmentStatus `json:"status" binding:"required"`
}

// PushUpdateRequest proposes a new version to a client.
type PushUpdateRequest struct {
	VersionID primitive.ObjectID `json:"versionId"`
	Notes     string             `json:"notes"`
}

// --- Professional Handlers ---

// CreateAssignment godoc
// @Summary Offer a programme version to a client
// @Tags assignments
// @Accept json
// @Produce json
// @Param body body CreateAssignmentRequest true "Assignment details"
// @Success 201 {object} domain.Assignment
// @Failure 403 {object} map[string]string "No active relationship"
// @Security BearerAuth
// @Router /assignments [post]
func (h *AssignmentHandler) CreateAssignment(c *gin.Context) {
	proID, ok := actorID(c)
	if !ok {
		return
	}
	var req CreateAssignmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}
	if req.ClientID.IsZero() || req.VersionID.IsZero() {
		abortWithError(c, http.StatusBadRequest, "Validation error: clientId and versionId are required")
		return
	}

	dates := domain.AssignmentDates{StartDate: req.StartDate, EndDate: req.EndDate}
	a, err := h.assignmentService.Create(c.Request.Context(), proID, req.ClientID, req.VersionID, dates, req.Notes)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, a)
}

// ListProAssignments godoc
// @Summary List assignments made by the caller
// @Tags assignments
// @Success 200 {array} domain.Assignment
// @Security BearerAuth
// @Router /pro/assignments [get]
func (h *AssignmentHandler) ListProAssignments(c *gin.Context) {
	proID, ok := actorID(c)
	if !ok {
		return
	}
	list, err := h.assignmentService.ListForProfessional(c.Request.Context(), proID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

// PushUpdate godoc
// @Summary Propose a newer version to the assignment's client
// @Tags negotiation
// @Accept json
// @Param id path string true "Assignment ID"
// @Param body body PushUpdateRequest true "Proposed version"
// @Success 200 {object} domain.Assignment
// @Failure 409 {object} map[string]string "Assignment not active"
// @Security BearerAuth
// @Router /assignments/{id}/push-update [post]
func (h *AssignmentHandler) PushUpdate(c *gin.Context) {
	proID, ok := actorID(c)
	if !ok {
		return
	}
	assignmentID, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req PushUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}

	a, err := h.negotiationService.PushUpdate(c.Request.Context(), assignmentID, proID, req.VersionID, req.Notes)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, a)
}

// --- Client Handlers ---

// GetMyAssignments godoc
// @Summary List the caller's pending and active assignments
// @Description Runs the read-path sweeps for this client first.
// @Tags assignments
// @Success 200 {object} service.ClientAssignments
// @Security BearerAuth
// @Router /client/assignments [get]
func (h *AssignmentHandler) GetMyAssignments(c *gin.Context) {
	clientID, ok := actorID(c)
	if !ok {
		return
	}
	result, err := h.assignmentService.GetClientAssignments(c.Request.Context(), clientID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// AcceptAssignment
// @Router /assignments/{id}/accept [post]
func (h *AssignmentHandler) AcceptAssignment(c *gin.Context) {
	h.clientAction(c, h.assignmentService.Accept)
}

// RejectAssignment godoc
// @Summary Reject an offered assignment
// @Tags assignments
// @Param id path string true "Assignment ID"
// @Param body body RejectAssignmentRequest false "Reason"
// @Success 200 {object} domain.Assignment
// @Security BearerAuth
// @Router /assignments/{id}/reject [post]
func (h *AssignmentHandler) RejectAssignment(c *gin.Context) {
	var req RejectAssignmentRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
			return
		}
	}
	h.clientAction(c, func(ctx context.Context, assignmentID, clientID primitive.ObjectID) (*domain.Assignment, error) {
		return h.assignmentService.Reject(ctx, assignmentID, clientID, req.Reason)
	})
}

// AcceptUpdate
// @Router /assignments/{id}/accept-update [post]
func (h *AssignmentHandler) AcceptUpdate(c *gin.Context) {
	h.clientAction(c, h.negotiationService.AcceptUpdate)
}

// DeclineUpdate
// @Router /assignments/{id}/decline-update [post]
func (h *AssignmentHandler) DeclineUpdate(c *gin.Context) {
	h.clientAction(c, h.negotiationService.DeclineUpdate)
}

func (h *AssignmentHandler) clientAction(c *gin.Context, act func(ctx context.Context, assignmentID, clientID primitive.ObjectID) (*domain.Assignment, error)) {
	clientID, ok := actorID(c)
	if !ok {
		return
	}
	assignmentID, ok := pathID(c, "id")
	if !ok {
		return
	}
	a, err := act(c.Request.Context(), assignmentID, clientID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, a)
}

// --- Shared Handlers ---

// GetAssignment godoc
// @Summary Get an assignment with its current sessions
// @Tags assignments
// @Param id path string true "Assignment ID"
// @Success 200 {object} service.AssignmentDetail
// @Security BearerAuth
// @Router /assignments/{id} [get]
func (h *AssignmentHandler) GetAssignment(c *gin.Context) {
	actor, ok := actorID(c)
	if !ok {
		return
	}
	assignmentID, ok := pathID(c, "id")
	if !ok {
		return
	}
	detail, err := h.assignmentService.GetAssignmentWithSessions(c.Request.Context(), actor, assignmentID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, detail)
}

// ChangeStatus godoc
// @Summary Pause, resume, complete or cancel an assignment
// @Tags assignments
// @Param id path string true "Assignment ID"
// @Param body body ChangeStatusRequest true "Target status"
// @Success 200 {object} domain.Assignment
// @Failure 409 {object} map[string]string "Transition not allowed"
// @Security BearerAuth
// @Router /assignments/{id}/status [post]
func (h *AssignmentHandler) ChangeStatus(c *gin.Context) {
	actor, ok := actorID(c)
	if !ok {
		return
	}
	assignmentID, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req ChangeStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}

	a, err := h.assignmentService.ChangeStatus(c.Request.Context(), assignmentID, actor, req.Status)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, a)
}

// GetAssignmentEvents
// @Router /assignments/{id}/events [get]
func (h *AssignmentHandler) GetAssignmentEvents(c *gin.Context) {
	actor, ok := actorID(c)
	if !ok {
		return
	}
	assignmentID, ok := pathID(c, "id")
	if !ok {
		return
	}
	events, err := h.assignmentService.EventsForAssignment(c.Request.Context(), actor, assignmentID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, events)
}

// GetMyEvents godoc
// @Summary Event feed for the caller as a client
// @Tags events
// @Param since query string false "RFC3339 lower bound"
// @Success 200 {array} domain.AssignmentEvent
// @Security BearerAuth
// @Router /client/events [get]
func (h *AssignmentHandler) GetMyEvents(c *gin.Context) {
	clientID, ok := actorID(c)
	if !ok {
		return
	}
	var since *time.Time
	if raw := c.Query("since"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			abortWithError(c, http.StatusBadRequest, "Invalid since format, expected RFC3339.")
			return
		}
		since = &t
	}

	events, err := h.assignmentService.EventsForClient(c.Request.Context(), clientID, since)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, events)
}
