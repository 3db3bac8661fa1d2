package api

import (
	"alcyxob/coaching-programmes/internal/domain"
	"alcyxob/coaching-programmes/internal/service"
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ProgrammeHandler serves blueprints, their versions and version exercise sets.
type ProgrammeHandler struct {
	programmeService service.ProgrammeService
	setService       service.ExerciseSetService
}

// NewProgrammeHandler creates a new ProgrammeHandler.
func NewProgrammeHandler(programmeService service.ProgrammeService, setService service.ExerciseSetService) *ProgrammeHandler {
	return &ProgrammeHandler{programmeService: programmeService, setService: setService}
}

// --- DTOs ---

// VersionNotesRequest is the body for creating or copying a version.
type VersionNotesRequest struct {
	Notes string `json:"notes"`
}

// CloneTemplateResponse carries the blueprint and draft produced from a template.
type CloneTemplateResponse struct {
	Blueprint *domain.Blueprint `json:"blueprint"`
	Version   *domain.Version   `json:"version"`
}

// SetExercisesRequest replaces the whole exercise set of a draft.
type SetExercisesRequest struct {
	Entries []service.EntryInput `json:"entries"`
}

// ReorderDayRequest lists every entry of one day in its new order.
type ReorderDayRequest struct {
	EntryIDs []primitive.ObjectID `json:"entryIds" binding:"required"`
}

// --- Blueprint Handlers ---

// CreateBlueprint godoc
// @Summary Create a programme blueprint
// @Tags blueprints
// @Accept json
// @Produce json
// @Param blueprint body service.BlueprintInput true "Blueprint details"
// @Success 201 {object} domain.Blueprint
// @Security BearerAuth
// @Router /blueprints [post]
func (h *ProgrammeHandler) CreateBlueprint(c *gin.Context) {
	proID, ok := actorID(c)
	if !ok {
		return
	}
	var req service.BlueprintInput
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}

	bp, err := h.programmeService.CreateBlueprint(c.Request.Context(), proID, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, bp)
}

// ListBlueprints godoc
// @Summary List the caller's blueprints
// @Tags blueprints
// @Produce json
// @Param includeArchived query bool false "Include archived blueprints"
// @Success 200 {array} domain.Blueprint
// @Security BearerAuth
// @Router /blueprints [get]
func (h *ProgrammeHandler) ListBlueprints(c *gin.Context) {
	proID, ok := actorID(c)
	if !ok {
		return
	}
	includeArchived, _ := strconv.ParseBool(c.Query("includeArchived"))

	list, err := h.programmeService.ListBlueprints(c.Request.Context(), proID, includeArchived)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

// ListTemplates godoc
// @Summary List blueprints published as templates
// @Tags blueprints
// @Produce json
// @Success 200 {array} domain.Blueprint
// @Security BearerAuth
// @Router /templates [get]
func (h *ProgrammeHandler) ListTemplates(c *gin.Context) {
	list, err := h.programmeService.ListTemplates(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

// GetBlueprint godoc
// @Summary Get a blueprint
// @Tags blueprints
// @Produce json
// @Param id path string true "Blueprint ID"
// @Success 200 {object} domain.Blueprint
// @Failure 404 {object} map[string]string "Blueprint not found"
// @Security BearerAuth
// @Router /blueprints/{id} [get]
func (h *ProgrammeHandler) GetBlueprint(c *gin.Context) {
	h.withActorAndID(c, func(ctx context.Context, actor, id primitive.ObjectID) (interface{}, error) {
		return h.programmeService.GetBlueprint(ctx, actor, id)
	})
}

// ArchiveBlueprint godoc
// @Summary Archive a blueprint
// @Tags blueprints
// @Param id path string true "Blueprint ID"
// @Success 200 {object} domain.Blueprint
// @Security BearerAuth
// @Router /blueprints/{id}/archive [post]
func (h *ProgrammeHandler) ArchiveBlueprint(c *gin.Context) {
	h.withActorAndID(c, func(ctx context.Context, actor, id primitive.ObjectID) (interface{}, error) {
		return h.programmeService.ArchiveBlueprint(ctx, actor, id)
	})
}

// CloneTemplate godoc
// @Summary Copy a template blueprint into the caller's library
// @Tags blueprints
// @Param id path string true "Template blueprint ID"
// @Success 201 {object} CloneTemplateResponse
// @Security BearerAuth
// @Router /blueprints/{id}/clone [post]
func (h *ProgrammeHandler) CloneTemplate(c *gin.Context) {
	proID, ok := actorID(c)
	if !ok {
		return
	}
	templateID, ok := pathID(c, "id")
	if !ok {
		return
	}

	bp, v, err := h.programmeService.CloneTemplate(c.Request.Context(), proID, templateID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, CloneTemplateResponse{Blueprint: bp, Version: v})
}

// --- Version Handlers ---

// CreateVersion godoc
// @Summary Open a new draft version of a blueprint
// @Tags versions
// @Accept json
// @Param id path string true "Blueprint ID"
// @Param body body VersionNotesRequest false "Notes"
// @Success 201 {object} domain.Version
// @Security BearerAuth
// @Router /blueprints/{id}/versions [post]
func (h *ProgrammeHandler) CreateVersion(c *gin.Context) {
	h.createFrom(c, h.programmeService.CreateVersion)
}

// CopyVersion godoc
// @Summary Open a new draft seeded with another version's exercises
// @Tags versions
// @Accept json
// @Param id path string true "Source version ID"
// @Param body body VersionNotesRequest false "Notes"
// @Success 201 {object} domain.Version
// @Security BearerAuth
// @Router /versions/{id}/copy [post]
func (h *ProgrammeHandler) CopyVersion(c *gin.Context) {
	h.createFrom(c, h.programmeService.CreateVersionFrom)
}

func (h *ProgrammeHandler) createFrom(c *gin.Context, create func(context.Context, primitive.ObjectID, primitive.ObjectID, string) (*domain.Version, error)) {
	proID, ok := actorID(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req VersionNotesRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
			return
		}
	}

	v, err := create(c.Request.Context(), proID, id, req.Notes)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, v)
}

// ListVersions godoc
// @Summary List a blueprint's versions
// @Tags versions
// @Param id path string true "Blueprint ID"
// @Success 200 {array} domain.Version
// @Security BearerAuth
// @Router /blueprints/{id}/versions [get]
func (h *ProgrammeHandler) ListVersions(c *gin.Context) {
	h.withActorAndID(c, func(ctx context.Context, actor, id primitive.ObjectID) (interface{}, error) {
		return h.programmeService.ListVersions(ctx, actor, id)
	})
}

// GetVersion godoc
// @Summary Get a version
// @Tags versions
// @Param id path string true "Version ID"
// @Success 200 {object} domain.Version
// @Security BearerAuth
// @Router /versions/{id} [get]
func (h *ProgrammeHandler) GetVersion(c *gin.Context) {
	h.withActorAndID(c, func(ctx context.Context, actor, id primitive.ObjectID) (interface{}, error) {
		return h.programmeService.GetVersion(ctx, actor, id)
	})
}

// SubmitVersion moves a draft to review.
// @Router /versions/{id}/submit [post]
func (h *ProgrammeHandler) SubmitVersion(c *gin.Context) {
	h.withActorAndID(c, func(ctx context.Context, actor, id primitive.ObjectID) (interface{}, error) {
		return h.programmeService.SubmitForReview(ctx, actor, id)
	})
}

// ActivateVersion makes a version the blueprint's single active one.
// @Router /versions/{id}/activate [post]
func (h *ProgrammeHandler) ActivateVersion(c *gin.Context) {
	h.withActorAndID(c, func(ctx context.Context, actor, id primitive.ObjectID) (interface{}, error) {
		return h.programmeService.ActivateVersion(ctx, actor, id)
	})
}

// ArchiveVersion
// @Router /versions/{id}/archive [post]
func (h *ProgrammeHandler) ArchiveVersion(c *gin.Context) {
	h.withActorAndID(c, func(ctx context.Context, actor, id primitive.ObjectID) (interface{}, error) {
		return h.programmeService.ArchiveVersion(ctx, actor, id)
	})
}

// DeleteVersion godoc
// @Summary Delete a draft version and its exercises
// @Tags versions
// @Param id path string true "Version ID"
// @Success 204
// @Security BearerAuth
// @Router /versions/{id} [delete]
func (h *ProgrammeHandler) DeleteVersion(c *gin.Context) {
	proID, ok := actorID(c)
	if !ok {
		return
	}
	versionID, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.programmeService.DeleteVersion(c.Request.Context(), proID, versionID); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// --- Exercise Set Handlers ---

// SetExercises godoc
// @Summary Replace a draft's exercise set
// @Tags exercise-sets
// @Accept json
// @Param id path string true "Version ID"
// @Param body body SetExercisesRequest true "Entries"
// @Success 200 {array} domain.ExerciseEntry
// @Security BearerAuth
// @Router /versions/{id}/exercises [put]
func (h *ProgrammeHandler) SetExercises(c *gin.Context) {
	var req SetExercisesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}
	h.withActorAndID(c, func(ctx context.Context, actor, id primitive.ObjectID) (interface{}, error) {
		return h.setService.SetVersionExercises(ctx, actor, id, req.Entries)
	})
}

// AddEntry godoc
// @Summary Append one exercise entry to a draft
// @Tags exercise-sets
// @Accept json
// @Param id path string true "Version ID"
// @Param body body service.EntryInput true "Entry"
// @Success 201 {object} domain.ExerciseEntry
// @Security BearerAuth
// @Router /versions/{id}/exercises [post]
func (h *ProgrammeHandler) AddEntry(c *gin.Context) {
	proID, ok := actorID(c)
	if !ok {
		return
	}
	versionID, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req service.EntryInput
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}

	entry, err := h.setService.AddEntry(c.Request.Context(), proID, versionID, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, entry)
}

// UpdateEntry
// @Router /exercises/{id} [patch]
func (h *ProgrammeHandler) UpdateEntry(c *gin.Context) {
	var req service.EntryInput
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}
	h.withActorAndID(c, func(ctx context.Context, actor, id primitive.ObjectID) (interface{}, error) {
		return h.setService.UpdateEntry(ctx, actor, id, req)
	})
}

// DeleteEntry
// @Router /exercises/{id} [delete]
func (h *ProgrammeHandler) DeleteEntry(c *gin.Context) {
	proID, ok := actorID(c)
	if !ok {
		return
	}
	entryID, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.setService.DeleteEntry(c.Request.Context(), proID, entryID); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ReorderDay godoc
// @Summary Reorder the entries of one training day
// @Tags exercise-sets
// @Param id path string true "Version ID"
// @Param day path int true "Day number"
// @Param body body ReorderDayRequest true "Entry ids in their new order"
// @Success 200 {array} domain.ExerciseEntry
// @Security BearerAuth
// @Router /versions/{id}/days/{day}/order [put]
func (h *ProgrammeHandler) ReorderDay(c *gin.Context) {
	day, err := strconv.Atoi(c.Param("day"))
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid day format in URL path.")
		return
	}
	var req ReorderDayRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}
	h.withActorAndID(c, func(ctx context.Context, actor, id primitive.ObjectID) (interface{}, error) {
		return h.setService.ReorderDay(ctx, actor, id, day, req.EntryIDs)
	})
}

// ListEntries
// @Router /versions/{id}/exercises [get]
func (h *ProgrammeHandler) ListEntries(c *gin.Context) {
	h.withActorAndID(c, func(ctx context.Context, actor, id primitive.ObjectID) (interface{}, error) {
		return h.setService.ListEntries(ctx, actor, id)
	})
}

// PreviewSessions godoc
// @Summary Derive the sessions a version would produce
// @Tags exercise-sets
// @Param id path string true "Version ID"
// @Success 200 {array} sessions.Session
// @Security BearerAuth
// @Router /versions/{id}/sessions [get]
func (h *ProgrammeHandler) PreviewSessions(c *gin.Context) {
	h.withActorAndID(c, func(ctx context.Context, actor, id primitive.ObjectID) (interface{}, error) {
		return h.setService.PreviewSessions(ctx, actor, id)
	})
}

// withActorAndID runs call with the caller's id and the ":id" path parameter,
// answering 200 with its result.
func (h *ProgrammeHandler) withActorAndID(c *gin.Context, call func(ctx context.Context, actor, id primitive.ObjectID) (interface{}, error)) {
	actor, ok := actorID(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	result, err := call(c.Request.Context(), actor, id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}
