package gateway

import (
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/bizmatters/agent-builder/arch-customizer/internal/auth"
	"github.com/bizmatters/agent-builder/arch-customizer/internal/engine"
	"github.com/bizmatters/agent-builder/arch-customizer/internal/models"
	"github.com/bizmatters/agent-builder/arch-customizer/internal/session"
)

// SessionHeader optionally scopes the caller's session, e.g. one per browser tab
const SessionHeader = "X-Session-ID"

func init() {
	// Documents are opaque, numbers must come back with the digits they arrived with
	binding.EnableDecoderUseNumber = true
}

var (
	msgInvalidRequest = models.Bilingual("The request is invalid.", "الطلب غير صالح.")
	msgInternal       = models.Bilingual("Something went wrong. Please try again.", "حدث خطأ ما. يرجى المحاولة مرة أخرى.")
	msgNothingToUndo  = models.Bilingual("There is nothing to undo.", "لا يوجد ما يمكن التراجع عنه.")
	msgNoSession      = models.Bilingual("No architecture has been customized in this session yet.", "لم يتم تخصيص أي بنية في هذه الجلسة بعد.")
)

// Handler serves the architecture customization endpoints
type Handler struct {
	engine *engine.Engine
	tracer trace.Tracer
}

// NewHandler creates a new gateway handler
func NewHandler(eng *engine.Engine) *Handler {
	return &Handler{
		engine: eng,
		tracer: otel.Tracer("architecture-gateway"),
	}
}

// CommandRequest represents a single natural-language command
type CommandRequest struct {
	Command  *string         `json:"command"`
	Document models.Document `json:"document"`
}

// SuggestionsRequest asks for improvement suggestions for a document
type SuggestionsRequest struct {
	Document models.Document `json:"document"`
}

// SuggestionsResponse carries suggestions. Degraded is true when the fixed
// fallback list was served because the resolver was unavailable.
type SuggestionsResponse struct {
	Suggestions []models.Suggestion `json:"suggestions"`
	Degraded    bool                `json:"degraded"`
}

// DeepModifyRequest represents a whole-document improvement pass
type DeepModifyRequest struct {
	Modification *engine.Modification `json:"modification"`
	Document     models.Document      `json:"document"`
}

// BatchRequest represents an ordered list of commands
type BatchRequest struct {
	Commands []string        `json:"commands"`
	Document models.Document `json:"document"`
}

// BatchResponse carries one result per submitted command, in order
type BatchResponse struct {
	Results []models.CommandResult `json:"results"`
}

// HistoryResponse carries the applied results of the session
type HistoryResponse struct {
	History []models.CommandResult `json:"history"`
}

// ProcessCommand godoc
// @Summary Apply a command
// @Description Resolve a natural-language command against the document and apply it to the session on success
// @Tags architecture
// @Accept json
// @Produce json
// @Param X-Session-ID header string false "Session scope"
// @Param request body CommandRequest true "Command and current document"
// @Success 200 {object} models.CommandResult
// @Failure 400 {object} models.ErrorResponse
// @Failure 500 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /architecture/command [post]
func (h *Handler) ProcessCommand(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "gateway.process_command")
	defer span.End()

	var req CommandRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request", err)
		return
	}
	if req.Command == nil || strings.TrimSpace(*req.Command) == "" {
		badRequest(c, "Command is required", nil)
		return
	}

	sessionID := sessionIDFor(c)
	span.SetAttributes(attribute.String("session.id", sessionID))

	result, err := h.engine.ProcessCommand(ctx, sessionID, *req.Command, documentOrEmpty(req.Document))
	if err != nil {
		if errors.Is(err, engine.ErrEmptyCommand) {
			badRequest(c, "Command is required", nil)
			return
		}
		span.RecordError(err)
		internalError(c, "Failed to process command", err, sessionID)
		return
	}

	c.JSON(http.StatusOK, result)
}

// Suggestions godoc
// @Summary Suggest improvements
// @Description Propose improvement commands for the document. Falls back to a fixed list when the resolver is unavailable.
// @Tags architecture
// @Accept json
// @Produce json
// @Param request body SuggestionsRequest true "Document to inspect"
// @Success 200 {object} SuggestionsResponse
// @Failure 400 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /architecture/suggestions [post]
func (h *Handler) Suggestions(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "gateway.suggestions")
	defer span.End()

	var req SuggestionsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request", err)
		return
	}

	suggestions, degraded := h.engine.Suggestions(ctx, documentOrEmpty(req.Document))
	span.SetAttributes(attribute.Bool("suggestions.degraded", degraded))

	c.JSON(http.StatusOK, SuggestionsResponse{
		Suggestions: suggestions,
		Degraded:    degraded,
	})
}

// DeepModify godoc
// @Summary Run a deep modification
// @Description Apply one of the fixed whole-document passes (restructure, optimize, secure, normalize, denormalize)
// @Tags architecture
// @Accept json
// @Produce json
// @Param X-Session-ID header string false "Session scope"
// @Param request body DeepModifyRequest true "Modification and current document"
// @Success 200 {object} models.CommandResult
// @Failure 400 {object} models.ErrorResponse
// @Failure 500 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /architecture/deep-modify [post]
func (h *Handler) DeepModify(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "gateway.deep_modify")
	defer span.End()

	var req DeepModifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request", err)
		return
	}
	if req.Modification == nil || req.Modification.Kind == "" {
		badRequest(c, "Modification kind is required", nil)
		return
	}

	sessionID := sessionIDFor(c)
	span.SetAttributes(
		attribute.String("session.id", sessionID),
		attribute.String("modification.kind", string(req.Modification.Kind)),
	)

	result, err := h.engine.DeepModification(ctx, sessionID, *req.Modification, documentOrEmpty(req.Document))
	if err != nil {
		if errors.Is(err, engine.ErrUnknownModification) {
			badRequest(c, "Unknown modification kind", err)
			return
		}
		span.RecordError(err)
		internalError(c, "Failed to run deep modification", err, sessionID)
		return
	}

	c.JSON(http.StatusOK, result)
}

// BatchCommands godoc
// @Summary Apply commands in order
// @Description Apply each command to the result of the last successful one. Failed commands are reported and skipped.
// @Tags architecture
// @Accept json
// @Produce json
// @Param X-Session-ID header string false "Session scope"
// @Param request body BatchRequest true "Commands and current document"
// @Success 200 {object} BatchResponse
// @Failure 400 {object} models.ErrorResponse
// @Failure 500 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /architecture/batch [post]
func (h *Handler) BatchCommands(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "gateway.batch_commands")
	defer span.End()

	var req BatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request", err)
		return
	}
	if len(req.Commands) == 0 {
		badRequest(c, "At least one command is required", nil)
		return
	}

	sessionID := sessionIDFor(c)
	span.SetAttributes(
		attribute.String("session.id", sessionID),
		attribute.Int("batch.size", len(req.Commands)),
	)

	results, err := h.engine.BatchCommands(ctx, sessionID, req.Commands, documentOrEmpty(req.Document))
	if err != nil {
		span.RecordError(err)
		internalError(c, "Failed to process batch", err, sessionID)
		return
	}

	c.JSON(http.StatusOK, BatchResponse{Results: results})
}

// Undo godoc
// @Summary Undo the last command
// @Description Remove the most recent applied command and restore the previous document
// @Tags architecture
// @Produce json
// @Param X-Session-ID header string false "Session scope"
// @Success 200 {object} engine.UndoResult
// @Failure 404 {object} models.ErrorResponse
// @Failure 500 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /architecture/undo [post]
func (h *Handler) Undo(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "gateway.undo")
	defer span.End()

	sessionID := sessionIDFor(c)
	span.SetAttributes(attribute.String("session.id", sessionID))

	result, err := h.engine.Undo(ctx, sessionID)
	if err != nil {
		if errors.Is(err, engine.ErrNothingToUndo) {
			c.JSON(http.StatusNotFound, models.ErrorResponse{
				Error:   "Nothing to undo",
				Code:    models.ErrCodeNothingToUndo,
				Message: msgNothingToUndo,
			})
			return
		}
		span.RecordError(err)
		internalError(c, "Failed to undo", err, sessionID)
		return
	}

	c.JSON(http.StatusOK, result)
}

// History godoc
// @Summary Session history
// @Description List the applied commands of the session in order
// @Tags architecture
// @Produce json
// @Param X-Session-ID header string false "Session scope"
// @Success 200 {object} HistoryResponse
// @Failure 500 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /architecture/history [get]
func (h *Handler) History(c *gin.Context) {
	sessionID := sessionIDFor(c)

	history, err := h.engine.History(c.Request.Context(), sessionID)
	if err != nil {
		internalError(c, "Failed to load history", err, sessionID)
		return
	}

	c.JSON(http.StatusOK, HistoryResponse{History: history})
}

// Document godoc
// @Summary Session document
// @Description Return the current and baseline documents of the session
// @Tags architecture
// @Produce json
// @Param X-Session-ID header string false "Session scope"
// @Success 200 {object} engine.DocumentView
// @Failure 404 {object} models.ErrorResponse
// @Failure 500 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /architecture/document [get]
func (h *Handler) Document(c *gin.Context) {
	sessionID := sessionIDFor(c)

	view, err := h.engine.CurrentDocument(c.Request.Context(), sessionID)
	if err != nil {
		if errors.Is(err, session.ErrSessionNotFound) {
			c.JSON(http.StatusNotFound, models.ErrorResponse{
				Error:   "Session not found",
				Code:    models.ErrCodeNotFound,
				Message: msgNoSession,
			})
			return
		}
		internalError(c, "Failed to load document", err, sessionID)
		return
	}

	c.JSON(http.StatusOK, view)
}

// sessionIDFor derives the session from the authenticated user and the optional scope header
func sessionIDFor(c *gin.Context) string {
	userID := auth.CurrentUserID(c)
	if scope := strings.TrimSpace(c.GetHeader(SessionHeader)); scope != "" {
		return userID + ":" + scope
	}
	return userID
}

func documentOrEmpty(doc models.Document) models.Document {
	if doc == nil {
		return models.Document{}
	}
	return doc
}

func badRequest(c *gin.Context, message string, err error) {
	resp := models.ErrorResponse{
		Error:   message,
		Code:    models.ErrCodeInvalidRequest,
		Message: msgInvalidRequest,
	}
	if err != nil {
		resp.Details = map[string]string{"reason": err.Error()}
	}
	c.JSON(http.StatusBadRequest, resp)
}

func internalError(c *gin.Context, message string, err error, sessionID string) {
	log.Printf(`{"level":"error","message":%q,"error":%q,"session_id":%q}`, message, err, sessionID)
	c.JSON(http.StatusInternalServerError, models.ErrorResponse{
		Error:   message,
		Code:    models.ErrCodeInternalError,
		Message: msgInternal,
	})
}
