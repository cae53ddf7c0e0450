package controller

import (
	"errors"
	"log/slog"
	"net/http"

	"capsule-service/src/capsule"
	"capsule-service/src/schemas"
	"capsule-service/src/service"

	"github.com/gin-gonic/gin"
)

type SessionController struct {
	Service *service.ChallengeService
}

func NewSessionController(service *service.ChallengeService) *SessionController {
	return &SessionController{
		Service: service,
	}
}

// respondError writes an RFC 7807 error. Service-layer errors already carry
// their HTTP status; anything else is an internal error.
func (sc *SessionController) respondError(ctx *gin.Context, err error, instance string) {
	var apiErr *schemas.ErrorResponse
	if errors.As(err, &apiErr) {
		ctx.JSON(apiErr.Status, apiErr)
		return
	}
	ctx.JSON(http.StatusInternalServerError, schemas.NewInternalError(err.Error(), instance))
}

func statusResponse(status capsule.Status) schemas.SessionStatusResponse {
	return schemas.SessionStatusResponse{
		SessionID:          status.SessionID,
		IsFlipped:          status.IsFlipped,
		ElapsedMs:          status.ElapsedMs,
		RemainingMs:        status.RemainingMs,
		RequiredDurationMs: status.RequiredDurationMs,
		IsComplete:         status.IsComplete,
		Stability:          status.Stability,
	}
}

// @Summary Start a flip session
// @Description Creates a new flip-challenge session from the active configuration
// @Tags flip
// @Accept json
// @Produce json
// @Param StartSessionRequest body schemas.StartSessionRequest true "Start Session Request"
// @Success 201 {object} schemas.StartSessionResponse
// @Failure 400 {object} schemas.ErrorResponse
// @Failure 503 {object} schemas.ErrorResponse
// @Router /flip/sessions [post]
func (sc *SessionController) StartSession(ctx *gin.Context) {
	var req schemas.StartSessionRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		slog.Error("Invalid request body", "error", err.Error())
		ctx.JSON(http.StatusBadRequest, schemas.NewBadRequestError(
			"Invalid JSON format: "+err.Error(), "/flip/sessions"))
		return
	}

	result, err := sc.Service.StartSession(ctx.Request.Context(), req.UserID, req.DeviceInfo)
	if err != nil {
		slog.Error("Failed to start session", "user_id", req.UserID, "error", err.Error())
		sc.respondError(ctx, err, "/flip/sessions")
		return
	}

	ctx.JSON(http.StatusCreated, schemas.StartSessionResponse{
		SessionID:          result.SessionID,
		RequiredDurationMs: result.RequiredDurationMs,
	})
}

// @Summary Ingest an orientation sample
// @Description Applies one device-orientation sample to the session and returns the timing status
// @Tags flip
// @Accept json
// @Produce json
// @Param id path string true "Session ID"
// @Param IngestSampleRequest body schemas.IngestSampleRequest true "Orientation Sample"
// @Success 200 {object} schemas.SessionStatusResponse
// @Failure 400 {object} schemas.ErrorResponse
// @Failure 404 {object} schemas.ErrorResponse
// @Router /flip/sessions/{id}/samples [post]
func (sc *SessionController) IngestSample(ctx *gin.Context) {
	sessionID := ctx.Param("id")

	var req schemas.IngestSampleRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		slog.Error("Invalid request body", "session_id", sessionID, "error", err.Error())
		ctx.JSON(http.StatusBadRequest, schemas.NewBadRequestError(
			"Invalid JSON format: "+err.Error(), "/flip/sessions/"+sessionID+"/samples"))
		return
	}

	status, err := sc.Service.IngestSample(ctx.Request.Context(), sessionID, &req.Sample)
	if err != nil {
		sc.respondError(ctx, err, "/flip/sessions/"+sessionID+"/samples")
		return
	}

	ctx.JSON(http.StatusOK, statusResponse(status))
}

// @Summary Get session status
// @Description Returns a read-only snapshot of the session's timing state
// @Tags flip
// @Produce json
// @Param id path string true "Session ID"
// @Success 200 {object} schemas.SessionStatusResponse
// @Failure 404 {object} schemas.ErrorResponse
// @Router /flip/sessions/{id} [get]
func (sc *SessionController) GetStatus(ctx *gin.Context) {
	sessionID := ctx.Param("id")

	status, err := sc.Service.GetStatus(sessionID)
	if err != nil {
		sc.respondError(ctx, err, "/flip/sessions/"+sessionID)
		return
	}

	ctx.JSON(http.StatusOK, statusResponse(status))
}

// @Summary End a flip session
// @Description Finalizes the session; a flipped episode already past the required duration still unlocks
// @Tags flip
// @Produce json
// @Param id path string true "Session ID"
// @Success 200 {object} schemas.SessionStatusResponse
// @Failure 404 {object} schemas.ErrorResponse
// @Router /flip/sessions/{id} [delete]
func (sc *SessionController) EndSession(ctx *gin.Context) {
	sessionID := ctx.Param("id")

	status, err := sc.Service.EndSession(ctx.Request.Context(), sessionID)
	if err != nil {
		sc.respondError(ctx, err, "/flip/sessions/"+sessionID)
		return
	}

	slog.Info("Session ended by client",
		"session_id", sessionID,
		"completed", status.IsComplete)

	ctx.JSON(http.StatusOK, statusResponse(status))
}

// @Summary Check sensor capabilities
// @Description Reports which sensor features a probe sample lacks
// @Tags flip
// @Accept json
// @Produce json
// @Param CapabilitiesRequest body schemas.CapabilitiesRequest true "Probe Sample"
// @Success 200 {object} schemas.CapabilitiesResponse
// @Failure 400 {object} schemas.ErrorResponse
// @Router /flip/capabilities [post]
func (sc *SessionController) CheckCapabilities(ctx *gin.Context) {
	var req schemas.CapabilitiesRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, schemas.NewBadRequestError(
			"Invalid JSON format: "+err.Error(), "/flip/capabilities"))
		return
	}

	report := sc.Service.CheckCapabilities(&req.Sample)
	ctx.JSON(http.StatusOK, schemas.CapabilitiesResponse{
		HasRequiredSensors: report.HasRequiredSensors,
		MissingFeatures:    report.MissingFeatures,
	})
}
