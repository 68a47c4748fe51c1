package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/kjstillabower/codex-platform-contract/internal/lifecycle"
	"github.com/kjstillabower/codex-platform-contract/internal/models"
	"github.com/kjstillabower/codex-platform-contract/internal/observability"
	"github.com/kjstillabower/codex-platform-contract/internal/service"
)

// Response messages of the platform API.
const (
	msgHelloWorld              = "Hello World"
	msgInvalidBody             = "Invalid request body"
	msgFailedRetrievePlatforms = "Failed to retrieve platforms"
	msgFailedRetrievePlatform  = "Failed to retrieve platform"
	msgPlatformExists          = "Platform already exists"
	msgFailedAddPlatform       = "Failed to add platform"
	msgInvalidIDFormat         = "Invalid ID format"
	msgPlatformNotFound        = "Platform not found"
	msgSameNameExists          = "Platform with the same name already exists"
	msgFailedUpdatePlatform    = "Failed to update platform"
	msgFailedDeletePlatform    = "Failed to delete platform"
	msgPlatformDeleted         = "Platform deleted successfully"
)

const maxBodyBytes = 1 << 20

// Handler holds dependencies for HTTP handlers.
type Handler struct {
	platforms *service.PlatformService
	storePing func() error
	logger    *zap.Logger
}

// NewHandler returns a new Handler. storePing, when set, is consulted by the
// readiness probe (memcached backend).
func NewHandler(platforms *service.PlatformService, logger *zap.Logger, storePing func() error) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		platforms: platforms,
		storePing: storePing,
		logger:    logger,
	}
}

// Root handles GET /.
func (h *Handler) Root(w http.ResponseWriter, r *http.Request) {
	writeMessage(w, http.StatusOK, msgHelloWorld)
}

// GetPlatforms handles GET get-platforms with an optional ?name= substring filter.
func (h *Handler) GetPlatforms(w http.ResponseWriter, r *http.Request) {
	logger := observability.LoggerFromContext(r.Context())
	platforms, err := h.platforms.List(r.Context(), r.URL.Query().Get("name"))
	if err != nil {
		logger.Error("list platforms", zap.Error(err))
		writeMessage(w, http.StatusInternalServerError, msgFailedRetrievePlatforms)
		return
	}
	writeJSON(w, http.StatusOK, platforms)
}

// GetPlatformByName handles POST get-platform-by-name. Lookup failures of any kind
// answer 500 with a message body, as the platform API always has.
func (h *Handler) GetPlatformByName(w http.ResponseWriter, r *http.Request) {
	logger := observability.LoggerFromContext(r.Context())
	var req models.NameRequest
	if err := decodeBody(r, &req); err != nil || req.Name == "" {
		logger.Debug("invalid request body", zap.Error(err))
		writeMessage(w, http.StatusBadRequest, msgInvalidBody)
		return
	}

	p, err := h.platforms.GetByName(r.Context(), req.Name)
	if err != nil {
		logLookupError(logger, err, zap.String("name", req.Name))
		writeMessage(w, http.StatusInternalServerError, msgFailedRetrievePlatform)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// GetPlatformByID handles POST get-platform-by-id.
func (h *Handler) GetPlatformByID(w http.ResponseWriter, r *http.Request) {
	logger := observability.LoggerFromContext(r.Context())
	var req models.IDRequest
	if err := decodeBody(r, &req); err != nil {
		logger.Debug("invalid request body", zap.Error(err))
		writeMessage(w, http.StatusBadRequest, msgInvalidBody)
		return
	}

	p, err := h.platforms.GetByID(r.Context(), req.ID)
	if err != nil {
		logLookupError(logger, err, zap.String("id", req.ID))
		writeMessage(w, http.StatusInternalServerError, msgFailedRetrievePlatform)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// AddPlatform handles POST add-platform.
func (h *Handler) AddPlatform(w http.ResponseWriter, r *http.Request) {
	logger := observability.LoggerFromContext(r.Context())
	var req models.AddPlatformRequest
	if err := decodeBody(r, &req); err != nil {
		logger.Debug("invalid request body", zap.Error(err))
		writeError(w, http.StatusBadRequest, msgInvalidBody)
		return
	}

	p, err := h.platforms.Create(r.Context(), req.Name, req.Manufacturer)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, p)
	case errors.Is(err, service.ErrValidation):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrDuplicateName):
		writeError(w, http.StatusBadRequest, msgPlatformExists)
	default:
		logger.Error("add platform", zap.Error(err))
		writeError(w, http.StatusInternalServerError, msgFailedAddPlatform)
	}
}

// UpdatePlatform handles POST update-platform. Empty name or manufacturer keep the stored value.
func (h *Handler) UpdatePlatform(w http.ResponseWriter, r *http.Request) {
	logger := observability.LoggerFromContext(r.Context())
	var req models.UpdatePlatformRequest
	if err := decodeBody(r, &req); err != nil {
		logger.Debug("invalid request body", zap.Error(err))
		writeError(w, http.StatusBadRequest, msgInvalidBody)
		return
	}

	p, err := h.platforms.Update(r.Context(), req.ID, req.Name, req.Manufacturer)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, p)
	case errors.Is(err, service.ErrInvalidID):
		writeError(w, http.StatusBadRequest, msgInvalidIDFormat)
	case errors.Is(err, service.ErrPlatformNotFound):
		writeError(w, http.StatusNotFound, msgPlatformNotFound)
	case errors.Is(err, service.ErrDuplicateName):
		writeError(w, http.StatusBadRequest, msgSameNameExists)
	case errors.Is(err, service.ErrValidation):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		logger.Error("update platform", zap.String("id", req.ID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, msgFailedUpdatePlatform)
	}
}

// DeletePlatform handles POST delete-platform. Deleting an unknown but well-formed ID
// still answers with the success message.
func (h *Handler) DeletePlatform(w http.ResponseWriter, r *http.Request) {
	logger := observability.LoggerFromContext(r.Context())
	var req models.IDRequest
	if err := decodeBody(r, &req); err != nil {
		logger.Debug("invalid request body", zap.Error(err))
		writeError(w, http.StatusBadRequest, msgInvalidBody)
		return
	}

	p, removed, err := h.platforms.Delete(r.Context(), req.ID)
	if err != nil {
		logger.Warn("delete platform", zap.String("id", req.ID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, msgFailedDeletePlatform)
		return
	}
	resp := models.DeleteResponse{Message: msgPlatformDeleted}
	if removed {
		resp.Deleted = &p
	}
	writeJSON(w, http.StatusOK, resp)
}

// Livez handles GET /livez. The process answering is the whole check.
func (h *Handler) Livez(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Readyz handles GET /readyz: 503 until startup completes, while shutting down, or
// while the store backend is unreachable.
func (h *Handler) Readyz(w http.ResponseWriter, r *http.Request) {
	status := lifecycle.Status()
	statusCode := http.StatusOK
	if status != lifecycle.StatusReady {
		statusCode = http.StatusServiceUnavailable
	}

	checks := map[string]string{}
	if h.storePing != nil {
		if err := h.storePing(); err != nil {
			checks["store"] = "unhealthy"
			statusCode = http.StatusServiceUnavailable
			observability.LoggerFromContext(r.Context()).Warn("store ping failed", zap.Error(err))
		} else {
			checks["store"] = "healthy"
		}
	}

	writeJSON(w, statusCode, map[string]interface{}{
		"status":    status,
		"service":   "codex-platform-double",
		"checks":    checks,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

func logLookupError(logger *zap.Logger, err error, field zap.Field) {
	if errors.Is(err, service.ErrPlatformNotFound) || errors.Is(err, service.ErrInvalidID) {
		logger.Debug("platform lookup failed", field, zap.Error(err))
		return
	}
	logger.Error("platform lookup failed", field, zap.Error(err))
}

// decodeBody unmarshals the whole request body. A JSON null body leaves v zero-valued.
func decodeBody(r *http.Request, v interface{}) error {
	raw, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, v)
}

// writeJSON writes a JSON response with the specified HTTP status code.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError writes {"error": message}.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// writeMessage writes {"message": message}.
func writeMessage(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"message": message})
}
