package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/go-playground/validator/v10"
	"github.com/ternarybob/arbor"
	"github.com/tobybranson/contexo/internal/common"
	"github.com/tobybranson/contexo/internal/interfaces"
)

// IngestHandler accepts ingestion requests and streams progress back as
// newline-delimited JSON. Validation failures are rejected before the stream
// starts; once streaming has begun, failures travel inside the stream as a
// terminal error event.
type IngestHandler struct {
	ingestService interfaces.IngestService
	validate      *validator.Validate
	logger        arbor.ILogger
}

// NewIngestHandler creates a new ingest handler.
func NewIngestHandler(ingestService interfaces.IngestService) *IngestHandler {
	return &IngestHandler{
		ingestService: ingestService,
		validate:      validator.New(),
		logger:        common.GetLogger(),
	}
}

// IngestHandler handles POST /api/ingest requests.
func (h *IngestHandler) IngestHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "POST") {
		return
	}

	var req interfaces.IngestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "Invalid JSON request body")
		return
	}

	if err := h.validate.Struct(&req); err != nil {
		WriteError(w, http.StatusBadRequest, fmt.Sprintf("Invalid request: %v", err))
		return
	}

	if req.IsURL {
		if err := validateIngestURL(req.Text); err != nil {
			WriteError(w, http.StatusBadRequest, err.Error())
			return
		}
	}

	flusher, ok := streamHeaders(w)
	if !ok {
		WriteError(w, http.StatusInternalServerError, "Streaming not supported")
		return
	}

	h.logger.Info().
		Bool("is_url", req.IsURL).
		Str("user_id", req.UserID).
		Msg("Starting ingestion")

	encoder := json.NewEncoder(w)
	for event := range h.ingestService.Ingest(r.Context(), &req) {
		if err := encoder.Encode(event); err != nil {
			h.logger.Debug().
				Err(err).
				Msg("Client disconnected during ingest stream")
			return
		}
		flusher.Flush()
	}
}

// validateIngestURL ensures URL ingestion only targets absolute http(s) URLs.
func validateIngestURL(raw string) error {
	parsed, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid URL: %v", err)
	}
	if !parsed.IsAbs() || (parsed.Scheme != "http" && parsed.Scheme != "https") {
		return fmt.Errorf("URL must be absolute with http or https scheme")
	}
	if parsed.Host == "" {
		return fmt.Errorf("URL must include a host")
	}
	return nil
}
