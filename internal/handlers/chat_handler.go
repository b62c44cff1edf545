package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/ternarybob/arbor"
	"github.com/tobybranson/contexo/internal/common"
	"github.com/tobybranson/contexo/internal/interfaces"
)

// ChatHandler answers retrieval-grounded chat requests over a
// newline-delimited JSON stream: one context event, then content deltas.
type ChatHandler struct {
	chatService interfaces.ChatService
	validate    *validator.Validate
	logger      arbor.ILogger
}

// NewChatHandler creates a new chat handler.
func NewChatHandler(chatService interfaces.ChatService) *ChatHandler {
	return &ChatHandler{
		chatService: chatService,
		validate:    validator.New(),
		logger:      common.GetLogger(),
	}
}

// ChatHandler handles POST /api/chat requests.
func (h *ChatHandler) ChatHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "POST") {
		return
	}

	var req interfaces.ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "Invalid JSON request body")
		return
	}

	if err := h.validate.Struct(&req); err != nil {
		WriteError(w, http.StatusBadRequest, fmt.Sprintf("Invalid request: %v", err))
		return
	}

	flusher, ok := streamHeaders(w)
	if !ok {
		WriteError(w, http.StatusInternalServerError, "Streaming not supported")
		return
	}

	h.logger.Debug().
		Str("user_id", req.UserID).
		Bool("own_context_only", req.UseOnlyMyContext).
		Msg("Starting chat stream")

	encoder := json.NewEncoder(w)
	for event := range h.chatService.Ask(r.Context(), &req) {
		if err := encoder.Encode(event); err != nil {
			h.logger.Debug().
				Err(err).
				Msg("Client disconnected during chat stream")
			return
		}
		flusher.Flush()
	}
}

// HealthHandler handles GET /api/chat/health requests, probing the upstream
// completion service.
func (h *ChatHandler) HealthHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	if err := h.chatService.HealthCheck(r.Context()); err != nil {
		h.logger.Warn().
			Err(err).
			Msg("Chat health check failed")
		WriteError(w, http.StatusServiceUnavailable, err.Error())
		return
	}

	WriteJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
	})
}
