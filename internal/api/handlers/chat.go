package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/crestbank/teller/internal/api"
	"github.com/crestbank/teller/internal/service"
)

type ChatService interface {
	Answer(ctx context.Context, conversationID, query string) (*service.ChatResult, error)
}

type ChatHandler struct {
	svc ChatService
}

func NewChatHandler(svc ChatService) *ChatHandler {
	return &ChatHandler{svc: svc}
}

type ChatRequest struct {
	ConversationID string `json:"conversation_id"`
	Query          string `json:"query"`
}

type ChatResponse struct {
	Answer  string                   `json:"answer"`
	Sources []map[string]interface{} `json:"sources"`
}

func (h *ChatHandler) Chat(w http.ResponseWriter, r *http.Request) {
	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.ConversationID == "" {
		api.Error(w, http.StatusBadRequest, "conversation_id is required")
		return
	}
	if req.Query == "" {
		api.Error(w, http.StatusBadRequest, "query is required")
		return
	}

	result, err := h.svc.Answer(r.Context(), req.ConversationID, req.Query)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	sources := result.Sources
	if sources == nil {
		sources = []map[string]interface{}{}
	}

	api.JSON(w, http.StatusOK, ChatResponse{
		Answer:  result.Answer,
		Sources: sources,
	})
}
