package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/crestbank/teller/internal/api/handlers"
	"github.com/crestbank/teller/internal/domain"
	"github.com/crestbank/teller/internal/service"
)

type MockChatService struct {
	mock.Mock
}

func (m *MockChatService) Answer(ctx context.Context, conversationID, query string) (*service.ChatResult, error) {
	args := m.Called(ctx, conversationID, query)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.ChatResult), args.Error(1)
}

func setupRouter() (http.Handler, *MockChatService) {
	chatSvc := new(MockChatService)
	router := NewRouter(RouterConfig{
		ChatHandler: handlers.NewChatHandler(chatSvc),
	})
	return router, chatSvc
}

func postChat(t *testing.T, router http.Handler, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/chat", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestRouter_HealthEndpoint(t *testing.T) {
	router, _ := setupRouter()

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp map[string]interface{}
	err := json.Unmarshal(w.Body.Bytes(), &resp)
	require.NoError(t, err)
	data := resp["data"].(map[string]interface{})
	assert.Equal(t, "ok", data["status"])
}

func TestRouter_Chat_Success(t *testing.T) {
	router, chatSvc := setupRouter()

	chatSvc.On("Answer", mock.Anything, "conv-1", "What savings accounts are available?").Return(&service.ChatResult{
		Answer: "Everyday Saver - a no-fee savings account.",
		Sources: []map[string]interface{}{
			{"source": "accounts.txt", "type": "webpage", "ordinal": 0},
		},
	}, nil)

	w := postChat(t, router, map[string]string{
		"conversation_id": "conv-1",
		"query":           "What savings accounts are available?",
	})

	assert.Equal(t, http.StatusOK, w.Code)

	var resp handlers.ChatResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "Everyday Saver - a no-fee savings account.", resp.Answer)
	require.Len(t, resp.Sources, 1)
	assert.Equal(t, "accounts.txt", resp.Sources[0]["source"])

	chatSvc.AssertExpectations(t)
}

func TestRouter_Chat_MissingFields(t *testing.T) {
	router, chatSvc := setupRouter()

	tests := []struct {
		name string
		body map[string]string
	}{
		{"missing conversation_id", map[string]string{"query": "hello"}},
		{"missing query", map[string]string{"conversation_id": "conv-1"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := postChat(t, router, tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
		})
	}

	chatSvc.AssertNotCalled(t, "Answer")
}

func TestRouter_Chat_InvalidBody(t *testing.T) {
	router, _ := setupRouter()

	req := httptest.NewRequest(http.MethodPost, "/chat", bytes.NewReader([]byte("{not json")))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRouter_Chat_ErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{"index not built", domain.ErrIndexNotBuilt, http.StatusServiceUnavailable},
		{"model mismatch", domain.ErrModelMismatch, http.StatusServiceUnavailable},
		{"empty query", domain.ErrEmptyQuery, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router, chatSvc := setupRouter()
			chatSvc.On("Answer", mock.Anything, "conv-1", "q").Return(nil, tt.err)

			w := postChat(t, router, map[string]string{
				"conversation_id": "conv-1",
				"query":           "q",
			})

			assert.Equal(t, tt.wantStatus, w.Code)
		})
	}
}
