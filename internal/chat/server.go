package chat

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/kazz187/chipcliff/internal/llm"
	"github.com/kazz187/chipcliff/pkg/cerr"
)

// Server exposes direct chat completion against a configured provider.
type Server struct {
	gateway *llm.Gateway
}

func NewServer(gateway *llm.Gateway) *Server {
	return &Server{gateway: gateway}
}

func (s *Server) Routes(r chi.Router) {
	r.Post("/chat/{provider}", s.chat)
}

type chatRequest struct {
	Prompt string `json:"prompt"`
}

type chatResponse struct {
	Provider string `json:"provider"`
	Response string `json:"response"`
}

func (s *Server) chat(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	provider := chi.URLParam(r, "provider")

	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		cerr.SetNewJSONError(ctx, cerr.InvalidArgument, "invalid request body", err)
		return
	}
	if strings.TrimSpace(req.Prompt) == "" {
		cerr.SetNewJSONError(ctx, cerr.InvalidArgument, "prompt is required", nil)
		return
	}

	text, err := s.gateway.Complete(ctx, provider, req.Prompt)
	if err != nil {
		var perr *llm.ProviderError
		if errors.As(err, &perr) && errors.Is(perr.Err, llm.ErrUnknownProvider) {
			cerr.SetNewJSONError(ctx, cerr.NotFound, "unknown provider: "+provider, nil)
			return
		}
		cerr.SetNewJSONError(ctx, cerr.Unavailable, "chat completion failed", err)
		return
	}
	cerr.SetJSONResponse(ctx, chatResponse{Provider: provider, Response: text})
}
