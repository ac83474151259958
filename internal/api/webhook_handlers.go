package api

import (
	"encoding/json/v2"
	"net/http"

	"github.com/nextreadapp/nextread-server/internal/http/response"
)

// IdentityEvent is the payload the identity provider posts on user
// lifecycle changes.
type IdentityEvent struct {
	Type string `json:"type"`
	Data struct {
		ID string `json:"id"`
	} `json:"data"`
}

// handleIdentityWebhook provisions users on first contact from the
// identity provider. Repeat deliveries of the same event are harmless.
func (s *Server) handleIdentityWebhook(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var event IdentityEvent
	if err := json.UnmarshalRead(r.Body, &event); err != nil {
		response.BadRequest(w, "Invalid webhook payload", s.logger)
		return
	}

	if event.Type != "user.created" {
		s.logger.Debug("ignoring identity event", "type", event.Type)
		response.Success(w, map[string]string{"status": "ignored"}, s.logger)
		return
	}

	if event.Data.ID == "" {
		response.BadRequest(w, "Missing user id", s.logger)
		return
	}

	if err := s.recommendations.EnsureUser(ctx, event.Data.ID); err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	response.Success(w, map[string]string{"status": "ok"}, s.logger)
}
