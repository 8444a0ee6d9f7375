package handlers

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"

	"github.com/Banditcantcode/Banditbot/internal/auth"
	"github.com/Banditcantcode/Banditbot/internal/service"
	"github.com/Banditcantcode/Banditbot/pkg/util"
)

// TranscriptHandler serves parked transcript artifacts to holders of a
// signed download link.
type TranscriptHandler struct {
	store  service.ArtifactStore
	tokens *auth.TokenManager
}

// NewTranscriptHandler returns a new handler instance.
func NewTranscriptHandler(store service.ArtifactStore, tokens *auth.TokenManager) *TranscriptHandler {
	return &TranscriptHandler{store: store, tokens: tokens}
}

// Download validates the token against the requested artifact and streams
// the HTML body.
func (h *TranscriptHandler) Download(c *fiber.Ctx) error {
	artifactID := c.Params("id")
	token := c.Query("token")
	if token == "" {
		return util.NewUnauthorized("missing download token")
	}
	if _, err := h.tokens.ParseToken(token, artifactID); err != nil {
		return util.NewUnauthorized("invalid or expired download token")
	}

	artifact, err := h.store.Get(c.UserContext(), artifactID)
	if err != nil {
		if errors.Is(err, service.ErrArtifactNotFound) {
			return util.NewNotFound("transcript", map[string]any{"artifact_id": artifactID})
		}
		return util.NewInternalError(err)
	}

	c.Set(fiber.HeaderContentType, "text/html; charset=utf-8")
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", artifact.FileName))
	return c.Send(artifact.Body)
}
