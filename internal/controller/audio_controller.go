package controller

import (
	"strings"

	"github.com/gofiber/fiber/v2"
)

// ArtifactSource serves stored voice notes.
type ArtifactSource interface {
	Get(id string) (mimeType string, data []byte, ok bool)
}

type IAudioController interface {
	RegisterRoutes(r fiber.Router)
	Show(ctx *fiber.Ctx) error
}

type audioController struct {
	artifacts ArtifactSource
}

func NewAudioController(artifacts ArtifactSource) IAudioController {
	return &audioController{artifacts: artifacts}
}

func (c *audioController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/audio/v1")
	h.Get(":id", c.Show)
}

func (c *audioController) Show(ctx *fiber.Ctx) error {
	mimeType, data, ok := c.artifacts.Get(ctx.Params("id"))
	if !ok {
		return fiber.NewError(fiber.StatusNotFound, "voice note not found")
	}

	ctx.Set(fiber.HeaderContentType, mimeType)
	ctx.Set(fiber.HeaderCacheControl, "private, max-age=3600")
	if ctx.QueryBool("download") {
		ctx.Attachment("voice-note" + extensionFor(mimeType))
		ctx.Set(fiber.HeaderContentType, mimeType)
	}
	return ctx.Send(data)
}

func extensionFor(mimeType string) string {
	switch {
	case strings.HasPrefix(mimeType, "audio/ogg"):
		return ".ogg"
	case strings.HasPrefix(mimeType, "audio/webm"):
		return ".webm"
	case strings.HasPrefix(mimeType, "audio/wav"):
		return ".wav"
	default:
		return ""
	}
}
