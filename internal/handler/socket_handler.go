package handler

import (
	"errors"

	"ai-assistant-studio-be/internal/entity"
	"ai-assistant-studio-be/internal/pkg/logger"
	"ai-assistant-studio-be/internal/service"
	internalWS "ai-assistant-studio-be/internal/websocket"
	"ai-assistant-studio-be/pkg/events"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

type SocketHandler struct {
	hub        *internalWS.Hub
	assistants service.IAssistantService
	voice      service.IVoiceService
	publisher  events.Publisher
	logger     logger.ILogger
	// voiceLogger receives the per-message voice traffic
	voiceLogger logger.ILogger
}

func NewSocketHandler(
	hub *internalWS.Hub,
	assistants service.IAssistantService,
	voice service.IVoiceService,
	publisher events.Publisher,
	log logger.ILogger,
	voiceLog logger.ILogger,
) *SocketHandler {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	if voiceLog == nil {
		voiceLog = log
	}
	return &SocketHandler{
		hub:         hub,
		assistants:  assistants,
		voice:       voice,
		publisher:   publisher,
		logger:      log,
		voiceLogger: voiceLog,
	}
}

// ServeDashboard upgrades to the dashboard event stream.
func (h *SocketHandler) ServeDashboard(c *fiber.Ctx) error {
	if !websocket.IsWebSocketUpgrade(c) {
		return fiber.ErrUpgradeRequired
	}
	return websocket.New(func(conn *websocket.Conn) {
		internalWS.ServeDashboard(h.hub, conn)
	})(c)
}

// ServeVoice upgrades to the voice capture protocol of one assistant.
func (h *SocketHandler) ServeVoice(c *fiber.Ctx) error {
	assistantId := c.Params("id")
	if _, err := h.assistants.Find(c.UserContext(), assistantId); err != nil {
		if errors.Is(err, entity.ErrAssistantNotFound) {
			return fiber.NewError(fiber.StatusNotFound, err.Error())
		}
		return err
	}
	if !websocket.IsWebSocketUpgrade(c) {
		return fiber.ErrUpgradeRequired
	}

	return websocket.New(func(conn *websocket.Conn) {
		internalWS.ServeVoice(conn, assistantId, h.voice, h.voiceLogger)
	})(c)
}

// DebugTriggerEvent publishes an arbitrary event on the bus.
func (h *SocketHandler) DebugTriggerEvent(c *fiber.Ctx) error {
	type Request struct {
		Type    string                 `json:"type"`
		Payload map[string]interface{} `json:"payload"`
	}
	var req Request
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	if req.Type == "" {
		req.Type = "debug.test"
	}
	if req.Payload == nil {
		req.Payload = make(map[string]interface{})
	}

	evt := events.New(req.Type, req.Payload)
	if err := h.publisher.Publish(c.UserContext(), evt); err != nil {
		h.logger.Warn("SocketHandler", "Debug event not published", map[string]interface{}{"error": err.Error()})
		return fiber.NewError(fiber.StatusServiceUnavailable, err.Error())
	}
	return c.JSON(fiber.Map{"status": "Event Published", "event": evt})
}

// RegisterRoutes registers the websocket routes.
func (h *SocketHandler) RegisterRoutes(router fiber.Router) {
	ws := router.Group("/ws")
	ws.Get("/dashboard", h.ServeDashboard)
	ws.Get("/assistant/:id/voice", h.ServeVoice)

	debug := router.Group("/debug")
	debug.Post("/trigger-event", h.DebugTriggerEvent)
}
