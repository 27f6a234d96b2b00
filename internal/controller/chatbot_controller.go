package controller

import (
	"ai-assistant-studio-be/internal/dto"
	"ai-assistant-studio-be/internal/pkg/serverutils"
	"ai-assistant-studio-be/internal/service"

	"github.com/gofiber/fiber/v2"
)

type IChatbotController interface {
	RegisterRoutes(r fiber.Router)
	GetHistory(ctx *fiber.Ctx) error
	SendMessage(ctx *fiber.Ctx) error
	ClearHistory(ctx *fiber.Ctx) error
}

type chatbotController struct {
	service service.IChatbotService
}

func NewChatbotController(service service.IChatbotService) IChatbotController {
	return &chatbotController{service: service}
}

func (c *chatbotController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/chat/v1")
	h.Get(":assistantId/messages", c.GetHistory)
	h.Post(":assistantId/messages", c.SendMessage)
	h.Delete(":assistantId/messages", c.ClearHistory)
}

func (c *chatbotController) GetHistory(ctx *fiber.Ctx) error {
	res, err := c.service.History(ctx.UserContext(), ctx.Params("assistantId"))
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success get chat history", res))
}

// SendMessage stores the user message and returns at once; the reply is
// pushed over the dashboard socket when it is ready.
func (c *chatbotController) SendMessage(ctx *fiber.Ctx) error {
	var req dto.SendMessageRequest
	if err := ctx.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.service.SendText(ctx.UserContext(), ctx.Params("assistantId"), &req)
	if err != nil {
		return err
	}

	return ctx.Status(fiber.StatusAccepted).JSON(serverutils.SuccessResponse("Message sent", res))
}

func (c *chatbotController) ClearHistory(ctx *fiber.Ctx) error {
	if err := c.service.Clear(ctx.UserContext(), ctx.Params("assistantId")); err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse[any]("Success clear chat history", nil))
}
