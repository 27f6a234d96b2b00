package controller

import (
	"errors"

	"ai-assistant-studio-be/internal/dto"
	"ai-assistant-studio-be/internal/pkg/logger"
	"ai-assistant-studio-be/internal/pkg/serverutils"

	"github.com/gofiber/fiber/v2"
)

type ILogController interface {
	RegisterRoutes(r fiber.Router)
	GetLogs(ctx *fiber.Ctx) error
	GetLogDetail(ctx *fiber.Ctx) error
}

type logController struct {
	logger logger.ILogger
}

func NewLogController(log logger.ILogger) ILogController {
	return &logController{logger: log}
}

func (c *logController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/logs/v1")
	h.Get("", c.GetLogs)
	h.Get(":id", c.GetLogDetail)
}

func toLogResponse(e logger.LogEntry) dto.LogEntryResponse {
	return dto.LogEntryResponse{
		Id:        e.Id,
		Timestamp: e.Timestamp,
		Level:     e.Level,
		Module:    e.Module,
		Message:   e.Message,
		Details:   e.Details,
	}
}

func (c *logController) GetLogs(ctx *fiber.Ctx) error {
	page := ctx.QueryInt("page", 1)
	limit := ctx.QueryInt("limit", 20)
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 500 {
		limit = 20
	}

	entries, err := c.logger.GetLogs(ctx.Query("level"), limit, (page-1)*limit)
	if err != nil {
		return err
	}

	items := make([]dto.LogEntryResponse, len(entries))
	for i, e := range entries {
		items[i] = toLogResponse(e)
	}
	return ctx.JSON(serverutils.SuccessResponse("System logs", dto.LogListResponse{
		Page:  page,
		Limit: limit,
		Items: items,
	}))
}

func (c *logController) GetLogDetail(ctx *fiber.Ctx) error {
	entry, err := c.logger.GetLogById(ctx.Params("id"))
	if err != nil {
		if errors.Is(err, logger.ErrLogNotFound) {
			return fiber.NewError(fiber.StatusNotFound, "log not found")
		}
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Log detail", toLogResponse(*entry)))
}
