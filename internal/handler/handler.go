package handler

import (
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/travel-guide-ai/travelmate-notifications/internal/domain"
	"github.com/travel-guide-ai/travelmate-notifications/internal/service"
)

type Handlers struct {
	Notification *NotificationHandler
}

func NewHandlers(services *service.Services) *Handlers {
	return &Handlers{
		Notification: NewNotificationHandler(services.Notification),
	}
}

func getPaginationParams(c *fiber.Ctx) domain.PaginationParams {
	page, _ := strconv.Atoi(c.Query("page", "1"))
	pageSize, _ := strconv.Atoi(c.Query("limit", "20"))

	params := domain.PaginationParams{Page: page, PageSize: pageSize}
	params.Validate()
	return params
}
