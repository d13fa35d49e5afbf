package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/travel-guide-ai/travelmate-notifications/internal/domain"
	"github.com/travel-guide-ai/travelmate-notifications/internal/middleware"
	"github.com/travel-guide-ai/travelmate-notifications/internal/service/notification"
)

type NotificationHandler struct {
	notifService notification.Service
}

func NewNotificationHandler(notifService notification.Service) *NotificationHandler {
	return &NotificationHandler{notifService: notifService}
}

// Create accepts a notification for any recipient. Intended for internal
// callers (other TravelMate services) publishing events.
func (h *NotificationHandler) Create(c *fiber.Ctx) error {
	var input domain.CreateNotificationInput
	if err := c.BodyParser(&input); err != nil {
		return middleware.BadRequest("Invalid request body")
	}

	notif, merged, err := h.notifService.Create(c.Context(), input)
	if err != nil {
		return err
	}

	status := fiber.StatusCreated
	if merged {
		status = fiber.StatusOK
	}
	return c.Status(status).JSON(fiber.Map{
		"notification": notif,
		"merged":       merged,
	})
}

func (h *NotificationHandler) List(c *fiber.Ctx) error {
	userID := middleware.GetCurrentUserID(c)

	filter := domain.NotificationFilter{
		Status:   domain.NotificationStatus(c.Query("status")),
		Type:     domain.NotificationType(c.Query("type")),
		Priority: domain.NotificationPriority(c.Query("priority")),
	}
	params := getPaginationParams(c)

	result, err := h.notifService.List(c.Context(), userID, filter, params)
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusOK).JSON(result)
}

func (h *NotificationHandler) GetStats(c *fiber.Ctx) error {
	userID := middleware.GetCurrentUserID(c)

	stats, err := h.notifService.Stats(c.Context(), userID)
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusOK).JSON(stats)
}

func (h *NotificationHandler) MarkAsRead(c *fiber.Ctx) error {
	userID := middleware.GetCurrentUserID(c)

	notifID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return middleware.BadRequest("Invalid notification ID")
	}

	if err := h.notifService.MarkRead(c.Context(), userID, notifID); err != nil {
		return err
	}

	return c.Status(fiber.StatusNoContent).SendString("")
}

func (h *NotificationHandler) MarkAllAsRead(c *fiber.Ctx) error {
	userID := middleware.GetCurrentUserID(c)

	updated, err := h.notifService.MarkAllRead(c.Context(), userID)
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"updated": updated,
	})
}

func (h *NotificationHandler) Archive(c *fiber.Ctx) error {
	userID := middleware.GetCurrentUserID(c)

	notifID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return middleware.BadRequest("Invalid notification ID")
	}

	if err := h.notifService.Archive(c.Context(), userID, notifID); err != nil {
		return err
	}

	return c.Status(fiber.StatusNoContent).SendString("")
}

func (h *NotificationHandler) Delete(c *fiber.Ctx) error {
	userID := middleware.GetCurrentUserID(c)

	notifID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return middleware.BadRequest("Invalid notification ID")
	}

	if err := h.notifService.Delete(c.Context(), userID, notifID); err != nil {
		return err
	}

	return c.Status(fiber.StatusNoContent).SendString("")
}
