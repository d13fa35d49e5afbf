package service

import (
	"log/slog"

	"firebase.google.com/go/v4/messaging"
	"github.com/redis/go-redis/v9"

	"github.com/travel-guide-ai/travelmate-notifications/internal/config"
	"github.com/travel-guide-ai/travelmate-notifications/internal/pkg/sms"
	"github.com/travel-guide-ai/travelmate-notifications/internal/queue"
	"github.com/travel-guide-ai/travelmate-notifications/internal/repository"
	"github.com/travel-guide-ai/travelmate-notifications/internal/service/delivery"
	"github.com/travel-guide-ai/travelmate-notifications/internal/service/directory"
	"github.com/travel-guide-ai/travelmate-notifications/internal/service/email"
	"github.com/travel-guide-ai/travelmate-notifications/internal/service/notification"
	"github.com/travel-guide-ai/travelmate-notifications/internal/service/push"
	"github.com/travel-guide-ai/travelmate-notifications/internal/service/smsadapter"
)

type Services struct {
	Notification notification.Service
	Directory    directory.Service
	Dispatcher   *delivery.Dispatcher
}

func NewServices(
	repos *repository.Repositories,
	redisClient *redis.Client,
	fcmClient *messaging.Client,
	enqueuer queue.Enqueuer,
	cfg *config.Config,
	logger *slog.Logger,
) *Services {
	directoryService := directory.NewService(repos.User, redisClient)

	emailService := email.NewService(cfg)
	pushService := push.NewService(fcmClient)

	var smsClient *sms.Client
	if cfg.SmsGatewayURL != "" {
		smsClient = sms.NewClient(cfg.SmsGatewayURL, cfg.SmsAPIKey, cfg.SmsSender)
	}
	smsService := smsadapter.NewService(smsClient)

	dispatcher := delivery.NewDispatcher(repos.Notification, emailService, pushService, smsService, logger)
	notificationService := notification.NewService(repos.Notification, directoryService, enqueuer, cfg.GroupingWindow, logger)

	return &Services{
		Notification: notificationService,
		Directory:    directoryService,
		Dispatcher:   dispatcher,
	}
}
