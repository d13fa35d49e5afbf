package notification

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/travel-guide-ai/travelmate-notifications/internal/domain"
	"github.com/travel-guide-ai/travelmate-notifications/internal/queue"
	"github.com/travel-guide-ai/travelmate-notifications/internal/repository"
	"github.com/travel-guide-ai/travelmate-notifications/internal/service/directory"
)

type Service interface {
	// Create inserts a new notification or merges it into an existing unread
	// group. The second return value reports which of the two happened.
	Create(ctx context.Context, input domain.CreateNotificationInput) (*domain.Notification, bool, error)

	List(ctx context.Context, recipientID uuid.UUID, filter domain.NotificationFilter, params domain.PaginationParams) (domain.PaginatedResponse[domain.Notification], error)
	MarkRead(ctx context.Context, recipientID, id uuid.UUID) error
	MarkAllRead(ctx context.Context, recipientID uuid.UUID) (int64, error)
	Archive(ctx context.Context, recipientID, id uuid.UUID) error
	Delete(ctx context.Context, recipientID, id uuid.UUID) error
	Stats(ctx context.Context, recipientID uuid.UUID) (*domain.NotificationStats, error)

	NotifyUserFollowed(ctx context.Context, followerID, followedID uuid.UUID) (*domain.Notification, bool, error)
	NotifyReviewPosted(ctx context.Context, reviewerID, destinationID, ownerID uuid.UUID) (*domain.Notification, bool, error)
	NotifyItineraryShared(ctx context.Context, sharerID, itineraryID, recipientID uuid.UUID) (*domain.Notification, bool, error)
	NotifyBookingConfirmed(ctx context.Context, recipientID, itineraryID uuid.UUID, reference string) (*domain.Notification, bool, error)
	NotifyWelcome(ctx context.Context, userID uuid.UUID) (*domain.Notification, bool, error)
	NotifyTravelAlert(ctx context.Context, userID uuid.UUID, message string) (*domain.Notification, bool, error)
}

type service struct {
	notifRepo      repository.NotificationRepository
	directory      directory.Service
	enqueuer       queue.Enqueuer
	validate       *validator.Validate
	groupingWindow time.Duration
	logger         *slog.Logger
}

func NewService(notifRepo repository.NotificationRepository, dir directory.Service, enqueuer queue.Enqueuer, groupingWindow time.Duration, logger *slog.Logger) Service {
	if groupingWindow <= 0 {
		groupingWindow = 24 * time.Hour
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &service{
		notifRepo:      notifRepo,
		directory:      dir,
		enqueuer:       enqueuer,
		validate:       validator.New(),
		groupingWindow: groupingWindow,
		logger:         logger,
	}
}

func (s *service) Create(ctx context.Context, input domain.CreateNotificationInput) (*domain.Notification, bool, error) {
	if err := s.validate.Struct(input); err != nil {
		return nil, false, fmt.Errorf("%w: %s", domain.ErrValidation, validationDetail(err))
	}

	notif := buildNotification(input)

	if input.GroupKey == "" {
		if err := s.notifRepo.Insert(ctx, notif); err != nil {
			return nil, false, fmt.Errorf("failed to create notification: %w", err)
		}
		s.enqueueDelivery(ctx, notif)
		return notif, false, nil
	}

	template := domain.GroupMessageTemplate(input.Type)

	result, merged, err := s.notifRepo.UpsertGrouped(ctx, notif, template, s.groupingWindow)
	if repository.IsConflict(err) {
		// The atomic upsert lost a race; one retry, then surface as transient.
		result, merged, err = s.notifRepo.UpsertGrouped(ctx, notif, template, s.groupingWindow)
		if repository.IsConflict(err) {
			return nil, false, fmt.Errorf("%w: grouping write for key %q", domain.ErrConflict, input.GroupKey)
		}
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to create notification: %w", err)
	}

	if !merged {
		s.enqueueDelivery(ctx, result)
	}
	return result, merged, nil
}

// enqueueDelivery detaches fan-out from the creating caller. Delivery is
// best-effort: an enqueue failure is logged and never fails the create.
func (s *service) enqueueDelivery(ctx context.Context, notif *domain.Notification) {
	if s.enqueuer == nil {
		return
	}
	if err := s.enqueuer.EnqueueDeliver(ctx, notif.ID, notif.ScheduledFor); err != nil {
		s.logger.Warn("failed to enqueue notification delivery",
			slog.String("notification_id", notif.ID.String()),
			slog.Any("error", err))
	}
}

func (s *service) List(ctx context.Context, recipientID uuid.UUID, filter domain.NotificationFilter, params domain.PaginationParams) (domain.PaginatedResponse[domain.Notification], error) {
	notifications, total, err := s.notifRepo.List(ctx, recipientID, filter, params)
	if err != nil {
		return domain.PaginatedResponse[domain.Notification]{}, err
	}

	params.Validate()
	return domain.NewPaginatedResponse(notifications, params.Page, params.PageSize, total), nil
}

func (s *service) MarkRead(ctx context.Context, recipientID, id uuid.UUID) error {
	return s.notifRepo.MarkRead(ctx, recipientID, id)
}

func (s *service) MarkAllRead(ctx context.Context, recipientID uuid.UUID) (int64, error) {
	return s.notifRepo.MarkAllRead(ctx, recipientID)
}

func (s *service) Archive(ctx context.Context, recipientID, id uuid.UUID) error {
	return s.notifRepo.Archive(ctx, recipientID, id)
}

func (s *service) Delete(ctx context.Context, recipientID, id uuid.UUID) error {
	return s.notifRepo.Delete(ctx, recipientID, id)
}

func (s *service) Stats(ctx context.Context, recipientID uuid.UUID) (*domain.NotificationStats, error) {
	return s.notifRepo.Stats(ctx, recipientID)
}

func (s *service) NotifyUserFollowed(ctx context.Context, followerID, followedID uuid.UUID) (*domain.Notification, bool, error) {
	follower, err := s.directory.GetContactInfo(ctx, followerID)
	if err != nil {
		return nil, false, fmt.Errorf("failed to get follower: %w", err)
	}

	return s.Create(ctx, domain.CreateNotificationInput{
		RecipientID: followedID,
		SenderID:    &followerID,
		Type:        domain.NotifFollow,
		Title:       "New Follower",
		Message:     fmt.Sprintf("%s started following you", follower.FullName),
		Data: domain.NotificationData{
			EntityType: domain.EntityUser,
			EntityID:   &followerID,
			ActionURL:  fmt.Sprintf("/profile/%s", followerID),
		},
		Channels: &domain.Channels{InApp: true, Push: true},
		GroupKey: fmt.Sprintf("follow_%s", followedID),
	})
}

func (s *service) NotifyReviewPosted(ctx context.Context, reviewerID, destinationID, ownerID uuid.UUID) (*domain.Notification, bool, error) {
	reviewer, err := s.directory.GetContactInfo(ctx, reviewerID)
	if err != nil {
		return nil, false, fmt.Errorf("failed to get reviewer: %w", err)
	}

	return s.Create(ctx, domain.CreateNotificationInput{
		RecipientID: ownerID,
		SenderID:    &reviewerID,
		Type:        domain.NotifReview,
		Title:       "New Review",
		Message:     fmt.Sprintf("%s posted a review on a destination you bookmarked", reviewer.FullName),
		Data: domain.NotificationData{
			EntityType: domain.EntityDestination,
			EntityID:   &destinationID,
			ActionURL:  fmt.Sprintf("/destinations/%s#reviews", destinationID),
		},
		Channels: &domain.Channels{InApp: true},
		GroupKey: fmt.Sprintf("review_%s", destinationID),
	})
}

func (s *service) NotifyItineraryShared(ctx context.Context, sharerID, itineraryID, recipientID uuid.UUID) (*domain.Notification, bool, error) {
	sharer, err := s.directory.GetContactInfo(ctx, sharerID)
	if err != nil {
		return nil, false, fmt.Errorf("failed to get sharer: %w", err)
	}

	return s.Create(ctx, domain.CreateNotificationInput{
		RecipientID: recipientID,
		SenderID:    &sharerID,
		Type:        domain.NotifItineraryShared,
		Title:       "Itinerary Shared",
		Message:     fmt.Sprintf("%s shared an itinerary with you", sharer.FullName),
		Data: domain.NotificationData{
			EntityType: domain.EntityItinerary,
			EntityID:   &itineraryID,
			ActionURL:  fmt.Sprintf("/itineraries/%s", itineraryID),
		},
		Priority: domain.PriorityHigh,
		Channels: &domain.Channels{InApp: true, Email: true, Push: true},
	})
}

func (s *service) NotifyBookingConfirmed(ctx context.Context, recipientID, itineraryID uuid.UUID, reference string) (*domain.Notification, bool, error) {
	return s.Create(ctx, domain.CreateNotificationInput{
		RecipientID: recipientID,
		Type:        domain.NotifBookingConfirmation,
		Title:       "Booking Confirmed",
		Message:     fmt.Sprintf("Your booking %s is confirmed", reference),
		Data: domain.NotificationData{
			EntityType: domain.EntityItinerary,
			EntityID:   &itineraryID,
			ActionURL:  fmt.Sprintf("/itineraries/%s", itineraryID),
			Metadata:   map[string]any{"reference": reference},
		},
		Priority: domain.PriorityHigh,
		Channels: &domain.Channels{InApp: true, Email: true, Push: true, Sms: true},
	})
}

func (s *service) NotifyWelcome(ctx context.Context, userID uuid.UUID) (*domain.Notification, bool, error) {
	return s.Create(ctx, domain.CreateNotificationInput{
		RecipientID: userID,
		Type:        domain.NotifWelcome,
		Title:       "Welcome to TravelMate!",
		Message:     "Welcome to TravelMate! Start exploring amazing destinations and creating your travel memories.",
		Data: domain.NotificationData{
			EntityType: domain.EntitySystem,
			ActionURL:  "/explore",
		},
		Priority: domain.PriorityHigh,
		Channels: &domain.Channels{InApp: true, Email: true},
	})
}

func (s *service) NotifyTravelAlert(ctx context.Context, userID uuid.UUID, message string) (*domain.Notification, bool, error) {
	return s.Create(ctx, domain.CreateNotificationInput{
		RecipientID: userID,
		Type:        domain.NotifTravelAlert,
		Title:       "Travel Alert",
		Message:     message,
		Data: domain.NotificationData{
			EntityType: domain.EntitySystem,
		},
		Priority: domain.PriorityUrgent,
		Channels: &domain.Channels{InApp: true, Email: true, Push: true},
	})
}

func buildNotification(input domain.CreateNotificationInput) *domain.Notification {
	channels := domain.Channels{InApp: true}
	if input.Channels != nil {
		channels = *input.Channels
		channels.InApp = true
	}

	priority := input.Priority
	if priority == "" {
		priority = domain.PriorityNormal
	}

	notif := &domain.Notification{
		ID:           uuid.New(),
		RecipientID:  input.RecipientID,
		SenderID:     input.SenderID,
		Type:         input.Type,
		Title:        input.Title,
		Message:      input.Message,
		Data:         input.Data,
		Status:       domain.StatusUnread,
		Priority:     priority,
		Channels:     channels,
		ScheduledFor: input.ScheduledFor,
		ExpiresAt:    input.ExpiresAt,
		GroupCount:   1,
	}
	if input.GroupKey != "" {
		key := input.GroupKey
		notif.GroupKey = &key
	}
	return notif
}

func validationDetail(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}

	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		parts = append(parts, fmt.Sprintf("%s failed on %s", fe.Field(), fe.Tag()))
	}
	return strings.Join(parts, "; ")
}
