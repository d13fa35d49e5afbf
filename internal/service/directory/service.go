// Package directory exposes a read-only view of user contact info and
// channel preferences, cached briefly in Redis to keep delivery off the
// users table's hot path.
package directory

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/travel-guide-ai/travelmate-notifications/internal/domain"
	"github.com/travel-guide-ai/travelmate-notifications/internal/repository"
)

const cacheTTL = 5 * time.Minute

type Service interface {
	GetContactInfo(ctx context.Context, userID uuid.UUID) (*domain.ContactInfo, error)
}

type service struct {
	userRepo repository.UserRepository
	redis    *redis.Client
}

func NewService(userRepo repository.UserRepository, redis *redis.Client) Service {
	return &service{
		userRepo: userRepo,
		redis:    redis,
	}
}

func (s *service) GetContactInfo(ctx context.Context, userID uuid.UUID) (*domain.ContactInfo, error) {
	cacheKey := fmt.Sprintf("directory:contact:%s", userID)

	if s.redis != nil {
		if cached, err := s.redis.Get(ctx, cacheKey).Result(); err == nil {
			var info domain.ContactInfo
			if json.Unmarshal([]byte(cached), &info) == nil {
				return &info, nil
			}
		}
	}

	info, err := s.userRepo.GetContactInfo(ctx, userID)
	if err != nil {
		return nil, err
	}

	if s.redis != nil {
		if payload, err := json.Marshal(info); err == nil {
			s.redis.Set(ctx, cacheKey, payload, cacheTTL)
		}
	}

	return info, nil
}
