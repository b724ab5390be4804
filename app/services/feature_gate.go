// Package services provides external service integrations and technical concerns like notifications and tokens
package services

import (
	"context"
	"fmt"
	"log"

	"github.com/evercare-app/notification-service/config"
	"github.com/evercare-app/notification-service/models"
	"github.com/evercare-app/notification-service/repository"
	"github.com/evercare-app/notification-service/utils"
	"github.com/redis/go-redis/v9"
)

// PlanGate decides which notification types a user's plan permits
type PlanGate interface {
	IsTypePermitted(ctx context.Context, userID uint, t models.NotificationType) (bool, error)
}

// planTypes maps each plan to its permitted notification types. Higher plans
// are supersets of lower ones.
var planTypes = map[models.SubscriptionPlan]map[models.NotificationType]bool{
	models.PlanFree: {
		models.NotificationTypeMedication: true,
		models.NotificationTypeMessage:    true,
	},
	models.PlanFamily: {
		models.NotificationTypeMedication: true,
		models.NotificationTypeMessage:    true,
		models.NotificationTypeWellness:   true,
		models.NotificationTypeIncident:   true,
	},
	models.PlanProfessional: {
		models.NotificationTypeMedication:   true,
		models.NotificationTypeMessage:      true,
		models.NotificationTypeWellness:     true,
		models.NotificationTypeIncident:     true,
		models.NotificationTypeConversation: true,
	},
}

// PlanGateImpl implements PlanGate with a redis plan cache in front of the
// subscription store
type PlanGateImpl struct {
	subscriptionRepo repository.SubscriptionRepository
	rc               *redis.Client
	cacheConfig      *config.CacheConfig
	logger           *log.Logger
}

// NewPlanGate creates a new plan gate. rc may be nil when caching is disabled.
func NewPlanGate(subscriptionRepo repository.SubscriptionRepository, rc *redis.Client, cacheConfig *config.CacheConfig, logger *log.Logger) PlanGate {
	return &PlanGateImpl{
		subscriptionRepo: subscriptionRepo,
		rc:               rc,
		cacheConfig:      cacheConfig,
		logger:           logger,
	}
}

// IsTypePermitted resolves the user's effective plan and checks the type
// against the plan table. Cache errors fall through to the store; the gate
// never fails closed because redis is down.
func (g *PlanGateImpl) IsTypePermitted(ctx context.Context, userID uint, t models.NotificationType) (bool, error) {
	plan, err := g.effectivePlan(ctx, userID)
	if err != nil {
		return false, err
	}
	return planTypes[plan][t], nil
}

func (g *PlanGateImpl) effectivePlan(ctx context.Context, userID uint) (models.SubscriptionPlan, error) {
	cacheKey := g.planCacheKey(userID)

	if g.cacheEnabled() {
		if cached, err := g.rc.Get(ctx, cacheKey).Result(); err == nil {
			plan := models.SubscriptionPlan(cached)
			if plan.Valid() {
				return plan, nil
			}
		} else if err != redis.Nil {
			g.logger.Printf("plan cache read failed for user %d: %v", userID, err)
		}
	}

	sub, err := g.subscriptionRepo.ByUserID(ctx, userID)
	if err != nil {
		return "", fmt.Errorf("failed to load subscription for user %d: %w", userID, err)
	}

	plan := models.PlanFree
	if sub != nil {
		plan = sub.EffectivePlan(utils.UTCNow())
	}

	if g.cacheEnabled() {
		ttl := g.cacheConfig.DefaultTTL
		if ttl <= 0 {
			ttl = utils.PlanCacheTTL
		}
		if err := g.rc.Set(ctx, cacheKey, plan.String(), ttl).Err(); err != nil {
			g.logger.Printf("plan cache write failed for user %d: %v", userID, err)
		}
	}

	return plan, nil
}

func (g *PlanGateImpl) cacheEnabled() bool {
	return g.rc != nil && g.cacheConfig != nil && g.cacheConfig.Enabled
}

func (g *PlanGateImpl) planCacheKey(userID uint) string {
	prefix := ""
	if g.cacheConfig != nil {
		prefix = g.cacheConfig.RedisPrefix
	}
	return fmt.Sprintf("%splan:%d", prefix, userID)
}

// MockPlanGate implements PlanGate for testing
type MockPlanGate struct {
	Denied map[models.NotificationType]bool
	Err    error
}

// NewMockPlanGate creates a gate that permits everything except the listed types
func NewMockPlanGate() *MockPlanGate {
	return &MockPlanGate{Denied: make(map[models.NotificationType]bool)}
}

// IsTypePermitted reports the configured decision
func (m *MockPlanGate) IsTypePermitted(ctx context.Context, userID uint, t models.NotificationType) (bool, error) {
	if m.Err != nil {
		return false, m.Err
	}
	return !m.Denied[t], nil
}
