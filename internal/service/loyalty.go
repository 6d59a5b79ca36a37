package service

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/quickbite-kitchen/quickbite-orders-service/internal/repository"
)

// Loyalty tiers, by accumulated points. One point per currency unit spent on
// completed orders.
const (
	TierBronze = "bronze"
	TierSilver = "silver"
	TierGold   = "gold"

	silverThreshold = 200
	goldThreshold   = 1000
)

// LoyaltySummary is the customer-facing points display.
type LoyaltySummary struct {
	Points          int64  `json:"points"`
	Tier            string `json:"tier"`
	CompletedOrders int    `json:"completed_orders"`
	NextTierAt      int64  `json:"next_tier_at,omitempty"`
}

// LoyaltyService computes points and tier from completed order history.
type LoyaltyService struct {
	orderRepo repository.OrderRepository
	logger    *logrus.Entry
}

// NewLoyaltyService creates a new loyalty service.
func NewLoyaltyService(orderRepo repository.OrderRepository, logger *logrus.Logger) *LoyaltyService {
	return &LoyaltyService{
		orderRepo: orderRepo,
		logger:    logger.WithField("component", "loyalty-service"),
	}
}

// Summary returns the loyalty standing for a customer phone number.
func (s *LoyaltyService) Summary(ctx context.Context, phone string) (*LoyaltySummary, error) {
	totalCents, orders, err := s.orderRepo.CompletedTotalByPhone(ctx, phone)
	if err != nil {
		return nil, err
	}

	points := totalCents / 100
	summary := &LoyaltySummary{
		Points:          points,
		Tier:            tierFor(points),
		CompletedOrders: orders,
	}

	switch summary.Tier {
	case TierBronze:
		summary.NextTierAt = silverThreshold
	case TierSilver:
		summary.NextTierAt = goldThreshold
	}

	return summary, nil
}

func tierFor(points int64) string {
	switch {
	case points >= goldThreshold:
		return TierGold
	case points >= silverThreshold:
		return TierSilver
	default:
		return TierBronze
	}
}
