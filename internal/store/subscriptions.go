package store

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"hotel-booking-backend/internal/model"
)

type subscriptionRepo struct {
	db *gorm.DB
}

// Upsert registers the endpoint, moving it to the given user if it already exists.
func (r *subscriptionRepo) Upsert(ctx context.Context, sub *model.PushSubscription) error {
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "endpoint"}},
		DoUpdates: clause.AssignmentColumns([]string{"user_id", "p256dh", "auth"}),
	}).Create(sub).Error
	if err != nil {
		return fmt.Errorf("failed to save subscription: %w", err)
	}
	return nil
}

func (r *subscriptionRepo) Find(ctx context.Context, endpoint string) (*model.PushSubscription, error) {
	var sub model.PushSubscription
	if err := r.db.WithContext(ctx).First(&sub, "endpoint = ?", endpoint).Error; err != nil {
		return nil, translate(err, "subscription")
	}
	return &sub, nil
}

func (r *subscriptionRepo) ListByUser(ctx context.Context, userID int64) ([]model.PushSubscription, error) {
	var subs []model.PushSubscription
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).Find(&subs).Error; err != nil {
		return nil, fmt.Errorf("failed to list subscriptions of user %d: %w", userID, err)
	}
	return subs, nil
}

func (r *subscriptionRepo) Delete(ctx context.Context, endpoint string) error {
	if err := r.db.WithContext(ctx).Delete(&model.PushSubscription{Endpoint: endpoint}).Error; err != nil {
		return fmt.Errorf("failed to delete subscription %s: %w", endpoint, err)
	}
	return nil
}
