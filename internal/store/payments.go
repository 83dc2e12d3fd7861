package store

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"hotel-booking-backend/internal/model"
)

type paymentRepo struct {
	db *gorm.DB
}

func (r *paymentRepo) Create(ctx context.Context, p *model.Payment) error {
	if err := r.db.WithContext(ctx).Create(p).Error; err != nil {
		return translate(err, "payment")
	}
	return nil
}

func (r *paymentRepo) FindByID(ctx context.Context, id int64) (*model.Payment, error) {
	var p model.Payment
	if err := r.db.WithContext(ctx).First(&p, id).Error; err != nil {
		return nil, translate(err, "payment")
	}
	return &p, nil
}

func (r *paymentRepo) FindByTransactionID(ctx context.Context, transactionID string) (*model.Payment, error) {
	var p model.Payment
	if err := r.db.WithContext(ctx).Where("transaction_id = ?", transactionID).First(&p).Error; err != nil {
		return nil, translate(err, "payment")
	}
	return &p, nil
}

func (r *paymentRepo) ListByBooking(ctx context.Context, bookingID int64) ([]model.Payment, error) {
	var payments []model.Payment
	if err := r.db.WithContext(ctx).Where("booking_id = ?", bookingID).Order("id").Find(&payments).Error; err != nil {
		return nil, fmt.Errorf("failed to list payments of booking %d: %w", bookingID, err)
	}
	return payments, nil
}

func (r *paymentRepo) Transition(ctx context.Context, id int64, from []model.PaymentStatus, to model.PaymentStatus, fields map[string]any) (bool, error) {
	updates := map[string]any{"status": to}
	for k, v := range fields {
		updates[k] = v
	}
	res := r.db.WithContext(ctx).Model(&model.Payment{}).
		Where("id = ? AND status IN ?", id, from).
		Updates(updates)
	if res.Error != nil {
		return false, fmt.Errorf("failed to move payment %d to %s: %w", id, to, res.Error)
	}
	return res.RowsAffected == 1, nil
}
