package db

import (
	"context"
	"errors"
	"time"

	"batchattest/internal/domain"

	"gorm.io/gorm"
)

type AnchorAttemptRepository struct {
	db *gorm.DB
}

func NewAnchorAttemptRepository(db *gorm.DB) *AnchorAttemptRepository {
	return &AnchorAttemptRepository{db: db}
}

func (r *AnchorAttemptRepository) Append(ctx context.Context, attempt domain.AnchorAttempt) error {
	if r.db == nil {
		return errDBUnavailable
	}
	if attempt.Backend == "" {
		return errors.New("backend is required")
	}
	if attempt.Operation == "" {
		return errors.New("operation is required")
	}
	if attempt.Status == "" {
		return errors.New("status is required")
	}

	createdAt := attempt.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	model := AnchorAttemptModel{
		Backend:        attempt.Backend,
		Operation:      attempt.Operation,
		TxID:           stringPtrIfNotEmpty(attempt.TxID),
		Status:         attempt.Status,
		ErrorCode:      stringPtrIfNotEmpty(attempt.ErrorCode),
		PayloadHash:    stringPtrIfNotEmpty(attempt.PayloadHash),
		RootHash:       stringPtrIfNotEmpty(attempt.RootHash),
		RecordCount:    attempt.RecordCount,
		DurationMillis: attempt.Duration.Milliseconds(),
		CreatedAt:      createdAt.UTC(),
	}
	return r.db.WithContext(ctx).Create(&model).Error
}

func (r *AnchorAttemptRepository) ListByPayloadHash(ctx context.Context, payloadHash string) ([]domain.AnchorAttempt, error) {
	if r.db == nil {
		return nil, errDBUnavailable
	}
	if payloadHash == "" {
		return nil, errors.New("payload_hash is required")
	}
	var models []AnchorAttemptModel
	if err := r.db.WithContext(ctx).
		Where("payload_hash = ?", payloadHash).
		Order("created_at ASC, id ASC").
		Find(&models).Error; err != nil {
		return nil, err
	}
	out := make([]domain.AnchorAttempt, 0, len(models))
	for _, model := range models {
		out = append(out, anchorAttemptFromModel(model))
	}
	return out, nil
}

func anchorAttemptFromModel(model AnchorAttemptModel) domain.AnchorAttempt {
	return domain.AnchorAttempt{
		Backend:     model.Backend,
		Operation:   model.Operation,
		TxID:        stringValue(model.TxID),
		Status:      model.Status,
		ErrorCode:   stringValue(model.ErrorCode),
		PayloadHash: stringValue(model.PayloadHash),
		RootHash:    stringValue(model.RootHash),
		RecordCount: model.RecordCount,
		Duration:    time.Duration(model.DurationMillis) * time.Millisecond,
		CreatedAt:   model.CreatedAt,
	}
}

var _ domain.AnchorAttemptRepository = (*AnchorAttemptRepository)(nil)
