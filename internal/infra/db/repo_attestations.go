package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"batchattest/internal/domain"
	"batchattest/internal/infra/anchor"
	"batchattest/internal/infra/codec"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// AttestationRepository anchors attestations in an append-only postgres table.
// Identical attestations (same payload hash) share one transaction id.
type AttestationRepository struct {
	db  *gorm.DB
	now func() time.Time
}

func NewAttestationRepository(db *gorm.DB) *AttestationRepository {
	return &AttestationRepository{db: db, now: time.Now}
}

func (r *AttestationRepository) Name() string {
	return "postgres"
}

func (r *AttestationRepository) Store(ctx context.Context, att domain.BatchAttestation) (string, error) {
	if r.db == nil {
		return "", errDBUnavailable
	}
	payload, err := anchor.BuildPayload(att)
	if err != nil {
		return "", err
	}
	model := AttestationModel{
		TxID:            uuid.NewString(),
		PayloadHash:     payload.HashHex,
		RootHash:        payload.RootHash,
		RecordCount:     payload.RecordCount,
		LeafEncoding:    att.LeafEncoding,
		AttestationJSON: payload.CanonicalJSON,
		AttestedAt:      att.CreatedAt.UTC(),
		CreatedAt:       r.now().UTC(),
	}
	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "payload_hash"}}, DoNothing: true}).
		Create(&model)
	if result.Error != nil {
		return "", fmt.Errorf("%w: insert attestation: %w", domain.ErrAnchoringUnavailable, result.Error)
	}
	if result.RowsAffected == 1 {
		return model.TxID, nil
	}

	var existing AttestationModel
	if err := r.db.WithContext(ctx).
		Select("tx_id").
		Where("payload_hash = ?", payload.HashHex).
		Take(&existing).Error; err != nil {
		return "", fmt.Errorf("%w: load existing attestation: %w", domain.ErrAnchoringUnavailable, err)
	}
	return existing.TxID, nil
}

func (r *AttestationRepository) Retrieve(ctx context.Context, txID string) (domain.BatchAttestation, error) {
	if r.db == nil {
		return domain.BatchAttestation{}, errDBUnavailable
	}
	if _, err := uuid.Parse(txID); err != nil {
		return domain.BatchAttestation{}, fmt.Errorf("%w: transaction %s", domain.ErrNotFound, txID)
	}
	var model AttestationModel
	err := r.db.WithContext(ctx).Where("tx_id = ?", txID).Take(&model).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.BatchAttestation{}, fmt.Errorf("%w: transaction %s", domain.ErrNotFound, txID)
	}
	if err != nil {
		return domain.BatchAttestation{}, fmt.Errorf("%w: load attestation: %w", domain.ErrAnchoringUnavailable, err)
	}
	return codec.Decode(model.AttestationJSON, codec.FormatJSON)
}

// ListByRootHash returns the transaction ids anchored for a root, oldest first.
func (r *AttestationRepository) ListByRootHash(ctx context.Context, rootHash string) ([]string, error) {
	if r.db == nil {
		return nil, errDBUnavailable
	}
	var ids []string
	if err := r.db.WithContext(ctx).
		Model(&AttestationModel{}).
		Where("root_hash = ?", rootHash).
		Order("created_at ASC").
		Pluck("tx_id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}

var _ anchor.Backend = (*AttestationRepository)(nil)
