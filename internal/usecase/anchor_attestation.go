package usecase

import (
	"context"
	"errors"

	"batchattest/internal/domain"
	"batchattest/internal/infra/codec"

	"go.uber.org/zap"
)

type AnchorReceipt struct {
	TxID        string
	PayloadHash string
	RootHash    string
	RecordCount int
}

// AnchorAttestation hands an attestation to the anchoring backend exactly once.
// Backend errors are returned unchanged so the caller can decide whether to retry.
type AnchorAttestation struct {
	Anchor AnchorClient
	Logger *zap.Logger
}

func (uc *AnchorAttestation) Execute(ctx context.Context, att domain.BatchAttestation) (*AnchorReceipt, error) {
	if uc.Anchor == nil {
		return nil, errors.New("anchor client is required")
	}
	if err := codec.Validate(att); err != nil {
		return nil, err
	}
	payloadHash, _, err := codec.PayloadHash(att)
	if err != nil {
		return nil, err
	}
	logger := loggerOrNop(uc.Logger).With(
		zap.String("root_hash", att.RootHash),
		zap.String("payload_hash", payloadHash))

	txID, err := uc.Anchor.Store(ctx, att)
	if err != nil {
		logger.Warn("anchor store failed", zap.Error(err))
		return nil, err
	}
	logger.Info("attestation anchored", zap.String("tx_id", txID))
	return &AnchorReceipt{
		TxID:        txID,
		PayloadHash: payloadHash,
		RootHash:    att.RootHash,
		RecordCount: att.RecordCount,
	}, nil
}
