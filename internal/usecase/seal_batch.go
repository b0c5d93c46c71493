package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"batchattest/internal/domain"
	"batchattest/internal/infra/codec"
	"batchattest/internal/infra/merkle"

	"go.uber.org/zap"
)

// Record is one batch entry: the business key callers look it up by and the data
// committed to by its leaf.
type Record struct {
	Key  string
	Data any
}

type SealBatchRequest struct {
	Records []Record
}

type SealedBatch struct {
	Tree        *merkle.Tree
	Attestation domain.BatchAttestation
	PayloadHash string
	Policy      *domain.PolicyEvaluation
}

// SealBatch turns records into a tree and a publishable attestation. It never
// anchors; that happens off the build path via AnchorAttestation. Workers is
// handed to merkle.WithWorkers: zero builds sequentially, negative uses GOMAXPROCS.
type SealBatch struct {
	Policy  AdmissionPolicy
	Limits  domain.AdmissionLimits
	Workers int
	Clock   func() time.Time
	Logger  *zap.Logger
}

func (uc *SealBatch) Execute(ctx context.Context, req SealBatchRequest) (*SealedBatch, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(req.Records) == 0 {
		return nil, domain.ErrEmptyBatch
	}
	logger := loggerOrNop(uc.Logger)

	leaves := make([]merkle.Hash, len(req.Records))
	keys := make([]string, len(req.Records))
	for i, rec := range req.Records {
		leaf, err := merkle.EncodeLeaf(rec.Data)
		if err != nil {
			return nil, fmt.Errorf("record %d (%s): %w", i, rec.Key, err)
		}
		leaves[i] = leaf
		keys[i] = rec.Key
	}

	var opts []merkle.BuildOption
	if uc.Workers != 0 {
		opts = append(opts, merkle.WithWorkers(uc.Workers))
	}
	start := time.Now()
	tree, err := merkle.Build(leaves, opts...)
	if err != nil {
		return nil, err
	}
	buildTime := time.Since(start)

	clock := uc.Clock
	if clock == nil {
		clock = time.Now
	}
	att, err := CreateAttestation(tree, keys, clock())
	if err != nil {
		return nil, err
	}

	sealed := &SealedBatch{Tree: tree, Attestation: att}
	if uc.Policy != nil {
		eval, err := uc.Policy.Evaluate(ctx, admissionInput(att, uc.Limits))
		if err != nil {
			return nil, fmt.Errorf("evaluate admission policy: %w", err)
		}
		sealed.Policy = &eval
		if !eval.Result.Allow {
			codes := make([]string, 0, len(eval.Result.Deny))
			for _, d := range eval.Result.Deny {
				codes = append(codes, d.Code)
			}
			logger.Warn("batch rejected by admission policy",
				zap.String("root_hash", att.RootHash),
				zap.Strings("deny", codes))
			return sealed, fmt.Errorf("%w: %s", domain.ErrPolicyDenied, strings.Join(codes, ","))
		}
	}

	payloadHash, _, err := codec.PayloadHash(att)
	if err != nil {
		return nil, err
	}
	sealed.PayloadHash = payloadHash

	logger.Info("batch sealed",
		zap.String("root_hash", att.RootHash),
		zap.Int("record_count", att.RecordCount),
		zap.Int("height", tree.Height()),
		zap.Duration("build_time", buildTime),
		zap.String("payload_hash", payloadHash))
	return sealed, nil
}

func admissionInput(att domain.BatchAttestation, limits domain.AdmissionLimits) domain.AdmissionInput {
	records := make([]domain.AdmissionRecord, len(att.Records))
	for i, rec := range att.Records {
		records[i] = domain.AdmissionRecord{LogicalKey: rec.LogicalKey, Index: rec.Index}
	}
	return domain.AdmissionInput{
		RecordCount:  att.RecordCount,
		RootHash:     att.RootHash,
		LeafEncoding: att.LeafEncoding,
		Records:      records,
		Limits:       limits,
	}
}

func loggerOrNop(l *zap.Logger) *zap.Logger {
	if l == nil {
		return zap.NewNop()
	}
	return l
}
