package anchor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"batchattest/internal/domain"
	"batchattest/internal/infra/codec"

	"go.uber.org/zap"
)

const DefaultTimeout = 2 * time.Second

// Backend is a concrete anchoring store. Implementations report transport
// failures as domain.ErrAnchoringUnavailable and unknown ids as domain.ErrNotFound.
type Backend interface {
	domain.AnchorClient
	Name() string
}

// Service fronts a single backend: every call gets its own deadline and is
// recorded as an AnchorAttempt when an attempt repository is configured.
type Service struct {
	backend  Backend
	attempts domain.AnchorAttemptRepository
	timeout  time.Duration
	logger   *zap.Logger
	now      func() time.Time
}

type Option func(*Service)

func WithTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.timeout = d
		}
	}
}

func WithAttempts(repo domain.AnchorAttemptRepository) Option {
	return func(s *Service) { s.attempts = repo }
}

func WithLogger(logger *zap.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func NewService(backend Backend, opts ...Option) (*Service, error) {
	if backend == nil {
		return nil, errors.New("anchor backend is required")
	}
	if backend.Name() == "" {
		return nil, errors.New("anchor backend name is required")
	}
	s := &Service{
		backend: backend,
		timeout: DefaultTimeout,
		logger:  zap.NewNop(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func (s *Service) Backend() string {
	return s.backend.Name()
}

func (s *Service) Store(ctx context.Context, att domain.BatchAttestation) (string, error) {
	if s == nil {
		return "", errors.New("anchor service is nil")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	payload, err := BuildPayload(att)
	if err != nil {
		return "", err
	}

	start := s.now()
	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	txID, err := s.backend.Store(callCtx, att)
	err = classify(callCtx, err)
	cancel()

	attempt := domain.AnchorAttempt{
		Backend:     s.backend.Name(),
		Operation:   domain.AnchorOpStore,
		TxID:        txID,
		Status:      domain.AnchorStatusAnchored,
		PayloadHash: payload.HashHex,
		RootHash:    payload.RootHash,
		RecordCount: payload.RecordCount,
		Duration:    s.now().Sub(start),
		CreatedAt:   start.UTC(),
	}
	if err != nil {
		attempt.TxID = ""
		attempt.Status = domain.AnchorStatusFailed
		attempt.ErrorCode = ErrorCode(err)
	}
	s.persistAttempt(ctx, attempt)
	if err != nil {
		return "", err
	}
	return txID, nil
}

func (s *Service) Retrieve(ctx context.Context, txID string) (domain.BatchAttestation, error) {
	if s == nil {
		return domain.BatchAttestation{}, errors.New("anchor service is nil")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if txID == "" {
		return domain.BatchAttestation{}, fmt.Errorf("%w: empty transaction id", domain.ErrNotFound)
	}

	start := s.now()
	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	att, err := s.backend.Retrieve(callCtx, txID)
	err = classify(callCtx, err)
	cancel()

	attempt := domain.AnchorAttempt{
		Backend:   s.backend.Name(),
		Operation: domain.AnchorOpRetrieve,
		TxID:      txID,
		Status:    domain.AnchorStatusRetrieved,
		Duration:  s.now().Sub(start),
		CreatedAt: start.UTC(),
	}
	if err == nil {
		if verr := validateRetrieved(&att); verr != nil {
			err = verr
		} else if payload, perr := BuildPayload(att); perr == nil {
			attempt.PayloadHash = payload.HashHex
			attempt.RootHash = payload.RootHash
			attempt.RecordCount = payload.RecordCount
		}
	}
	if err != nil {
		attempt.Status = domain.AnchorStatusFailed
		attempt.ErrorCode = ErrorCode(err)
	}
	s.persistAttempt(ctx, attempt)
	if err != nil {
		return domain.BatchAttestation{}, err
	}
	return att, nil
}

func (s *Service) persistAttempt(ctx context.Context, attempt domain.AnchorAttempt) {
	logger := s.logger.With(
		zap.String("backend", attempt.Backend),
		zap.String("operation", attempt.Operation),
		zap.String("status", attempt.Status),
		zap.String("tx_id", attempt.TxID),
		zap.Duration("duration", attempt.Duration))
	if attempt.Status == domain.AnchorStatusFailed {
		logger.Warn("anchor call failed", zap.String("error_code", attempt.ErrorCode))
	} else {
		logger.Debug("anchor call completed")
	}
	if s.attempts == nil {
		return
	}
	// Attempt rows are best effort; the backend result stands either way.
	if err := s.attempts.Append(context.WithoutCancel(ctx), attempt); err != nil {
		logger.Error("persist anchor attempt", zap.Error(err))
	}
}

func validateRetrieved(att *domain.BatchAttestation) error {
	if err := codec.Validate(*att); err != nil {
		return err
	}
	att.Reindex()
	return nil
}

// classify maps deadline expiry of the per-call context onto the
// unavailability error so callers see a single retryable condition.
func classify(callCtx context.Context, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, domain.ErrAnchoringUnavailable) || errors.Is(err, domain.ErrNotFound) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(callCtx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w: %w", domain.ErrAnchoringUnavailable, context.DeadlineExceeded)
	}
	return err
}

func ErrorCode(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, context.DeadlineExceeded):
		return domain.AnchorErrorTimeout
	case errors.Is(err, domain.ErrNotFound):
		return domain.AnchorErrorNotFound
	case errors.Is(err, domain.ErrAnchoringUnavailable):
		return domain.AnchorErrorUnavailable
	default:
		return domain.AnchorErrorRejected
	}
}
