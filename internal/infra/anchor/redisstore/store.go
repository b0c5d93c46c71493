package redisstore

import (
	"context"
	"errors"
	"fmt"

	"batchattest/internal/domain"
	"batchattest/internal/infra/anchor"
	"batchattest/internal/infra/codec"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const defaultKeyPrefix = "batchattest:"

// storeScript writes the attestation under its transaction key unless the same
// payload hash was anchored before, in which case the earlier id is returned.
var storeScript = redis.NewScript(`
local existing = redis.call("GET", KEYS[2])
if existing then
  return existing
end
if redis.call("SET", KEYS[1], ARGV[1], "NX") then
  redis.call("SET", KEYS[2], ARGV[2])
  return ARGV[2]
end
return redis.error_reply("transaction id collision")
`)

type Store struct {
	client *redis.Client
	prefix string
	format codec.Format
}

type Options struct {
	Addr      string
	Password  string
	DB        int
	KeyPrefix string
	Format    codec.Format
}

func New(opts Options) (*Store, error) {
	if opts.Addr == "" {
		return nil, errors.New("redis addr is required")
	}
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})
	return NewWithClient(client, opts.KeyPrefix, opts.Format)
}

func NewWithClient(client *redis.Client, prefix string, format codec.Format) (*Store, error) {
	if client == nil {
		return nil, errors.New("redis client is required")
	}
	if prefix == "" {
		prefix = defaultKeyPrefix
	}
	if format == "" {
		format = codec.FormatJSON
	}
	return &Store{client: client, prefix: prefix, format: format}, nil
}

func (s *Store) Name() string {
	return "redis"
}

func (s *Store) Store(ctx context.Context, att domain.BatchAttestation) (string, error) {
	payload, err := anchor.BuildPayload(att)
	if err != nil {
		return "", err
	}
	body, err := codec.Encode(att, s.format)
	if err != nil {
		return "", err
	}
	txID := uuid.NewString()
	keys := []string{s.txKey(txID), s.payloadKey(payload.HashHex)}
	result, err := storeScript.Run(ctx, s.client, keys, body, txID).Text()
	if err != nil {
		return "", fmt.Errorf("%w: redis store: %w", domain.ErrAnchoringUnavailable, err)
	}
	return result, nil
}

func (s *Store) Retrieve(ctx context.Context, txID string) (domain.BatchAttestation, error) {
	body, err := s.client.Get(ctx, s.txKey(txID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.BatchAttestation{}, fmt.Errorf("%w: transaction %s", domain.ErrNotFound, txID)
	}
	if err != nil {
		return domain.BatchAttestation{}, fmt.Errorf("%w: redis retrieve: %w", domain.ErrAnchoringUnavailable, err)
	}
	return codec.Decode(body, s.format)
}

func (s *Store) Close() error {
	return s.client.Close()
}

func (s *Store) txKey(txID string) string {
	return s.prefix + "tx:" + txID
}

func (s *Store) payloadKey(hash string) string {
	return s.prefix + "payload:" + hash
}

var _ anchor.Backend = (*Store)(nil)
