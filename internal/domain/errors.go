package domain

import "errors"

var (
	ErrEmptyBatch           = errors.New("empty batch")
	ErrIndexOutOfRange      = errors.New("leaf index out of range")
	ErrEncoding             = errors.New("record encoding failed")
	ErrKeyCountMismatch     = errors.New("logical key count mismatch")
	ErrDuplicateKey         = errors.New("duplicate logical key")
	ErrRootMismatch         = errors.New("attestation root does not match tree")
	ErrMalformedProof       = errors.New("malformed proof")
	ErrMalformedAttestation = errors.New("malformed attestation")
	ErrPolicyDenied         = errors.New("attestation denied by policy")
	ErrAnchoringUnavailable = errors.New("anchoring unavailable")
	ErrNotFound             = errors.New("not found")
)
