package usecase

import (
	"fmt"
	"time"

	"batchattest/internal/domain"
	"batchattest/internal/infra/merkle"
)

// CreateAttestation binds a built tree to the business keys of its records.
// logicalKeys[i] names the record at leaf i.
func CreateAttestation(tree *merkle.Tree, logicalKeys []string, createdAt time.Time) (domain.BatchAttestation, error) {
	if tree == nil {
		return domain.BatchAttestation{}, domain.ErrEmptyBatch
	}
	if len(logicalKeys) != tree.LeafCount() {
		return domain.BatchAttestation{}, fmt.Errorf("%w: %d keys for %d leaves", domain.ErrKeyCountMismatch, len(logicalKeys), tree.LeafCount())
	}
	records := make([]domain.RecordRef, len(logicalKeys))
	seen := make(map[string]int, len(logicalKeys))
	for i, key := range logicalKeys {
		if prev, dup := seen[key]; dup {
			return domain.BatchAttestation{}, fmt.Errorf("%w: %q at indices %d and %d", domain.ErrDuplicateKey, key, prev, i)
		}
		seen[key] = i
		records[i] = domain.RecordRef{LogicalKey: key, Index: i}
	}
	return domain.NewBatchAttestation(tree.Root().String(), createdAt, records, domain.LeafEncodingV1), nil
}

// LookupProof resolves a logical key through the attestation and returns its
// audit path. An unknown key is reported with found=false and no error.
func LookupProof(att domain.BatchAttestation, tree *merkle.Tree, logicalKey string) (proof merkle.Proof, found bool, err error) {
	if tree == nil {
		return merkle.Proof{}, false, domain.ErrEmptyBatch
	}
	if att.RootHash != tree.Root().String() {
		return merkle.Proof{}, false, domain.ErrRootMismatch
	}
	idx, ok := att.IndexOf(logicalKey)
	if !ok {
		return merkle.Proof{}, false, nil
	}
	proof, err = tree.Proof(idx)
	if err != nil {
		return merkle.Proof{}, false, err
	}
	return proof, true, nil
}
