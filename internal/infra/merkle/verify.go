package merkle

import (
	"crypto/subtle"
)

// Verify reports whether record sits at index in the tree of leafCount leaves
// committed to by root. The root does not commit to the leaf count, so callers
// supply it from a trusted source (the attestation's record count); the count
// carried in the proof must agree with it. Any mismatch, including a malformed
// proof, yields false.
func Verify(record any, index int, proof Proof, root Hash, leafCount int) bool {
	ok, err := VerifyProof(record, index, proof, root, leafCount)
	return err == nil && ok
}

// VerifyProof is Verify with malformed input surfaced: domain.ErrEncoding when the
// record cannot be canonicalized and domain.ErrMalformedProof when the proof has
// an impossible shape. A well-formed proof that does not match returns false, nil.
func VerifyProof(record any, index int, proof Proof, root Hash, leafCount int) (bool, error) {
	leaf, err := EncodeLeaf(record)
	if err != nil {
		return false, err
	}
	if err := proof.Validate(); err != nil {
		return false, err
	}
	return VerifyLeafHash(leaf, index, proof, root, leafCount), nil
}

// VerifyLeafHash recomputes the root from a leaf hash. The expected path shape
// comes from index and the trusted leafCount, never from the proof. Every step is
// hashed and every position compared regardless of earlier mismatches, so the
// running time depends only on the proof length.
func VerifyLeafHash(leaf Hash, index int, proof Proof, root Hash, leafCount int) bool {
	mismatch := 0
	if index != proof.LeafIndex || proof.LeafCount != leafCount {
		mismatch = 1
	}
	count := leafCount
	if count < 1 || count > MaxLeaves {
		mismatch = 1
		count = 1
	}
	shapeIndex := index
	if index < 0 || index >= count {
		mismatch = 1
		shapeIndex = 0
	}
	shape := pathShape(shapeIndex, count)
	if len(shape) != len(proof.Steps) {
		mismatch = 1
	}

	acc := leaf
	for i, step := range proof.Steps {
		want := Right
		if i < len(shape) {
			want = shape[i]
		}
		mismatch |= subtle.ConstantTimeByteEq(uint8(step.Position), uint8(want)) ^ 1
		if step.Position == Left {
			acc = NodeHash(step.Sibling, acc)
		} else {
			acc = NodeHash(acc, step.Sibling)
		}
	}

	rootMatch := subtle.ConstantTimeCompare(acc[:], root[:])
	return rootMatch&(mismatch^1) == 1
}
