package merkle

import (
	"encoding/json"
	"fmt"
	"math/bits"

	"batchattest/internal/domain"
)

// maxProofSteps bounds decoded proofs; no tree of MaxLeaves needs more.
const maxProofSteps = 64

// Position says on which side of the running hash a sibling sits.
type Position uint8

const (
	Left Position = iota + 1
	Right
)

func (p Position) String() string {
	switch p {
	case Left:
		return "L"
	case Right:
		return "R"
	default:
		return fmt.Sprintf("Position(%d)", uint8(p))
	}
}

func (p Position) Valid() bool {
	return p == Left || p == Right
}

func (p Position) MarshalText() ([]byte, error) {
	if !p.Valid() {
		return nil, fmt.Errorf("%w: invalid position %d", domain.ErrMalformedProof, uint8(p))
	}
	return []byte(p.String()), nil
}

func (p *Position) UnmarshalText(text []byte) error {
	switch string(text) {
	case "L":
		*p = Left
	case "R":
		*p = Right
	default:
		return fmt.Errorf("%w: position %q", domain.ErrMalformedProof, text)
	}
	return nil
}

type Step struct {
	Sibling  Hash     `json:"siblingHash"`
	Position Position `json:"position"`
}

// Proof is the audit path from one leaf to the root, ordered leaf-first.
type Proof struct {
	LeafIndex int    `json:"leafIndex"`
	LeafCount int    `json:"leafCount"`
	Steps     []Step `json:"steps"`
}

// Validate checks the shape of a proof without touching any hashes.
func (p Proof) Validate() error {
	if p.LeafCount < 1 || p.LeafCount > MaxLeaves {
		return fmt.Errorf("%w: leaf count %d", domain.ErrMalformedProof, p.LeafCount)
	}
	if p.LeafIndex < 0 {
		return fmt.Errorf("%w: negative leaf index", domain.ErrMalformedProof)
	}
	if len(p.Steps) > maxProofSteps {
		return fmt.Errorf("%w: %d steps", domain.ErrMalformedProof, len(p.Steps))
	}
	for i, step := range p.Steps {
		if !step.Position.Valid() {
			return fmt.Errorf("%w: step %d has invalid position", domain.ErrMalformedProof, i)
		}
	}
	return nil
}

// ParseProof decodes the JSON wire form of a proof.
func ParseProof(data []byte) (Proof, error) {
	var p Proof
	if err := json.Unmarshal(data, &p); err != nil {
		return Proof{}, fmt.Errorf("%w: %v", domain.ErrMalformedProof, err)
	}
	if err := p.Validate(); err != nil {
		return Proof{}, err
	}
	return p, nil
}

// Proof returns the audit path for the leaf at index. Levels where the node was
// carried up contribute no step.
func (t *Tree) Proof(index int) (Proof, error) {
	n := t.LeafCount()
	if index < 0 || index >= n {
		return Proof{}, fmt.Errorf("%w: index %d, leaf count %d", domain.ErrIndexOutOfRange, index, n)
	}
	steps := make([]Step, 0, t.Height())
	pos := index
	for lvl := 0; lvl < t.Height(); lvl++ {
		sp := t.levels[lvl]
		if sib := pos ^ 1; sib < sp.count {
			position := Right
			if pos&1 == 1 {
				position = Left
			}
			steps = append(steps, Step{Sibling: t.nodes[sp.start+sib].hash, Position: position})
		}
		pos >>= 1
	}
	return Proof{LeafIndex: index, LeafCount: n, Steps: steps}, nil
}

// pathShape lists the sibling positions a proof for index must carry in a tree
// of count leaves.
func pathShape(index, count int) []Position {
	shape := make([]Position, 0, bits.Len(uint(count)))
	for count > 1 {
		if index^1 < count {
			if index&1 == 1 {
				shape = append(shape, Left)
			} else {
				shape = append(shape, Right)
			}
		}
		index >>= 1
		count = (count + 1) / 2
	}
	return shape
}
