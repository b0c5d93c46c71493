package merkle

import (
	"errors"
	"fmt"
	"runtime"

	"batchattest/internal/domain"

	"golang.org/x/sync/errgroup"
)

// MaxLeaves bounds a batch so that arena references fit in int32.
const MaxLeaves = 1 << 30

// parallelThreshold is the smallest level (in parent nodes) worth splitting
// across workers.
const parallelThreshold = 4096

const noChild int32 = -1

var ErrBatchTooLarge = errors.New("batch too large")

type node struct {
	hash  Hash
	level uint32
	left  int32
	right int32
}

type span struct {
	start int
	count int
}

// Tree is an immutable binary hash tree stored as a flat arena. Level 0 holds the
// leaves in batch order; every following level is stored contiguously after it.
// An unpaired node is carried up unchanged, so it appears again one level higher
// with the same hash and a single child reference.
type Tree struct {
	nodes  []node
	levels []span
}

type Leaf struct {
	Index int
	Hash  Hash
}

// Node is a read-only view of an arena entry. Left and Right are arena
// references, -1 when absent.
type Node struct {
	Hash  Hash
	Level int
	Left  int
	Right int
}

type BuildOption func(*buildConfig)

type buildConfig struct {
	workers int
}

// WithWorkers hashes large levels on up to n goroutines. n <= 0 uses GOMAXPROCS.
func WithWorkers(n int) BuildOption {
	return func(cfg *buildConfig) {
		if n <= 0 {
			n = runtime.GOMAXPROCS(0)
		}
		cfg.workers = n
	}
}

// Build constructs a tree over leaf hashes in the given order.
func Build(leaves []Hash, opts ...BuildOption) (*Tree, error) {
	if len(leaves) == 0 {
		return nil, domain.ErrEmptyBatch
	}
	if len(leaves) > MaxLeaves {
		return nil, fmt.Errorf("%w: %d leaves exceeds %d", ErrBatchTooLarge, len(leaves), MaxLeaves)
	}
	cfg := buildConfig{workers: 1}
	for _, opt := range opts {
		opt(&cfg)
	}

	levels, total := layout(len(leaves))
	t := &Tree{
		nodes:  make([]node, total),
		levels: levels,
	}
	for i, h := range leaves {
		t.nodes[i] = node{hash: h, left: noChild, right: noChild}
	}
	for lvl := 1; lvl < len(levels); lvl++ {
		if err := t.fillLevel(lvl, cfg.workers); err != nil {
			return nil, err
		}
	}
	return t, nil
}

func layout(leafCount int) ([]span, int) {
	levels := []span{{start: 0, count: leafCount}}
	total := leafCount
	for count := leafCount; count > 1; {
		count = (count + 1) / 2
		levels = append(levels, span{start: total, count: count})
		total += count
	}
	return levels, total
}

func (t *Tree) fillLevel(lvl int, workers int) error {
	cur := t.levels[lvl]
	if workers <= 1 || cur.count < parallelThreshold {
		t.hashRange(lvl, 0, cur.count)
		return nil
	}

	chunk := (cur.count + workers - 1) / workers
	var g errgroup.Group
	g.SetLimit(workers)
	for lo := 0; lo < cur.count; lo += chunk {
		lo, hi := lo, min(lo+chunk, cur.count)
		g.Go(func() error {
			t.hashRange(lvl, lo, hi)
			return nil
		})
	}
	return g.Wait()
}

// hashRange fills parents [lo, hi) of level lvl. Each parent only reads the level
// below, so disjoint ranges can be filled concurrently.
func (t *Tree) hashRange(lvl, lo, hi int) {
	prev := t.levels[lvl-1]
	cur := t.levels[lvl]
	for p := lo; p < hi; p++ {
		left := prev.start + 2*p
		if 2*p+1 < prev.count {
			right := left + 1
			t.nodes[cur.start+p] = node{
				hash:  NodeHash(t.nodes[left].hash, t.nodes[right].hash),
				level: uint32(lvl),
				left:  int32(left),
				right: int32(right),
			}
			continue
		}
		t.nodes[cur.start+p] = node{
			hash:  t.nodes[left].hash,
			level: uint32(lvl),
			left:  int32(left),
			right: noChild,
		}
	}
}

func (t *Tree) Root() Hash {
	return t.nodes[len(t.nodes)-1].hash
}

func (t *Tree) LeafCount() int {
	return t.levels[0].count
}

// Height is the number of levels above the leaves.
func (t *Tree) Height() int {
	return len(t.levels) - 1
}

func (t *Tree) Leaf(index int) (Leaf, error) {
	if index < 0 || index >= t.LeafCount() {
		return Leaf{}, fmt.Errorf("%w: index %d, leaf count %d", domain.ErrIndexOutOfRange, index, t.LeafCount())
	}
	return Leaf{Index: index, Hash: t.nodes[index].hash}, nil
}

// Node returns the node at position pos of the given level.
func (t *Tree) Node(level, pos int) (Node, bool) {
	if level < 0 || level >= len(t.levels) {
		return Node{}, false
	}
	sp := t.levels[level]
	if pos < 0 || pos >= sp.count {
		return Node{}, false
	}
	n := t.nodes[sp.start+pos]
	return Node{
		Hash:  n.hash,
		Level: int(n.level),
		Left:  int(n.left),
		Right: int(n.right),
	}, true
}
