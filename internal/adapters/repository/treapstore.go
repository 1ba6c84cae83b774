package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/reputator-bot/reputator/pkg/metrics"
)

// Treap-based, in-memory Store implementation.
//
// Ordering: score DESC, then member ASC (deterministic). The BST comparator
// treats "less" as "ranks earlier", so in-order traversal produces the
// leaderboard from best to worst.

// node is one treap node.
type node struct {
	member string
	score  int64
	prio   uint64
	left   *node
	right  *node
	size   int
}

func nsize(n *node) int {
	if n == nil {
		return 0
	}
	return n.size
}

func fix(n *node) {
	if n != nil {
		n.size = 1 + nsize(n.left) + nsize(n.right)
	}
}

// less returns true if (aScore, aMember) ranks earlier than (bScore, bMember).
func less(aScore int64, aMember string, bScore int64, bMember string) bool {
	if aScore != bScore {
		return aScore > bScore // higher score ranks earlier
	}
	return aMember < bMember // tie-breaker by member asc
}

func rotateRight(y *node) *node {
	x := y.left
	t2 := x.right
	x.right = y
	y.left = t2
	fix(y)
	fix(x)
	return x
}

func rotateLeft(x *node) *node {
	y := x.right
	t2 := y.left
	y.left = x
	x.right = t2
	fix(x)
	fix(y)
	return y
}

// scoreToPriority keeps higher scores higher in the treap.
func scoreToPriority(score int64) uint64 {
	const offset = uint64(1) << 63
	return uint64(score) + offset
}

func insert(n *node, member string, score int64) *node {
	if n == nil {
		return &node{member: member, score: score, prio: scoreToPriority(score), size: 1}
	}
	if less(score, member, n.score, n.member) {
		n.left = insert(n.left, member, score)
		if n.left.prio > n.prio {
			n = rotateRight(n)
		}
	} else {
		n.right = insert(n.right, member, score)
		if n.right.prio > n.prio {
			n = rotateLeft(n)
		}
	}
	fix(n)
	return n
}

func deleteNode(n *node, member string, score int64) *node {
	if n == nil {
		return nil
	}
	if score == n.score && member == n.member {
		// Merge children by rotating highest priority up until leaf.
		if n.left == nil {
			return n.right
		}
		if n.right == nil {
			return n.left
		}
		if n.left.prio > n.right.prio {
			n = rotateRight(n)
			n.right = deleteNode(n.right, member, score)
		} else {
			n = rotateLeft(n)
			n.left = deleteNode(n.left, member, score)
		}
	} else if less(score, member, n.score, n.member) {
		n.left = deleteNode(n.left, member, score)
	} else {
		n.right = deleteNode(n.right, member, score)
	}
	fix(n)
	return n
}

// collectTopN appends up to limit entries in rank order.
func collectTopN(n *node, limit int, out *[]Entry) {
	if n == nil || len(*out) >= limit {
		return
	}
	collectTopN(n.left, limit, out)
	if len(*out) < limit {
		*out = append(*out, Entry{Member: n.member, Score: n.score})
	}
	if len(*out) < limit {
		collectTopN(n.right, limit, out)
	}
}

// collectAll appends every entry in rank order.
func collectAll(n *node, out *[]Entry) {
	if n == nil {
		return
	}
	collectAll(n.left, out)
	*out = append(*out, Entry{Member: n.member, Score: n.score})
	collectAll(n.right, out)
}

// TreapStore is the in-memory ordered set used for scores and the due-set.
type TreapStore struct {
	mu       sync.RWMutex
	root     *node
	byMember map[string]int64
}

// NewTreapStore constructs an empty treap store.
func NewTreapStore(ctx context.Context) *TreapStore {
	return &TreapStore{
		byMember: make(map[string]int64),
	}
}

// Upsert implements Store with O(log n) expected time.
func (s *TreapStore) Upsert(ctx context.Context, member string, score int64) error {
	start := time.Now()
	defer func() {
		metrics.RecordRepositoryUpdateLatency(float64(time.Since(start).Milliseconds()))
	}()

	s.mu.Lock()
	if old, ok := s.byMember[member]; ok {
		s.root = deleteNode(s.root, member, old)
	}
	s.byMember[member] = score
	s.root = insert(s.root, member, score)
	count := len(s.byMember)
	s.mu.Unlock()

	metrics.UpdateRepositoryRecordsTotal(count)
	return nil
}

// Score implements Store.
func (s *TreapStore) Score(ctx context.Context, member string) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	score, ok := s.byMember[member]
	if !ok {
		return 0, ErrNotFound
	}
	return score, nil
}

// TopN implements Store.
func (s *TreapStore) TopN(ctx context.Context, n int) ([]Entry, error) {
	start := time.Now()
	defer func() {
		metrics.RecordRepositoryQueryLatency(float64(time.Since(start).Milliseconds()))
	}()

	if n < 1 {
		return nil, ErrInvalidLimit
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Entry, 0, n)
	collectTopN(s.root, n, &out)
	assignRanks(out)
	return out, nil
}

// RangeByScore implements Store. Entries come back ordered by score
// ascending, member ascending on ties.
func (s *TreapStore) RangeByScore(ctx context.Context, min, max int64) ([]Entry, error) {
	start := time.Now()
	defer func() {
		metrics.RecordRepositoryQueryLatency(float64(time.Since(start).Milliseconds()))
	}()

	s.mu.RLock()
	all := make([]Entry, 0, len(s.byMember))
	collectAll(s.root, &all)
	s.mu.RUnlock()

	// In-order traversal yields score desc, member asc; re-sort the
	// filtered slice for the documented score-asc, member-asc order.
	out := make([]Entry, 0, len(all))
	for _, e := range all {
		if e.Score >= min && e.Score <= max {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score < out[j].Score
		}
		return out[i].Member < out[j].Member
	})
	return out, nil
}

// Members implements Store.
func (s *TreapStore) Members(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	all := make([]Entry, 0, len(s.byMember))
	collectAll(s.root, &all)

	members := make([]string, len(all))
	for i, e := range all {
		members[i] = e.Member
	}
	return members, nil
}

// Remove implements Store.
func (s *TreapStore) Remove(ctx context.Context, members ...string) (int, error) {
	start := time.Now()
	defer func() {
		metrics.RecordRepositoryUpdateLatency(float64(time.Since(start).Milliseconds()))
	}()

	s.mu.Lock()
	removed := 0
	for _, member := range members {
		old, ok := s.byMember[member]
		if !ok {
			continue
		}
		s.root = deleteNode(s.root, member, old)
		delete(s.byMember, member)
		removed++
	}
	count := len(s.byMember)
	s.mu.Unlock()

	if removed > 0 {
		metrics.UpdateRepositoryRecordsTotal(count)
	}
	return removed, nil
}

// Count implements Store.
func (s *TreapStore) Count(ctx context.Context) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byMember)
}

// assignRanks assigns ranks with tie handling: equal scores share a rank.
func assignRanks(entries []Entry) {
	if len(entries) == 0 {
		return
	}

	currentRank := 1
	for i := 0; i < len(entries); i++ {
		entries[i].Rank = currentRank

		sameScoreCount := 1
		for j := i + 1; j < len(entries) && entries[j].Score == entries[i].Score; j++ {
			entries[j].Rank = currentRank
			sameScoreCount++
		}

		currentRank++
		i += sameScoreCount - 1
	}
}
