// Package repository defines the ordered score store interface and errors.
package repository

import "context"

// Entry represents one member of the ordered set.
type Entry struct {
	Rank   int
	Member string
	Score  int64
}

// Store provides read/write access to an ordered member -> score mapping.
// The bot runs two instances: the points store (score = reputation points)
// and the liveness due-set (score = next check time, unix seconds).
type Store interface {
	// Upsert sets the score for member, inserting it if absent.
	// Writes are last-write-wins; no optimistic concurrency is applied.
	Upsert(ctx context.Context, member string, score int64) error

	// Score returns the stored score for member.
	// Returns ErrNotFound if the member is unknown.
	Score(ctx context.Context, member string) (int64, error)

	// TopN returns the top-N entries ordered by score descending,
	// member ascending on ties.
	TopN(ctx context.Context, n int) ([]Entry, error)

	// RangeByScore returns entries with min <= score <= max, ordered by
	// score ascending. Used by the due-set to pop due members.
	RangeByScore(ctx context.Context, min, max int64) ([]Entry, error)

	// Members returns every member in rank order.
	Members(ctx context.Context) ([]string, error)

	// Remove deletes the given members, returning how many were present.
	Remove(ctx context.Context, members ...string) (int, error)

	// Count returns the number of members tracked.
	Count(ctx context.Context) int
}
