package ham

import "time"

// Record is the unit of storage: an opaque encrypted blob plus inspectable
// metadata. Records are created by Store, mutated in place only on recall
// (relevance) and metadata increments, and destroyed only by explicit
// deletion or the retention sweeper.
type Record struct {
	ID         string
	CreatedAt  time.Time
	DataKind   string
	Ciphertext []byte
	Metadata   Metadata

	// Relevance starts at 0.5 and is nudged upward on each successful
	// recall, never exceeding 1.0. Low-relevance records go first under
	// memory pressure.
	Relevance float64
}

// Protected reports whether the record is immune to retention sweeps.
func (r *Record) Protected() bool {
	return r.Metadata.BoolAt(MetaProtected)
}

// RecallResult is the rehydrated view of a record returned by Recall and
// Query. It is produced on demand and never cached beyond the call.
type RecallResult struct {
	ID         string
	CreatedAt  time.Time
	DataKind   string
	Rehydrated string
	Metadata   Metadata
}
