package ham

import (
	"errors"
	"fmt"
)

// Sentinel errors surfaced at the store boundary.
var (
	// ErrNotFound is returned when no record exists for the requested id.
	ErrNotFound = errors.New("ham: memory not found")

	// ErrCapacityFull is returned when the simulated storage volume is full.
	// No partial write is attempted once this is returned.
	ErrCapacityFull = errors.New("ham: simulated storage full")

	// ErrNotNumeric is returned by IncrementMetadata when the target field
	// holds a non-numeric value.
	ErrNotNumeric = errors.New("ham: metadata field is not numeric")

	// ErrProtected is returned when deletion of a protected record is refused.
	ErrProtected = errors.New("ham: record is protected")

	// ErrClosed is returned for mutations attempted after Close.
	ErrClosed = errors.New("ham: store is closed")
)

// CodecKind discriminates failures in the encode/decode pipeline.
type CodecKind int

const (
	// KindUnencodable means the raw content could not be stringified.
	KindUnencodable CodecKind = iota

	// KindCorrupt means the ciphertext failed to decrypt or decompress.
	KindCorrupt

	// KindIntegrity means the plaintext checksum did not match the checksum
	// recorded at store time. Historical data may predate a key rotation, so
	// callers decide whether to surface or discard.
	KindIntegrity
)

func (k CodecKind) String() string {
	switch k {
	case KindUnencodable:
		return "unencodable"
	case KindCorrupt:
		return "corrupt"
	case KindIntegrity:
		return "integrity"
	default:
		return "unknown"
	}
}

// CodecError reports a failure in the codec pipeline.
type CodecError struct {
	Kind CodecKind
	ID   string // record id, when known
	Err  error
}

func (e *CodecError) Error() string {
	if e.ID != "" {
		return fmt.Sprintf("ham: codec %s (%s): %v", e.Kind, e.ID, e.Err)
	}
	return fmt.Sprintf("ham: codec %s: %v", e.Kind, e.Err)
}

func (e *CodecError) Unwrap() error { return e.Err }

// IsCodecKind reports whether err is a CodecError of the given kind.
func IsCodecKind(err error, kind CodecKind) bool {
	var ce *CodecError
	return errors.As(err, &ce) && ce.Kind == kind
}

// PersistError reports a failure writing the durable mirror. The in-memory
// mutation that triggered the persist has been rolled back by the time the
// caller sees this error.
type PersistError struct {
	Op   string // "io" or "serialization"
	Path string
	Err  error
}

func (e *PersistError) Error() string {
	return fmt.Sprintf("ham: persist %s (%s): %v", e.Op, e.Path, e.Err)
}

func (e *PersistError) Unwrap() error { return e.Err }

// QueryError reports an invalid filter combination. Runtime failures at the
// query boundary never produce a QueryError; they degrade to an empty result
// set with a logged diagnostic.
type QueryError struct {
	Reason string
}

func (e *QueryError) Error() string {
	return fmt.Sprintf("ham: bad query filter: %s", e.Reason)
}
