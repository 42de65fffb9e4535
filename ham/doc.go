// Package ham implements a hierarchical associative memory store: a tiered,
// content-addressed experience store that abstracts raw inputs into compact
// "gists", persists them as encrypted, compressed opaque blobs with integrity
// checksums, and exposes a hybrid (semantic + keyword + metadata) query and
// recall interface.
//
// Architecture:
//   - Codec: deterministic encode/decode pipeline (abstraction, serialization,
//     checksum, compression, encryption) with no state of its own
//   - CapacityGuard: simulated bounded volume with graduated backpressure
//   - Store: the authoritative in-memory record map, mirrored to a durable
//     JSON file; owns id allocation and the load/persist protocol
//   - Query: hybrid ranked retrieval over record scans and the semantic index
//   - Sweeper: bounded background eviction of low-value, unprotected records
//
// The semantic index is a pluggable, best-effort collaborator (see
// SemanticIndex). It may be absent, degraded, or lagging; the store never
// depends on it for correctness and the write path never fails because of it.
//
// Local implementation:
//   - chromem-go index (embedded vector database, index/chromem)
//   - ONNX embedder with all-MiniLM-L6-v2 (index/embedder/onnx, build tag)
//   - mock embedder for tests (index/embedder/mock)
package ham
