package ham

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"sync"
	"time"
)

// initialRelevance is assigned to every new record.
const initialRelevance = 0.5

// recallRelevanceNudge is added to relevance on each successful recall.
const recallRelevanceNudge = 0.1

// Config configures a Store.
type Config struct {
	// MirrorPath is the durable flat-file mirror of the record map.
	// Required.
	MirrorPath string

	// Keys is the symmetric codec key. nil puts the codec in passthrough
	// mode (compress-only), recorded in each record's metadata.
	Keys *Keyring

	// Capacity describes the simulated storage volume. A zero value means
	// unbounded.
	Capacity CapacityConfig

	// Index is the optional semantic side index. nil disables semantic
	// lookups; queries fall back to token-overlap ranking.
	Index SemanticIndex
}

// Store is the authoritative record store. A single read-write exclusion
// serializes all mutations (store, delete, increment, recall's relevance
// nudge, sweep) while reads share; within one owner, operations are
// linearized, so a store followed by a get of the same id observes the write.
type Store struct {
	mu      sync.RWMutex
	records map[string]*Record
	nextID  int

	mirrorPath string
	codec      *Codec
	guard      *CapacityGuard
	index      SemanticIndex

	indexWG sync.WaitGroup
	closed  bool

	sweepCancel context.CancelFunc
	sweepDone   chan struct{}
}

// mirrorRecord is the wire form of a record in the mirror file. Ciphertext is
// base64 so the container stays text-safe. Relevance is process state and is
// deliberately not persisted; it resets to the initial value on reload.
type mirrorRecord struct {
	CreatedAt     string   `json:"created_at"`
	DataKind      string   `json:"data_kind"`
	CiphertextB64 string   `json:"ciphertext_b64"`
	Metadata      Metadata `json:"metadata"`
}

type mirrorFile struct {
	NextID  int                     `json:"next_id"`
	Records map[string]mirrorRecord `json:"records"`
}

// New builds a store over the mirror at cfg.MirrorPath, loading any existing
// state. A missing mirror initializes an empty store and persists immediately
// so the file exists once the store is live; a malformed mirror logs and
// falls back to an empty store rather than failing.
func New(cfg Config) (*Store, error) {
	if cfg.MirrorPath == "" {
		return nil, fmt.Errorf("ham: Config.MirrorPath is required")
	}
	s := &Store{
		records:    make(map[string]*Record),
		nextID:     1,
		mirrorPath: cfg.MirrorPath,
		codec:      NewCodec(cfg.Keys),
		index:      cfg.Index,
	}
	s.guard = NewCapacityGuard(cfg.Capacity, s.mirrorSize)

	if err := s.load(); err != nil {
		return nil, err
	}
	log.Printf("[HAM] store ready: mirror=%s records=%d next_id=%d encryption=%s",
		s.mirrorPath, len(s.records), s.nextID, s.codec.Mode())
	return s, nil
}

// Guard exposes the capacity guard, e.g. for sweeper headroom signals.
func (s *Store) Guard() *CapacityGuard { return s.guard }

// Len returns the current record count.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// Store encodes and commits a new experience, returning its id.
//
// The sequence is: allocate id, encode, admission check, insert, persist.
// A failed persist rolls back the insert and returns a *PersistError; the
// allocated id is not reclaimed, so id sequences may have gaps after
// failures. A Degraded admission is advisory and logged, never fatal; only
// a full volume refuses the write (ErrCapacityFull, no partial state).
// The semantic index write happens after the commit, best-effort.
func (s *Store) Store(ctx context.Context, dataKind string, content any, meta Metadata) (string, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return "", ErrClosed
	}

	id := s.allocID()

	ciphertext, checksum, gist, err := s.codec.Encode(dataKind, content)
	if err != nil {
		s.mu.Unlock()
		return "", err
	}

	switch adm := s.guard.Admit(); adm.Verdict {
	case AdmitFull:
		s.mu.Unlock()
		log.Printf("[HAM] store refused for %s: simulated volume full", id)
		return "", ErrCapacityFull
	case AdmitDegraded:
		log.Printf("[HAM] volume filling, advisory lag %s for %s", adm.Lag, id)
	}

	md := meta.Clone()
	md[MetaChecksum] = String(checksum)
	md[MetaEncryption] = String(s.codec.Mode())
	if len(gist.Keywords) > 0 {
		md[MetaKeywords] = String(joinKeywords(gist.Keywords))
	}
	if _, ok := md[MetaImportance]; !ok {
		md[MetaImportance] = Number(scoreImportance(gist, md))
	}

	rec := &Record{
		ID:         id,
		CreatedAt:  time.Now().UTC(),
		DataKind:   dataKind,
		Ciphertext: ciphertext,
		Metadata:   md,
		Relevance:  initialRelevance,
	}
	s.records[id] = rec

	if err := s.persistLocked(); err != nil {
		delete(s.records, id)
		s.mu.Unlock()
		log.Printf("[HAM] persist failed for %s, insert rolled back: %v", id, err)
		return "", err
	}
	indexMeta := md.Clone()
	s.mu.Unlock()

	s.indexAdd(ctx, id, gist, indexMeta)
	log.Printf("[HAM] stored %s kind=%s", id, dataKind)
	return id, nil
}

// Recall decrypts, verifies, and rehydrates the record with the given id.
// A successful recall nudges the record's relevance upward. Integrity and
// corruption failures surface as *CodecError; the record stays in place
// either way, since historical data may predate a key rotation.
func (s *Store) Recall(id string) (*RecallResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[id]
	if !ok {
		return nil, ErrNotFound
	}

	gist, err := s.decodeRecord(rec)
	if err != nil {
		return nil, err
	}

	rec.Relevance = min(1.0, rec.Relevance+recallRelevanceNudge)

	return &RecallResult{
		ID:         rec.ID,
		CreatedAt:  rec.CreatedAt,
		DataKind:   rec.DataKind,
		Rehydrated: Rehydrate(gist),
		Metadata:   rec.Metadata.Clone(),
	}, nil
}

// RecallRaw returns the structured gist for programmatic callers, bypassing
// rehydration. It does not count as a recall for relevance purposes.
func (s *Store) RecallRaw(id string) (*Gist, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.records[id]
	if !ok {
		return nil, ErrNotFound
	}
	return s.decodeRecord(rec)
}

// Delete removes the record with the given id and re-persists the mirror.
// Deletion of a protected record is refused with ErrProtected. A failed
// persist rolls the deletion back.
func (s *Store) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}

	rec, ok := s.records[id]
	if !ok {
		return ErrNotFound
	}
	if rec.Protected() {
		return ErrProtected
	}

	delete(s.records, id)
	if err := s.persistLocked(); err != nil {
		s.records[id] = rec
		log.Printf("[HAM] persist failed, delete of %s rolled back: %v", id, err)
		return err
	}
	log.Printf("[HAM] deleted %s", id)
	return nil
}

// IncrementMetadata adds delta to a numeric metadata field, creating it at
// delta when absent. This is the narrow fast path for counters; it skips the
// codec entirely. A failed persist rolls the field back.
func (s *Store) IncrementMetadata(ctx context.Context, id, field string, delta float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}

	rec, ok := s.records[id]
	if !ok {
		return ErrNotFound
	}

	prev, present := rec.Metadata[field]
	cur := 0.0
	if present {
		n, numeric := prev.AsNumber()
		if !numeric {
			return ErrNotNumeric
		}
		cur = n
	}

	rec.Metadata[field] = Number(cur + delta)
	if err := s.persistLocked(); err != nil {
		if present {
			rec.Metadata[field] = prev
		} else {
			delete(rec.Metadata, field)
		}
		return err
	}
	return nil
}

// Flush blocks until every pending semantic index write has settled. Useful
// before issuing a semantic query that must observe a just-stored record.
func (s *Store) Flush() {
	s.indexWG.Wait()
}

// Close marks the store closed, waits for any in-flight persist and pending
// semantic index writes, then releases the index client. The mirror itself
// needs no teardown.
func (s *Store) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	cancel, done := s.sweepCancel, s.sweepDone
	s.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}
	s.indexWG.Wait()
	if s.index != nil {
		return s.index.Close()
	}
	return nil
}

// allocID hands out the next monotonic id. Ids are never reused within a
// process lifetime or across reloads; the high-water mark rides in the
// mirror file.
func (s *Store) allocID() string {
	id := fmt.Sprintf("mem_%06d", s.nextID)
	s.nextID++
	return id
}

// decodeRecord runs the codec against a record using the checksum and
// encryption mode from its metadata. Codec errors are annotated with the id.
func (s *Store) decodeRecord(rec *Record) (*Gist, error) {
	gist, err := s.codec.Decode(
		rec.Ciphertext,
		rec.Metadata.StringAt(MetaChecksum),
		rec.DataKind,
		rec.Metadata.StringAt(MetaEncryption),
	)
	if err != nil {
		if ce, ok := err.(*CodecError); ok {
			ce.ID = rec.ID
		}
		return nil, err
	}
	return gist, nil
}

// indexAdd pushes the record text to the semantic index on a separate
// goroutine. Failures are logged and swallowed; the committed write is
// already durable and must not be affected.
func (s *Store) indexAdd(ctx context.Context, id string, gist *Gist, md Metadata) {
	if s.index == nil {
		return
	}
	text := gist.Raw
	if text == "" {
		text = gist.Summary + " " + joinKeywords(gist.Keywords)
	}
	s.indexWG.Add(1)
	go func() {
		defer s.indexWG.Done()
		if err := s.index.Add(context.WithoutCancel(ctx), id, text, md); err != nil {
			log.Printf("[HAM] semantic index add failed for %s (ignored): %v", id, err)
		}
	}()
}

// mirrorSize is the capacity guard's usage probe.
func (s *Store) mirrorSize() int64 {
	info, err := os.Stat(s.mirrorPath)
	if err != nil {
		return 0
	}
	return info.Size()
}

// persistLocked writes the full map to the mirror. Callers hold the write
// lock, so the mirror and the in-memory map converge on success and the
// caller can roll back on failure.
func (s *Store) persistLocked() error {
	out := mirrorFile{
		NextID:  s.nextID,
		Records: make(map[string]mirrorRecord, len(s.records)),
	}
	for id, rec := range s.records {
		out.Records[id] = mirrorRecord{
			CreatedAt:     rec.CreatedAt.Format(time.RFC3339Nano),
			DataKind:      rec.DataKind,
			CiphertextB64: base64.StdEncoding.EncodeToString(rec.Ciphertext),
			Metadata:      rec.Metadata,
		}
	}

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return &PersistError{Op: "serialization", Path: s.mirrorPath, Err: err}
	}
	if err := os.WriteFile(s.mirrorPath, data, 0o600); err != nil {
		return &PersistError{Op: "io", Path: s.mirrorPath, Err: err}
	}
	return nil
}

// load reads the mirror at startup. Missing file: initialize empty and
// persist so the mirror exists. Malformed file: log and run empty; the next
// successful mutation rewrites it.
func (s *Store) load() error {
	data, err := os.ReadFile(s.mirrorPath)
	if os.IsNotExist(err) {
		log.Printf("[HAM] mirror %s not found, initializing empty store", s.mirrorPath)
		s.mu.Lock()
		defer s.mu.Unlock()
		return s.persistLocked()
	}
	if err != nil {
		return &PersistError{Op: "io", Path: s.mirrorPath, Err: err}
	}
	if len(data) == 0 {
		log.Printf("[HAM] mirror %s is empty, starting with empty store", s.mirrorPath)
		return nil
	}

	var in mirrorFile
	if err := json.Unmarshal(data, &in); err != nil {
		log.Printf("[HAM] mirror %s is malformed (%v), falling back to empty store", s.mirrorPath, err)
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if in.NextID > s.nextID {
		s.nextID = in.NextID
	}
	for id, mr := range in.Records {
		ciphertext, err := base64.StdEncoding.DecodeString(mr.CiphertextB64)
		if err != nil {
			log.Printf("[HAM] skipping %s: ciphertext is not valid base64: %v", id, err)
			continue
		}
		createdAt, err := time.Parse(time.RFC3339Nano, mr.CreatedAt)
		if err != nil {
			log.Printf("[HAM] skipping %s: bad created_at %q: %v", id, mr.CreatedAt, err)
			continue
		}
		md := mr.Metadata
		if md == nil {
			md = Metadata{}
		}
		s.records[id] = &Record{
			ID:         id,
			CreatedAt:  createdAt.UTC(),
			DataKind:   mr.DataKind,
			Ciphertext: ciphertext,
			Metadata:   md,
			Relevance:  initialRelevance,
		}
	}
	return nil
}

func joinKeywords(kws []string) string {
	out := ""
	for i, kw := range kws {
		if i > 0 {
			out += " "
		}
		out += kw
	}
	return out
}
