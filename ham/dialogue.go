package ham

import (
	"time"

	"github.com/google/uuid"
)

// Common data kinds. Any kind containing "dialogue_text" goes through text
// abstraction; callers are free to prefix their own (user_dialogue_text,
// ai_dialogue_text) for kind-prefix queries.
const (
	DataKindDialogue = "dialogue_text"
	DataKindGeneric  = "generic"
)

// Metadata keys written by NewDialogueMetadata.
const (
	MetaSpeaker   = "speaker"
	MetaUserID    = "user_id"
	MetaSessionID = "session_id"
	MetaTimestamp = "timestamp"
)

// NewDialogueMetadata builds the conventional metadata for one dialogue turn.
// An empty sessionID starts a fresh session with a random id.
func NewDialogueMetadata(speaker, userID, sessionID string) Metadata {
	if sessionID == "" {
		sessionID = uuid.NewString()
	}
	return Metadata{
		MetaSpeaker:   String(speaker),
		MetaUserID:    String(userID),
		MetaSessionID: String(sessionID),
		MetaTimestamp: String(time.Now().UTC().Format(time.RFC3339)),
	}
}

// scoreImportance derives a default importance score for a record whose
// caller supplied none. Longer content, protected status, and user speech all
// raise it; the result stays in [0,1].
func scoreImportance(g *Gist, md Metadata) float64 {
	length := g.OriginalLength
	if length == 0 {
		length = len(g.Raw)
	}

	score := 0.5
	if length > 80 {
		score += 0.1
	}
	if length > 400 {
		score += 0.1
	}
	if md.BoolAt(MetaProtected) {
		score += 0.2
	}
	if md.StringAt(MetaSpeaker) == "user" {
		score += 0.1
	}
	if score > 1.0 {
		score = 1.0
	}
	return score
}
