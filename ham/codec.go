package ham

import (
	"bytes"
	"compress/gzip"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"strings"
)

// Well-known metadata keys written by the store.
const (
	// MetaChecksum is the hex sha256 of the serialized gist, computed over
	// the decompressed plaintext before encryption.
	MetaChecksum = "checksum"

	// MetaEncryption records the cipher the ciphertext was written with, so a
	// reader never silently treats plaintext as encrypted (or vice versa).
	MetaEncryption = "encryption"

	// MetaKeywords mirrors the gist keyword list into metadata so keyword
	// queries can rank without decrypting the blob.
	MetaKeywords = "keywords"

	// MetaImportance is the caller-supplied or computed importance score.
	MetaImportance = "importance_score"

	// MetaProtected marks a record immune to retention sweeps.
	MetaProtected = "protected"

	// MetaConfidence is used by confidence-sorted queries over fact records.
	MetaConfidence = "confidence"
)

// Encryption modes recorded under MetaEncryption.
const (
	EncryptionAESGCM = "aes-gcm"
	EncryptionNone   = "none"
)

// textKindFragment marks data kinds that go through text abstraction.
// The check is a substring match so user_dialogue_text and ai_dialogue_text
// both qualify.
const textKindFragment = "dialogue_text"

// Codec is the stateless encode/decode pipeline:
//
//	raw -> gist -> canonical JSON -> checksum -> gzip -> AES-256-GCM
//
// and the exact inverse. With no keyring configured the codec runs in a
// degraded passthrough mode (compress-only); Mode reports which, and the
// store records it in each record's metadata.
type Codec struct {
	keys *Keyring
}

// NewCodec builds a codec around keys. keys may be nil for passthrough mode.
func NewCodec(keys *Keyring) *Codec {
	return &Codec{keys: keys}
}

// Mode returns the encryption mode this codec writes with.
func (c *Codec) Mode() string {
	if c.keys == nil {
		return EncryptionNone
	}
	return EncryptionAESGCM
}

// isTextKind reports whether dataKind denotes abstractable text.
func isTextKind(dataKind string) bool {
	return strings.Contains(dataKind, textKindFragment)
}

// Encode runs the forward pipeline. For text kinds the gist is the abstraction
// of raw (which must be a string); for every other kind the gist degenerates
// to the stringified payload. The returned checksum is computed over the
// serialized plaintext, and the returned gist lets the caller mirror keywords
// into metadata without a second decode.
func (c *Codec) Encode(dataKind string, raw any) (ciphertext []byte, checksum string, gist *Gist, err error) {
	var plain []byte

	if isTextKind(dataKind) {
		text, ok := raw.(string)
		if !ok {
			return nil, "", nil, &CodecError{
				Kind: KindUnencodable,
				Err:  fmt.Errorf("%s content must be a string, got %T", dataKind, raw),
			}
		}
		gist = abstractText(text)
		plain, err = json.Marshal(gist)
		if err != nil {
			return nil, "", nil, &CodecError{Kind: KindUnencodable, Err: err}
		}
	} else {
		text, serr := stringifyPayload(raw)
		if serr != nil {
			return nil, "", nil, &CodecError{Kind: KindUnencodable, Err: serr}
		}
		gist = &Gist{Raw: text}
		plain = []byte(text)
	}

	sum := sha256.Sum256(plain)
	checksum = hex.EncodeToString(sum[:])

	compressed, err := compress(plain)
	if err != nil {
		return nil, "", nil, &CodecError{Kind: KindUnencodable, Err: err}
	}

	ciphertext, err = c.encrypt(compressed)
	if err != nil {
		return nil, "", nil, &CodecError{Kind: KindUnencodable, Err: err}
	}
	return ciphertext, checksum, gist, nil
}

// Decode runs the inverse pipeline. mode is the encryption mode recorded in
// the record's metadata; records written in passthrough mode decode correctly
// even when the codec now holds a key. A checksum mismatch yields a
// KindIntegrity error and no gist, never a silently wrong gist.
func (c *Codec) Decode(ciphertext []byte, expectedChecksum, dataKind, mode string) (*Gist, error) {
	compressed, err := c.decrypt(ciphertext, mode)
	if err != nil {
		return nil, &CodecError{Kind: KindCorrupt, Err: err}
	}

	plain, err := decompress(compressed)
	if err != nil {
		return nil, &CodecError{Kind: KindCorrupt, Err: err}
	}

	if expectedChecksum != "" {
		sum := sha256.Sum256(plain)
		if got := hex.EncodeToString(sum[:]); got != expectedChecksum {
			return nil, &CodecError{
				Kind: KindIntegrity,
				Err:  fmt.Errorf("checksum mismatch: stored %s, computed %s", expectedChecksum, got),
			}
		}
	}

	if isTextKind(dataKind) {
		var g Gist
		if err := json.Unmarshal(plain, &g); err != nil {
			return nil, &CodecError{Kind: KindCorrupt, Err: err}
		}
		return &g, nil
	}
	return &Gist{Raw: string(plain)}, nil
}

// stringifyPayload converts a non-text payload to its canonical string form.
func stringifyPayload(raw any) (string, error) {
	switch t := raw.(type) {
	case nil:
		return "", fmt.Errorf("nil content")
	case string:
		return t, nil
	case []byte:
		return string(t), nil
	case fmt.Stringer:
		return t.String(), nil
	default:
		b, err := json.Marshal(raw)
		if err != nil {
			return "", fmt.Errorf("content of type %T is not stringifiable: %w", raw, err)
		}
		return string(b), nil
	}
}

func compress(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write(data); err != nil {
		return nil, err
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decompress(data []byte) ([]byte, error) {
	zr, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer zr.Close()
	return io.ReadAll(zr)
}

// encrypt seals data with AES-256-GCM, nonce prefixed. Passthrough mode
// returns data unchanged.
func (c *Codec) encrypt(data []byte) ([]byte, error) {
	if c.keys == nil {
		return data, nil
	}
	aead, key, err := c.aead()
	if err != nil {
		return nil, err
	}
	defer key.Destroy()

	nonce := make([]byte, aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, err
	}
	return aead.Seal(nonce, nonce, data, nil), nil
}

func (c *Codec) decrypt(data []byte, mode string) ([]byte, error) {
	switch mode {
	case EncryptionNone, "":
		return data, nil
	case EncryptionAESGCM:
		if c.keys == nil {
			return nil, fmt.Errorf("record is encrypted but no key is configured")
		}
		aead, key, err := c.aead()
		if err != nil {
			return nil, err
		}
		defer key.Destroy()

		if len(data) < aead.NonceSize() {
			return nil, fmt.Errorf("ciphertext shorter than nonce")
		}
		nonce, sealed := data[:aead.NonceSize()], data[aead.NonceSize():]
		return aead.Open(nil, nonce, sealed, nil)
	default:
		return nil, fmt.Errorf("unknown encryption mode %q", mode)
	}
}

// aead opens the keyring and builds the cipher. The caller must Destroy the
// returned buffer once the operation completes.
func (c *Codec) aead() (cipher.AEAD, interface{ Destroy() }, error) {
	key, err := c.keys.open()
	if err != nil {
		return nil, nil, err
	}
	block, err := aes.NewCipher(key.Bytes())
	if err != nil {
		key.Destroy()
		return nil, nil, err
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		key.Destroy()
		return nil, nil, err
	}
	return aead, key, nil
}
