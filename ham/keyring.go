package ham

import (
	"encoding/base64"
	"fmt"
	"log"
	"os"

	"github.com/awnumar/memguard"
)

// KeyEnv is the environment variable holding the process-wide symmetric key:
// 32 bytes, URL-safe base64 encoded.
const KeyEnv = "MIKO_HAM_KEY"

// keySize is the AES-256 key length in bytes.
const keySize = 32

// Keyring holds the symmetric codec key in locked memory. The key is sealed
// into an enclave at construction and only materialized for the duration of a
// single encrypt or decrypt. The keyring is read-only after initialization.
type Keyring struct {
	enclave *memguard.Enclave
}

// NewKeyring seals key into locked memory. The caller's copy of key is wiped.
func NewKeyring(key []byte) (*Keyring, error) {
	if len(key) != keySize {
		memguard.WipeBytes(key)
		return nil, fmt.Errorf("ham: key must be %d bytes, got %d", keySize, len(key))
	}
	return &Keyring{enclave: memguard.NewEnclave(key)}, nil
}

// KeyringFromEnv builds a keyring from the MIKO_HAM_KEY environment variable.
// A missing or malformed key returns nil, which puts the codec in passthrough
// mode; the degradation is logged, never silent.
func KeyringFromEnv() *Keyring {
	raw := os.Getenv(KeyEnv)
	if raw == "" {
		log.Printf("[HAM] %s not set; codec will run in passthrough mode (compress-only)", KeyEnv)
		return nil
	}
	key, err := base64.URLEncoding.DecodeString(raw)
	if err != nil {
		log.Printf("[HAM] %s is not valid base64: %v; codec will run in passthrough mode", KeyEnv, err)
		return nil
	}
	kr, err := NewKeyring(key)
	if err != nil {
		log.Printf("[HAM] %v; codec will run in passthrough mode", err)
		return nil
	}
	return kr
}

// open materializes the key. The caller must Destroy the returned buffer.
func (k *Keyring) open() (*memguard.LockedBuffer, error) {
	if k == nil || k.enclave == nil {
		return nil, fmt.Errorf("ham: no key configured")
	}
	return k.enclave.Open()
}
