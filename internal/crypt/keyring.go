// Package crypt encrypts and decrypts the ciphered fields of an entity.
//
// Field values are sealed with AES-256-GCM. Each ciphertext is stored as
// standard base64 of
//
//	version (4 bytes, big endian) || nonce || sealed data
//
// so a Keyring can decrypt values written under any key version it holds
// while encrypting new values under the active version. Data keys are
// derived from master keys with HKDF-SHA256.
package crypt

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/crypto/hkdf"
)

// KeySize is the AES-256 key length in bytes.
const KeySize = 32

const hkdfInfo = "rowkit field key v"

// Keyring holds derived data keys by version. It is immutable after
// construction and safe for concurrent use.
type Keyring struct {
	active int
	keys   map[int][]byte
}

// NewKeyring derives a data key from every master key and marks active as
// the version used for encryption. Master keys are parsed with
// ParseMasterKey.
func NewKeyring(active int, masters map[int]string) (*Keyring, error) {
	if active <= 0 {
		return nil, fmt.Errorf("active key version must be positive, got %d", active)
	}
	if _, ok := masters[active]; !ok {
		return nil, fmt.Errorf("%w: active version %d", ErrNoKey, active)
	}

	r := &Keyring{active: active, keys: make(map[int][]byte, len(masters))}
	for version, raw := range masters {
		if version <= 0 {
			return nil, fmt.Errorf("key version must be positive, got %d", version)
		}
		master, err := ParseMasterKey(raw)
		if err != nil {
			return nil, fmt.Errorf("key version %d: %w", version, err)
		}
		key, err := deriveKey(master, version)
		if err != nil {
			return nil, fmt.Errorf("key version %d: %w", version, err)
		}
		r.keys[version] = key
	}
	return r, nil
}

// Active returns the version new ciphertext is written under.
func (r *Keyring) Active() int { return r.active }

// Versions returns every held version in ascending order.
func (r *Keyring) Versions() []int {
	out := make([]int, 0, len(r.keys))
	for v := range r.keys {
		out = append(out, v)
	}
	sort.Ints(out)
	return out
}

func (r *Keyring) key(version int) ([]byte, error) {
	k, ok := r.keys[version]
	if !ok {
		return nil, fmt.Errorf("%w: version %d", ErrNoKey, version)
	}
	return k, nil
}

func deriveKey(master []byte, version int) ([]byte, error) {
	key := make([]byte, KeySize)
	kdf := hkdf.New(sha256.New, master, nil, []byte(hkdfInfo+strconv.Itoa(version)))
	if _, err := io.ReadFull(kdf, key); err != nil {
		return nil, fmt.Errorf("derive key: %w", err)
	}
	return key, nil
}

// GenerateMasterKey returns a random master key in "base64:" form.
func GenerateMasterKey() (string, error) {
	b := make([]byte, KeySize)
	if _, err := io.ReadFull(rand.Reader, b); err != nil {
		return "", fmt.Errorf("generate key: %w", err)
	}
	return "base64:" + base64.StdEncoding.EncodeToString(b), nil
}

// ParseMasterKey accepts a 32-byte key as "base64:<std base64>", 64 hex
// digits, bare std base64, or 32 raw characters.
func ParseMasterKey(value string) ([]byte, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, errors.New("master key is required")
	}

	if rest, ok := strings.CutPrefix(value, "base64:"); ok {
		decoded, err := base64.StdEncoding.DecodeString(rest)
		if err != nil {
			return nil, errors.New("invalid base64 master key")
		}
		if len(decoded) != KeySize {
			return nil, errors.New("master key must be 32 bytes")
		}
		return decoded, nil
	}

	if isHex(value) {
		decoded, err := hex.DecodeString(value)
		if err != nil {
			return nil, errors.New("invalid hex master key")
		}
		if len(decoded) != KeySize {
			return nil, errors.New("master key must be 32 bytes")
		}
		return decoded, nil
	}

	if looksBase64(value) {
		decoded, err := base64.StdEncoding.DecodeString(value)
		if err == nil && len(decoded) == KeySize {
			return decoded, nil
		}
	}

	if len(value) == KeySize {
		return []byte(value), nil
	}

	return nil, errors.New("master key must be 32 bytes")
}

func isHex(value string) bool {
	if len(value)%2 != 0 {
		return false
	}
	for _, r := range value {
		if (r < '0' || r > '9') && (r < 'a' || r > 'f') && (r < 'A' || r > 'F') {
			return false
		}
	}
	return true
}

func looksBase64(value string) bool {
	for _, r := range value {
		if (r >= 'A' && r <= 'Z') || (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '+' || r == '/' || r == '=' {
			continue
		}
		return false
	}
	return len(value) >= 44
}
