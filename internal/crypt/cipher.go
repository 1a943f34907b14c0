package crypt

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/binary"
	"fmt"
	"io"
)

const versionSize = 4

// Seal encrypts plaintext under the active key and returns the base64
// envelope.
func (r *Keyring) Seal(plaintext string) (string, error) {
	key, err := r.key(r.active)
	if err != nil {
		return "", err
	}
	gcm, err := newGCM(key)
	if err != nil {
		return "", err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("read nonce: %w", err)
	}

	out := make([]byte, versionSize, versionSize+len(nonce)+len(plaintext)+gcm.Overhead())
	binary.BigEndian.PutUint32(out, uint32(r.active))
	out = append(out, nonce...)
	out = gcm.Seal(out, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(out), nil
}

// Open decrypts a base64 envelope with the key of its embedded version.
func (r *Keyring) Open(ciphertext string) (string, error) {
	blob, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return "", fmt.Errorf("%w: not base64", ErrMalformed)
	}
	if len(blob) < versionSize {
		return "", fmt.Errorf("%w: too short", ErrMalformed)
	}

	version := int(binary.BigEndian.Uint32(blob[:versionSize]))
	key, err := r.key(version)
	if err != nil {
		return "", err
	}
	gcm, err := newGCM(key)
	if err != nil {
		return "", err
	}

	body := blob[versionSize:]
	if len(body) < gcm.NonceSize()+gcm.Overhead() {
		return "", fmt.Errorf("%w: too short", ErrMalformed)
	}
	nonce, sealed := body[:gcm.NonceSize()], body[gcm.NonceSize():]
	plaintext, err := gcm.Open(nil, nonce, sealed, nil)
	if err != nil {
		return "", ErrAuth
	}
	return string(plaintext), nil
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("new cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("new gcm: %w", err)
	}
	return gcm, nil
}
