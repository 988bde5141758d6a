// Package crypt hashes passwords and seals data with a password.
package crypt

import (
	"crypto/rand"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"hash"
	"strings"

	"golang.org/x/crypto/nacl/secretbox"
	"golang.org/x/crypto/pbkdf2"
	"golang.org/x/crypto/scrypt"
)

var (
	ErrEncryption = errors.New("encryption failed")
	// ErrDecryption is returned for any decryption failure, a wrong password
	// cannot be told apart from corrupt data.
	ErrDecryption = errors.New("decryption failed: wrong password or corrupt data")
)

const (
	saltSize = 16

	hashIterations = 100000
	hashKeySize    = 32

	// magic identifies version 1 of the sealed format
	magic     = "MTV1"
	nonceSize = 24
	keySize   = 32
	scryptN   = 1 << 15
	scryptR   = 8
	scryptP   = 1
)

// HashPassword returns a salted hash of password in the form "salt:hash".
func HashPassword(password string) (string, error) {
	salt := make([]byte, saltSize)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("cannot generate salt: %w", err)
	}
	saltHex := hex.EncodeToString(salt)
	return saltHex + ":" + hex.EncodeToString(derivePasswordHash(password, saltHex)), nil
}

// VerifyPassword returns true if password matches a hash produced by HashPassword.
func VerifyPassword(password, stored string) bool {
	salt, hash, ok := strings.Cut(stored, ":")
	if !ok || salt == "" || hash == "" {
		return false
	}
	want, err := hex.DecodeString(hash)
	if err != nil || len(want) != hashKeySize {
		return false
	}
	if subtle.ConstantTimeCompare(derivePasswordHash(password, salt), want) == 1 {
		return true
	}
	for _, d := range legacyDerivations {
		got := pbkdf2.Key([]byte(password), []byte(salt), d.iterations, hashKeySize, d.hash)
		if subtle.ConstantTimeCompare(got, want) == 1 {
			return true
		}
	}
	return false
}

// IsPasswordHash returns true if s looks like the output of HashPassword.
func IsPasswordHash(s string) bool {
	salt, hash, ok := strings.Cut(s, ":")
	if !ok || salt == "" || hash == "" {
		return false
	}
	if _, err := hex.DecodeString(salt); err != nil {
		return false
	}
	b, err := hex.DecodeString(hash)
	return err == nil && len(b) == hashKeySize
}

func derivePasswordHash(password, salt string) []byte {
	return pbkdf2.Key([]byte(password), []byte(salt), hashIterations, hashKeySize, sha256.New)
}

// legacyDerivations are the parameters of hashes written by earlier
// deployments, accepted by VerifyPassword only.
var legacyDerivations = []struct {
	iterations int
	hash       func() hash.Hash
}{
	{1000, sha256.New},
	{1000, sha1.New},
}

// Encrypt seals plaintext with a key derived from password. The result is
// base64 text.
func Encrypt(plaintext, password string) (string, error) {
	salt := make([]byte, saltSize)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("%w: %v", ErrEncryption, err)
	}
	var nonce [nonceSize]byte
	if _, err := rand.Read(nonce[:]); err != nil {
		return "", fmt.Errorf("%w: %v", ErrEncryption, err)
	}
	key, err := deriveKey(password, salt)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrEncryption, err)
	}

	out := make([]byte, 0, len(magic)+saltSize+nonceSize+len(plaintext)+secretbox.Overhead)
	out = append(out, magic...)
	out = append(out, salt...)
	out = append(out, nonce[:]...)
	out = secretbox.Seal(out, []byte(plaintext), &nonce, key)
	return base64.StdEncoding.EncodeToString(out), nil
}

// Decrypt opens ciphertext produced by Encrypt. All failures return ErrDecryption.
func Decrypt(ciphertext, password string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(strings.TrimSpace(ciphertext))
	if err != nil {
		return "", ErrDecryption
	}
	header := len(magic) + saltSize + nonceSize
	if len(raw) < header+secretbox.Overhead || string(raw[:len(magic)]) != magic {
		return "", ErrDecryption
	}
	salt := raw[len(magic) : len(magic)+saltSize]
	var nonce [nonceSize]byte
	copy(nonce[:], raw[len(magic)+saltSize:header])

	key, err := deriveKey(password, salt)
	if err != nil {
		return "", ErrDecryption
	}
	plaintext, ok := secretbox.Open(nil, raw[header:], &nonce, key)
	if !ok {
		return "", ErrDecryption
	}
	return string(plaintext), nil
}

// CanDecrypt returns true if ciphertext can be opened with password.
func CanDecrypt(ciphertext, password string) bool {
	_, err := Decrypt(ciphertext, password)
	return err == nil
}

func deriveKey(password string, salt []byte) (*[keySize]byte, error) {
	k, err := scrypt.Key([]byte(password), salt, scryptN, scryptR, scryptP, keySize)
	if err != nil {
		return nil, err
	}
	var key [keySize]byte
	copy(key[:], k)
	return &key, nil
}
