package crypt

import (
	"crypto/sha1"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"hash"
	"strings"
	"testing"

	"golang.org/x/crypto/pbkdf2"
)

func TestHashPasswordVerify(t *testing.T) {
	for _, password := range []string{"hunter2", "", "pässwörd with spaces", strings.Repeat("x", 200)} {
		stored, err := HashPassword(password)
		if err != nil {
			t.Fatalf("HashPassword(%q) error = %v", password, err)
		}
		if !IsPasswordHash(stored) {
			t.Fatalf("HashPassword(%q) = %q, not in salt:hash form", password, stored)
		}
		if !VerifyPassword(password, stored) {
			t.Fatalf("VerifyPassword(%q) = false, want true", password)
		}
		if VerifyPassword(password+"x", stored) {
			t.Fatalf("VerifyPassword(%q) with wrong password = true", password)
		}
	}
}

func TestVerifyPasswordLegacyHashes(t *testing.T) {
	const salt = "0123456789abcdef0123456789abcdef"
	for name, h := range map[string]func() hash.Hash{"sha256": sha256.New, "sha1": sha1.New} {
		stored := salt + ":" + hex.EncodeToString(pbkdf2.Key([]byte("hunter2"), []byte(salt), 1000, 32, h))
		if !VerifyPassword("hunter2", stored) {
			t.Fatalf("VerifyPassword with 1000 iteration %s hash = false", name)
		}
		if VerifyPassword("wrong", stored) {
			t.Fatalf("VerifyPassword with wrong password and %s hash = true", name)
		}
	}
}

func TestHashPasswordSalted(t *testing.T) {
	a, err := HashPassword("same")
	if err != nil {
		t.Fatalf("HashPassword error = %v", err)
	}
	b, err := HashPassword("same")
	if err != nil {
		t.Fatalf("HashPassword error = %v", err)
	}
	if a == b {
		t.Fatalf("two hashes of the same password are equal: %q", a)
	}
}

func TestVerifyPasswordMalformed(t *testing.T) {
	for _, stored := range []string{"", ":", "abc", "abc:", ":abc", "zz:zz", "00:11", "plain-password"} {
		if VerifyPassword("abc", stored) {
			t.Fatalf("VerifyPassword against %q = true, want false", stored)
		}
		if IsPasswordHash(stored) {
			t.Fatalf("IsPasswordHash(%q) = true, want false", stored)
		}
	}
}

func TestEncryptDecryptRoundTrip(t *testing.T) {
	for _, plaintext := range []string{"", "hello", `{"data":{"adminConfig":{}}}`, strings.Repeat("moontv ", 5000)} {
		ciphertext, err := Encrypt(plaintext, "hunter2")
		if err != nil {
			t.Fatalf("Encrypt error = %v", err)
		}
		got, err := Decrypt(ciphertext, "hunter2")
		if err != nil {
			t.Fatalf("Decrypt error = %v", err)
		}
		if got != plaintext {
			t.Fatalf("Decrypt = %q, want %q", got, plaintext)
		}
		if !CanDecrypt(ciphertext, "hunter2") {
			t.Fatalf("CanDecrypt = false, want true")
		}
	}
}

func TestDecryptWrongPassword(t *testing.T) {
	ciphertext, err := Encrypt("secret data", "hunter2")
	if err != nil {
		t.Fatalf("Encrypt error = %v", err)
	}
	got, err := Decrypt(ciphertext, "wrong")
	if !errors.Is(err, ErrDecryption) {
		t.Fatalf("Decrypt with wrong password error = %v, want ErrDecryption", err)
	}
	if got != "" {
		t.Fatalf("Decrypt with wrong password returned %q", got)
	}
	if CanDecrypt(ciphertext, "wrong") {
		t.Fatalf("CanDecrypt with wrong password = true")
	}
}

func TestDecryptCorrupt(t *testing.T) {
	ciphertext, err := Encrypt("secret data", "hunter2")
	if err != nil {
		t.Fatalf("Encrypt error = %v", err)
	}
	raw, _ := base64.StdEncoding.DecodeString(ciphertext)
	raw[len(raw)-1] ^= 0xff
	tampered := base64.StdEncoding.EncodeToString(raw)

	short := base64.StdEncoding.EncodeToString([]byte(magic + "short"))
	badMagic := base64.StdEncoding.EncodeToString(append([]byte("XXXX"), raw[4:]...))

	for name, input := range map[string]string{
		"tampered":  tampered,
		"short":     short,
		"bad magic": badMagic,
		"no base64": "%%%not base64%%%",
		"empty":     "",
	} {
		if _, err := Decrypt(input, "hunter2"); !errors.Is(err, ErrDecryption) {
			t.Fatalf("Decrypt(%s) error = %v, want ErrDecryption", name, err)
		}
	}
}
