package ignite

import (
	"bytes"
	"context"
	"errors"
	"testing"
)

func TestEncryptor_EncryptDecrypt(t *testing.T) {
	enc, err := NewEncryptor(EncryptionConfig{
		Enabled:     true,
		KeyPassword: "test-password-123",
	})
	if err != nil {
		t.Fatalf("NewEncryptor failed: %v", err)
	}

	plaintext := []byte(`{"metric":"squat_1rm","points":12}`)

	ciphertext, err := enc.Encrypt(plaintext)
	if err != nil {
		t.Fatalf("Encrypt failed: %v", err)
	}

	if bytes.Equal(ciphertext, plaintext) {
		t.Error("ciphertext should not equal plaintext")
	}

	decrypted, err := enc.Decrypt(ciphertext)
	if err != nil {
		t.Fatalf("Decrypt failed: %v", err)
	}

	if !bytes.Equal(decrypted, plaintext) {
		t.Errorf("decrypted data does not match: got %s, want %s", decrypted, plaintext)
	}
}

func TestEncryptor_WithRawKey(t *testing.T) {
	key := make([]byte, EncryptionKeySize)
	for i := range key {
		key[i] = byte(i)
	}

	enc, err := NewEncryptor(EncryptionConfig{Enabled: true, Key: key})
	if err != nil {
		t.Fatalf("NewEncryptor failed: %v", err)
	}

	plaintext := []byte("secret data")

	ciphertext, err := enc.Encrypt(plaintext)
	if err != nil {
		t.Fatalf("Encrypt failed: %v", err)
	}

	decrypted, err := enc.Decrypt(ciphertext)
	if err != nil {
		t.Fatalf("Decrypt failed: %v", err)
	}

	if !bytes.Equal(decrypted, plaintext) {
		t.Error("decrypted data does not match")
	}
}

func TestEncryptor_WithSalt(t *testing.T) {
	password := "my-secret-password"

	enc1, err := NewEncryptor(EncryptionConfig{
		Enabled:     true,
		KeyPassword: password,
	})
	if err != nil {
		t.Fatalf("NewEncryptor failed: %v", err)
	}

	plaintext := []byte("important data")

	ciphertext, err := enc1.Encrypt(plaintext)
	if err != nil {
		t.Fatalf("Encrypt failed: %v", err)
	}

	// Create new encryptor with same password and salt
	enc2, err := NewEncryptorWithSalt(password, enc1.Salt())
	if err != nil {
		t.Fatalf("NewEncryptorWithSalt failed: %v", err)
	}

	decrypted, err := enc2.Decrypt(ciphertext)
	if err != nil {
		t.Fatalf("Decrypt failed: %v", err)
	}

	if !bytes.Equal(decrypted, plaintext) {
		t.Error("decrypted data does not match")
	}

	if _, err := NewEncryptorWithSalt(password, []byte("short")); err == nil {
		t.Error("expected error for invalid salt size")
	}
}

func TestEncryptor_InvalidKeySize(t *testing.T) {
	_, err := NewEncryptor(EncryptionConfig{Enabled: true, Key: []byte("too-short")})
	if err == nil {
		t.Error("expected error for invalid key size")
	}
}

func TestEncryptor_InvalidCiphertext(t *testing.T) {
	enc, _ := NewEncryptor(EncryptionConfig{
		Enabled:     true,
		KeyPassword: "test",
	})

	_, err := enc.Decrypt([]byte("short"))
	if err == nil {
		t.Error("expected error for short ciphertext")
	}

	_, err = enc.Decrypt(make([]byte, 50)) // Wrong key
	if err == nil {
		t.Error("expected error for invalid ciphertext")
	}
}

func TestEncryptor_NoKeyOrPassword(t *testing.T) {
	_, err := NewEncryptor(EncryptionConfig{Enabled: true})
	if err == nil {
		t.Error("expected error when no key or password provided")
	}
}

func TestEncryptedBackend(t *testing.T) {
	inner := NewMemoryBackend()
	cfg := EncryptionConfig{Enabled: true, KeyPassword: "archive-password"}
	backend, err := NewEncryptedBackend(inner, cfg)
	if err != nil {
		t.Fatalf("NewEncryptedBackend failed: %v", err)
	}
	ctx := context.Background()

	plaintext := []byte("report payload")
	if err := backend.Write(ctx, "reports/squat/1.igr", plaintext); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	raw, _ := inner.Read(ctx, "reports/squat/1.igr")
	if !bytes.Equal(raw[:4], MagicEncrypted[:]) {
		t.Error("expected encrypted header on stored blob")
	}
	if bytes.Contains(raw, plaintext) {
		t.Error("stored blob leaks plaintext")
	}

	got, err := backend.Read(ctx, "reports/squat/1.igr")
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if !bytes.Equal(got, plaintext) {
		t.Errorf("got %s, want %s", got, plaintext)
	}

	// A new process derives a new write salt but can still read old blobs.
	reopened, err := NewEncryptedBackend(inner, cfg)
	if err != nil {
		t.Fatalf("NewEncryptedBackend failed: %v", err)
	}
	got, err = reopened.Read(ctx, "reports/squat/1.igr")
	if err != nil {
		t.Fatalf("Read after reopen failed: %v", err)
	}
	if !bytes.Equal(got, plaintext) {
		t.Error("reopened backend returned wrong data")
	}

	// Listing passes through to the inner backend.
	keys, _ := reopened.List(ctx, "reports/")
	if len(keys) != 1 {
		t.Errorf("expected 1 key, got %d", len(keys))
	}
}

func TestEncryptedBackend_WrongPassword(t *testing.T) {
	inner := NewMemoryBackend()
	ctx := context.Background()

	writer, _ := NewEncryptedBackend(inner, EncryptionConfig{Enabled: true, KeyPassword: "right"})
	_ = writer.Write(ctx, "k", []byte("secret"))

	reader, _ := NewEncryptedBackend(inner, EncryptionConfig{Enabled: true, KeyPassword: "wrong"})
	_, err := reader.Read(ctx, "k")
	var se *StorageError
	if !errors.As(err, &se) || se.Type != StorageErrorTypeCorruption {
		t.Errorf("expected corruption error, got %v", err)
	}
}

func TestEncryptedBackend_PlainBlob(t *testing.T) {
	inner := NewMemoryBackend()
	ctx := context.Background()
	_ = inner.Write(ctx, "k", []byte("not encrypted"))

	backend, _ := NewEncryptedBackend(inner, EncryptionConfig{Enabled: true, KeyPassword: "pw"})
	if _, err := backend.Read(ctx, "k"); err == nil {
		t.Error("expected error for blob without encrypted header")
	}
}
