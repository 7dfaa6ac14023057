package ignite

import (
	"bytes"
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"io"
	"sync"

	"golang.org/x/crypto/pbkdf2"
)

const (
	// EncryptionNonceSize is the AES-GCM nonce size.
	EncryptionNonceSize = 12
	// EncryptionSaltSize is the PBKDF2 salt size.
	EncryptionSaltSize = 32
	// EncryptionKeySize is the AES-256 key size.
	EncryptionKeySize = 32
	// PBKDF2Iterations is the key derivation work factor.
	PBKDF2Iterations = 100000
)

// EncryptionConfig configures encryption of archived reports.
type EncryptionConfig struct {
	Enabled bool `yaml:"enabled"`
	// Key is a raw 32-byte AES-256 key. When empty, KeyPassword is used.
	Key []byte `yaml:"-"`
	// KeyPassword derives the key via PBKDF2.
	KeyPassword string `yaml:"key_password"`
}

// Encryptor seals and opens blobs with AES-GCM.
type Encryptor struct {
	gcm  cipher.AEAD
	salt []byte
}

// NewEncryptor creates an encryptor from a raw key or a password with a
// fresh random salt.
func NewEncryptor(cfg EncryptionConfig) (*Encryptor, error) {
	salt := make([]byte, EncryptionSaltSize)
	if _, err := rand.Read(salt); err != nil {
		return nil, err
	}
	switch {
	case len(cfg.Key) > 0:
		if len(cfg.Key) != EncryptionKeySize {
			return nil, errors.New("encryption key must be 32 bytes for AES-256")
		}
		enc, err := newEncryptor(cfg.Key)
		if err != nil {
			return nil, err
		}
		enc.salt = salt
		return enc, nil
	case cfg.KeyPassword != "":
		return NewEncryptorWithSalt(cfg.KeyPassword, salt)
	default:
		return nil, errors.New("encryption enabled but no key or password provided")
	}
}

// NewEncryptorWithSalt derives the key for an existing salt.
func NewEncryptorWithSalt(password string, salt []byte) (*Encryptor, error) {
	if len(salt) != EncryptionSaltSize {
		return nil, errors.New("invalid salt size")
	}
	key := pbkdf2.Key([]byte(password), salt, PBKDF2Iterations, EncryptionKeySize, sha256.New)
	enc, err := newEncryptor(key)
	if err != nil {
		return nil, err
	}
	enc.salt = append([]byte(nil), salt...)
	return enc, nil
}

func newEncryptor(key []byte) (*Encryptor, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	return &Encryptor{gcm: gcm}, nil
}

// Salt returns the key derivation salt.
func (e *Encryptor) Salt() []byte {
	return e.salt
}

// Encrypt returns the nonce followed by the sealed plaintext.
func (e *Encryptor) Encrypt(plaintext []byte) ([]byte, error) {
	nonce := make([]byte, EncryptionNonceSize)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, err
	}
	return e.gcm.Seal(nonce, nonce, plaintext, nil), nil
}

// Decrypt opens a blob produced by Encrypt.
func (e *Encryptor) Decrypt(ciphertext []byte) ([]byte, error) {
	if len(ciphertext) < EncryptionNonceSize {
		return nil, errors.New("ciphertext too short")
	}
	nonce := ciphertext[:EncryptionNonceSize]
	return e.gcm.Open(nil, nonce, ciphertext[EncryptionNonceSize:], nil)
}

// MagicEncrypted prefixes every encrypted blob.
var MagicEncrypted = [4]byte{'I', 'E', 'N', 'C'}

// EncryptedHeaderSize is magic, version and salt.
const EncryptedHeaderSize = 4 + 1 + EncryptionSaltSize

// EncryptedBackend encrypts blobs before handing them to another backend.
// Each blob carries the salt it was sealed with, so password-derived keys
// survive restarts.
type EncryptedBackend struct {
	ReportBackend
	cfg   EncryptionConfig
	write *Encryptor

	mu   sync.Mutex
	keys map[string]*Encryptor
}

// NewEncryptedBackend wraps inner.
func NewEncryptedBackend(inner ReportBackend, cfg EncryptionConfig) (*EncryptedBackend, error) {
	enc, err := NewEncryptor(cfg)
	if err != nil {
		return nil, err
	}
	return &EncryptedBackend{
		ReportBackend: inner,
		cfg:           cfg,
		write:         enc,
		keys:          map[string]*Encryptor{string(enc.Salt()): enc},
	}, nil
}

func (b *EncryptedBackend) Write(ctx context.Context, key string, data []byte) error {
	sealed, err := b.write.Encrypt(data)
	if err != nil {
		return newStorageError(StorageErrorTypeWrite, "encrypt report", key, err)
	}
	buf := bytes.NewBuffer(make([]byte, 0, EncryptedHeaderSize+len(sealed)))
	buf.Write(MagicEncrypted[:])
	buf.WriteByte(1)
	buf.Write(b.write.Salt())
	buf.Write(sealed)
	return b.ReportBackend.Write(ctx, key, buf.Bytes())
}

func (b *EncryptedBackend) Read(ctx context.Context, key string) ([]byte, error) {
	data, err := b.ReportBackend.Read(ctx, key)
	if err != nil {
		return nil, err
	}
	if len(data) < EncryptedHeaderSize || !bytes.Equal(data[:4], MagicEncrypted[:]) {
		return nil, newStorageError(StorageErrorTypeCorruption, "invalid encrypted header", key, nil)
	}
	enc, err := b.encryptorFor(data[5:EncryptedHeaderSize])
	if err != nil {
		return nil, newStorageError(StorageErrorTypeRead, "derive key", key, err)
	}
	plain, err := enc.Decrypt(data[EncryptedHeaderSize:])
	if err != nil {
		return nil, newStorageError(StorageErrorTypeCorruption, "decrypt report", key, err)
	}
	return plain, nil
}

func (b *EncryptedBackend) encryptorFor(salt []byte) (*Encryptor, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if enc, ok := b.keys[string(salt)]; ok {
		return enc, nil
	}
	if len(b.cfg.Key) > 0 {
		return b.write, nil
	}
	enc, err := NewEncryptorWithSalt(b.cfg.KeyPassword, salt)
	if err != nil {
		return nil, err
	}
	b.keys[string(salt)] = enc
	return enc, nil
}
