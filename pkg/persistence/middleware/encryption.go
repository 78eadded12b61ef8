package middleware

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/aretw0/tendril/pkg/domain"
	"github.com/aretw0/tendril/pkg/ports"
)

// envelopeID marks the single root node that carries an encrypted thread.
const envelopeID = "__encrypted__"

// ErrNotEncrypted is returned when a stored thread lacks the encryption envelope.
var ErrNotEncrypted = errors.New("thread is missing encrypted data envelope")

// EncryptionConfig holds the keys for encryption and decryption.
type EncryptionConfig struct {
	// ActiveKey is the key used for encrypting new data.
	// Must be 32 bytes for AES-256.
	ActiveKey []byte

	// FallbackKeys is a list of old keys to try when decryption fails.
	// This enables zero-downtime key rotation.
	FallbackKeys [][]byte
}

type encryptionMiddleware struct {
	next   ports.ThreadStore
	config EncryptionConfig
}

// NewEncryptionMiddleware creates a middleware that encrypts threads using AES-GCM.
// The wrapped store only ever sees an opaque envelope: one root node whose body
// is the base64 ciphertext of the whole thread.
func NewEncryptionMiddleware(config EncryptionConfig) (Middleware, error) {
	if len(config.ActiveKey) != 32 {
		return nil, errors.New("active key must be 32 bytes (AES-256)")
	}
	return func(next ports.ThreadStore) ports.ThreadStore {
		return &encryptionMiddleware{
			next:   next,
			config: config,
		}
	}, nil
}

func (m *encryptionMiddleware) Save(ctx context.Context, subjectID string, thread *domain.Thread) error {
	plainText, err := json.Marshal(thread)
	if err != nil {
		return fmt.Errorf("failed to marshal thread: %w", err)
	}

	ciphertext, err := encrypt(plainText, m.config.ActiveKey)
	if err != nil {
		return fmt.Errorf("failed to encrypt thread: %w", err)
	}

	envelope := domain.NewThread(subjectID)
	envelope.Roots = append(envelope.Roots, domain.CommentNode{
		ID:   envelopeID,
		Body: base64.StdEncoding.EncodeToString(ciphertext),
	})
	return m.next.Save(ctx, subjectID, envelope)
}

func (m *encryptionMiddleware) Load(ctx context.Context, subjectID string) (*domain.Thread, error) {
	envelope, err := m.next.Load(ctx, subjectID)
	if err != nil {
		return nil, err
	}

	// Fail secure: a configured key means every stored thread must be sealed.
	if len(envelope.Roots) != 1 || envelope.Roots[0].ID != envelopeID {
		return nil, ErrNotEncrypted
	}

	ciphertext, err := base64.StdEncoding.DecodeString(envelope.Roots[0].Body)
	if err != nil {
		return nil, fmt.Errorf("failed to decode ciphertext base64: %w", err)
	}

	plainText, err := decryptWithRotation(ciphertext, m.config.ActiveKey, m.config.FallbackKeys)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt thread: %w", err)
	}

	var thread domain.Thread
	if err := json.Unmarshal(plainText, &thread); err != nil {
		return nil, fmt.Errorf("failed to unmarshal decrypted thread: %w", err)
	}
	return &thread, nil
}

func (m *encryptionMiddleware) Delete(ctx context.Context, subjectID string) error {
	return m.next.Delete(ctx, subjectID)
}

func (m *encryptionMiddleware) List(ctx context.Context) ([]string, error) {
	return m.next.List(ctx)
}

// Helpers

func encrypt(plaintext []byte, key []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, err
	}

	return gcm.Seal(nonce, nonce, plaintext, nil), nil
}

func decryptWithRotation(ciphertext []byte, activeKey []byte, fallbackKeys [][]byte) ([]byte, error) {
	if plain, err := decrypt(ciphertext, activeKey); err == nil {
		return plain, nil
	}
	for _, key := range fallbackKeys {
		if plain, err := decrypt(ciphertext, key); err == nil {
			return plain, nil
		}
	}
	return nil, errors.New("decryption failed with all available keys")
}

func decrypt(ciphertext []byte, key []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}

	if len(ciphertext) < gcm.NonceSize() {
		return nil, errors.New("ciphertext too short")
	}

	nonce := ciphertext[:gcm.NonceSize()]
	return gcm.Open(nil, nonce, ciphertext[gcm.NonceSize():], nil)
}
