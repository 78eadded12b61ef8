package middleware_test

import (
	"context"
	"crypto/rand"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/aretw0/tendril/pkg/domain"
	"github.com/aretw0/tendril/pkg/persistence/middleware"
)

func generateKey(t *testing.T) []byte {
	k := make([]byte, 32)
	if _, err := io.ReadFull(rand.Reader, k); err != nil {
		t.Fatal(err)
	}
	return k
}

func sampleThread(subjectID string) *domain.Thread {
	th := domain.NewThread(subjectID)
	th.Roots = []domain.CommentNode{{
		ID:          "c1",
		AuthorLabel: "Ana",
		Body:        "my-secret-sauce",
		CreatedAt:   time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
		Children: []domain.CommentNode{{
			ID:          "c1-1",
			AuthorLabel: "Bo",
			Body:        "agreed",
			CreatedAt:   time.Date(2024, 1, 2, 3, 5, 0, 0, time.UTC),
			Depth:       1,
		}},
	}}
	return th
}

func TestEncryptionMiddleware_Roundtrip(t *testing.T) {
	underlyingStore := NewMockStore()
	key := generateKey(t)
	mw, err := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: key})
	if err != nil {
		t.Fatal(err)
	}
	secureStore := mw(underlyingStore)

	ctx := context.Background()
	original := sampleThread("post-1")

	if err := secureStore.Save(ctx, "post-1", original); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	// The wrapped store must only see the envelope.
	stored, err := underlyingStore.Load(ctx, "post-1")
	if err != nil {
		t.Fatalf("Underlying load failed: %v", err)
	}
	if len(stored.Roots) != 1 || stored.Roots[0].ID != "__encrypted__" {
		t.Fatalf("expected a single envelope root, got %+v", stored.Roots)
	}
	if strings.Contains(stored.Roots[0].Body, "my-secret-sauce") {
		t.Error("plaintext leaked into the stored envelope")
	}

	loaded, err := secureStore.Load(ctx, "post-1")
	if err != nil {
		t.Fatalf("Secure load failed: %v", err)
	}
	if loaded.Count() != 2 {
		t.Fatalf("expected 2 nodes, got %d", loaded.Count())
	}
	if loaded.Roots[0].Body != "my-secret-sauce" {
		t.Errorf("expected body to round-trip, got %q", loaded.Roots[0].Body)
	}
	if loaded.Roots[0].Children[0].ID != "c1-1" {
		t.Errorf("expected child c1-1, got %q", loaded.Roots[0].Children[0].ID)
	}
	if !loaded.Roots[0].CreatedAt.Equal(original.Roots[0].CreatedAt) {
		t.Errorf("created_at mismatch: %v", loaded.Roots[0].CreatedAt)
	}
}

func TestEncryptionMiddleware_KeyRotation(t *testing.T) {
	underlyingStore := NewMockStore()
	ctx := context.Background()

	oldKey := generateKey(t)
	oldMw, err := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: oldKey})
	if err != nil {
		t.Fatal(err)
	}
	if err := oldMw(underlyingStore).Save(ctx, "post-1", sampleThread("post-1")); err != nil {
		t.Fatal(err)
	}

	newKey := generateKey(t)

	// Without the fallback the old ciphertext is unreadable.
	strictMw, _ := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: newKey})
	if _, err := strictMw(underlyingStore).Load(ctx, "post-1"); err == nil {
		t.Fatal("expected decryption to fail without fallback key")
	}

	rotatingMw, _ := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{
		ActiveKey:    newKey,
		FallbackKeys: [][]byte{oldKey},
	})
	rotating := rotatingMw(underlyingStore)
	loaded, err := rotating.Load(ctx, "post-1")
	if err != nil {
		t.Fatalf("expected fallback key to decrypt, got %v", err)
	}
	if loaded.Roots[0].Body != "my-secret-sauce" {
		t.Errorf("unexpected body %q", loaded.Roots[0].Body)
	}

	// Re-saving seals with the new key only.
	if err := rotating.Save(ctx, "post-1", loaded); err != nil {
		t.Fatal(err)
	}
	if _, err := strictMw(underlyingStore).Load(ctx, "post-1"); err != nil {
		t.Fatalf("expected new key to decrypt after re-save, got %v", err)
	}
}

func TestEncryptionMiddleware_Errors(t *testing.T) {
	if _, err := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: []byte("short")}); err == nil {
		t.Error("expected error for short key")
	}

	underlyingStore := NewMockStore()
	mw, _ := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: generateKey(t)})
	secureStore := mw(underlyingStore)
	ctx := context.Background()

	if _, err := secureStore.Load(ctx, "missing"); !errors.Is(err, domain.ErrThreadNotFound) {
		t.Errorf("expected ErrThreadNotFound, got %v", err)
	}

	// Plain threads are refused rather than passed through.
	_ = underlyingStore.Save(ctx, "plain", sampleThread("plain"))
	if _, err := secureStore.Load(ctx, "plain"); !errors.Is(err, middleware.ErrNotEncrypted) {
		t.Errorf("expected ErrNotEncrypted, got %v", err)
	}
}
