package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/jaume768/splashmy/internal/domain"
	"github.com/jaume768/splashmy/internal/moderation"
)

func newUploadEnv() (*fakeImageRepo, *fakeStore, *fakeModerator, *UploadService) {
	images := newFakeImageRepo()
	store := newFakeStore()
	moderator := &fakeModerator{decision: moderation.Decision{Safe: true}}
	svc := NewUploadService(images, store, moderator, testLogger())
	return images, store, moderator, svc
}

func TestUploadStoresImage(t *testing.T) {
	images, store, _, svc := newUploadEnv()
	ctx := context.Background()

	img, err := svc.Upload(ctx, "user-1", "My Cat.PNG", "cat", []byte("png-bytes"))
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	if img.Format != "png" {
		t.Fatalf("format = %q", img.Format)
	}
	if img.OriginalFilename != "My Cat.PNG" {
		t.Fatalf("filename = %q", img.OriginalFilename)
	}
	if !strings.HasPrefix(img.StorageKey, "uploads/user-1/") {
		t.Fatalf("storage key = %q", img.StorageKey)
	}
	if !img.ModerationPassed {
		t.Fatalf("moderation flag not set")
	}

	if _, err := store.Read(ctx, img.StorageKey); err != nil {
		t.Fatalf("bytes not stored: %v", err)
	}
	if _, err := images.GetForUser(ctx, img.ID, "user-1"); err != nil {
		t.Fatalf("record not stored: %v", err)
	}
}

func TestUploadValidation(t *testing.T) {
	_, _, _, svc := newUploadEnv()
	ctx := context.Background()

	tests := []struct {
		name     string
		filename string
		data     []byte
	}{
		{"unsupported format", "document.pdf", []byte("x")},
		{"no extension", "noext", []byte("x")},
		{"empty file", "photo.png", nil},
		{"oversized file", "photo.png", make([]byte, domain.MaxUploadBytes+1)},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Upload(ctx, "user-1", tc.filename, "", tc.data)
			var verr *domain.ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("upload: %v, want ValidationError", err)
			}
		})
	}
}

func TestUploadModerationRejection(t *testing.T) {
	images, store, moderator, svc := newUploadEnv()
	moderator.decision = moderation.Decision{Safe: false, Labels: []moderation.Label{{Name: "violence", Score: 0.9}}}
	ctx := context.Background()

	_, err := svc.Upload(ctx, "user-1", "photo.png", "", []byte("bytes"))
	if !errors.Is(err, domain.ErrModerationRejected) {
		t.Fatalf("upload: %v, want ErrModerationRejected", err)
	}
	if len(images.images) != 0 {
		t.Fatalf("rejected upload persisted a record")
	}
	if len(store.objects) != 0 {
		t.Fatalf("rejected upload stored bytes")
	}
}

func TestUploadDelete(t *testing.T) {
	images, store, _, svc := newUploadEnv()
	ctx := context.Background()

	img, err := svc.Upload(ctx, "user-1", "photo.png", "", []byte("bytes"))
	if err != nil {
		t.Fatalf("upload: %v", err)
	}

	// Only the owner may delete.
	if err := svc.Delete(ctx, img.ID, "someone-else"); !domain.IsNotFound(err) {
		t.Fatalf("delete by stranger: %v, want ErrNotFound", err)
	}

	if err := svc.Delete(ctx, img.ID, "user-1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := images.GetForUser(ctx, img.ID, "user-1"); !domain.IsNotFound(err) {
		t.Fatalf("record still present: %v", err)
	}
	if _, err := store.Read(ctx, img.StorageKey); err == nil {
		t.Fatalf("bytes still stored")
	}
}
