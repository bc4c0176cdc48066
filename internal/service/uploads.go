package service

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/jaume768/splashmy/internal/domain"
	"github.com/jaume768/splashmy/internal/infra"
	"github.com/jaume768/splashmy/internal/moderation"
	"github.com/jaume768/splashmy/internal/storage"
)

// UploadService validates, moderates and stores source images.
type UploadService struct {
	images    domain.ImageRepository
	store     storage.ObjectStore
	moderator moderation.Moderator
	logger    infra.Logger
}

// NewUploadService assembles an UploadService.
func NewUploadService(images domain.ImageRepository, store storage.ObjectStore, moderator moderation.Moderator, logger infra.Logger) *UploadService {
	return &UploadService{images: images, store: store, moderator: moderator, logger: logger}
}

// Upload validates the file, runs it through moderation and persists both the
// bytes and the record. Rejected content yields domain.ErrModerationRejected
// and nothing is stored.
func (s *UploadService) Upload(ctx context.Context, userID, filename, title string, data []byte) (*domain.Image, error) {
	format := strings.TrimPrefix(strings.ToLower(filepath.Ext(filename)), ".")

	var fields []domain.FieldError
	if !domain.AllowedImageFormats[format] {
		fields = append(fields, domain.FieldError{Field: "image", Message: "format must be png, jpg, jpeg or webp"})
	}
	if len(data) == 0 {
		fields = append(fields, domain.FieldError{Field: "image", Message: "file is empty"})
	}
	if len(data) > domain.MaxUploadBytes {
		fields = append(fields, domain.FieldError{Field: "image", Message: "file exceeds the 10MB limit"})
	}
	if len(fields) > 0 {
		return nil, &domain.ValidationError{Fields: fields}
	}

	decision, err := s.moderator.Moderate(ctx, data, mimeForFormat(format))
	if err != nil {
		return nil, err
	}
	if !decision.Safe {
		details, _ := json.Marshal(decision)
		s.logger.Info().Str("user_id", userID).RawJSON("decision", details).Msg("upload: rejected by moderation")
		return nil, domain.ErrModerationRejected
	}

	id := uuid.NewString()
	key := fmt.Sprintf("uploads/%s/%s.%s", userID, id, format)
	savedKey, err := s.store.Write(ctx, key, data)
	if err != nil {
		return nil, err
	}

	img := &domain.Image{
		ID:               id,
		UserID:           userID,
		OriginalFilename: filepath.Base(filename),
		Title:            title,
		StorageKey:       savedKey,
		URL:              s.store.URL(savedKey, 0),
		Format:           format,
		SizeBytes:        int64(len(data)),
		ModerationPassed: true,
	}
	if err := s.images.Create(ctx, img); err != nil {
		if derr := s.store.Delete(ctx, savedKey); derr != nil {
			s.logger.Warn().Err(derr).Str("key", savedKey).Msg("upload: orphan cleanup failed")
		}
		return nil, err
	}
	s.logger.Info().Str("user_id", userID).Str("image_id", img.ID).Msg("upload: stored")
	return img, nil
}

// Delete removes an upload's record and bytes.
func (s *UploadService) Delete(ctx context.Context, id, userID string) error {
	img, err := s.images.GetForUser(ctx, id, userID)
	if err != nil {
		return err
	}
	if err := s.images.Delete(ctx, id, userID); err != nil {
		return err
	}
	if err := s.store.Delete(ctx, img.StorageKey); err != nil {
		s.logger.Warn().Err(err).Str("key", img.StorageKey).Msg("upload: delete object failed")
	}
	return nil
}
