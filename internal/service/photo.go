package service

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/cicotti/reportfy-api/internal/apperr"
	"github.com/cicotti/reportfy-api/internal/model"
	"github.com/cicotti/reportfy-api/internal/storage"
	"github.com/cicotti/reportfy-api/pkg/logger"
	"github.com/cicotti/reportfy-api/prometheus"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// MaxUploadSize caps project photo and avatar uploads at 3MB.
const MaxUploadSize = 3 * 1024 * 1024

var allowedImageTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/gif":  true,
	"image/webp": true,
}

// PhotoStore is the metadata persistence surface for photos.
type PhotoStore interface {
	ListByProject(ctx context.Context, projectID string) ([]model.ProjectPhoto, error)
	Get(ctx context.Context, id string) (*model.ProjectPhoto, error)
	MaxDisplayOrder(ctx context.Context, projectID string) (max int, found bool, err error)
	Insert(ctx context.Context, photo *model.ProjectPhoto) error
	Delete(ctx context.Context, id string) error
}

// AvatarStore reads and writes the avatar URL on a profile.
type AvatarStore interface {
	AvatarURL(ctx context.Context, userID string) (string, error)
	SetAvatarURL(ctx context.Context, userID, url string) error
}

// Upload holds the validated pieces of a multipart file part.
type Upload struct {
	FileName    string
	ContentType string
	Data        []byte
	Description string
}

// PhotoService manages photo and avatar blobs plus their metadata
// rows. Blob and row writes are not atomic: the blob goes first and is
// deleted again (best effort) when the row insert fails.
type PhotoService struct {
	store        PhotoStore
	avatars      AvatarStore
	blobs        storage.BlobStore
	photoBucket  string
	avatarBucket string
}

func NewPhotoService(store PhotoStore, avatars AvatarStore, blobs storage.BlobStore, photoBucket, avatarBucket string) *PhotoService {
	return &PhotoService{
		store:        store,
		avatars:      avatars,
		blobs:        blobs,
		photoBucket:  photoBucket,
		avatarBucket: avatarBucket,
	}
}

// List returns the photos of a project ordered by display_order, most
// recent first within the same order.
func (s *PhotoService) List(ctx context.Context, projectID string) ([]model.ProjectPhoto, error) {
	if _, err := uuid.Parse(projectID); err != nil {
		return nil, apperr.New(apperr.Validation, "project_id inválido")
	}
	photos, err := s.store.ListByProject(ctx, projectID)
	if err != nil {
		return nil, apperr.Wrap(apperr.Query, "Erro ao carregar fotos", err)
	}
	return photos, nil
}

// UploadProjectPhoto validates the file, stores the blob and inserts
// the metadata row with the next display_order. On row failure the
// blob is removed again and a query error is raised.
func (s *PhotoService) UploadProjectPhoto(ctx context.Context, projectID string, up Upload) (*model.ProjectPhoto, error) {
	log := logger.FromContext(ctx)

	if _, err := uuid.Parse(projectID); err != nil {
		return nil, apperr.New(apperr.Validation, "project_id inválido")
	}
	if err := validateUpload(up); err != nil {
		prometheus.UploadCounter.WithLabelValues("photo", "rejected").Inc()
		return nil, err
	}

	path := storagePath(projectID, up.FileName)
	publicURL, err := s.blobs.Upload(ctx, s.photoBucket, path, up.Data, up.ContentType)
	if err != nil {
		prometheus.UploadCounter.WithLabelValues("photo", "failed").Inc()
		return nil, apperr.Wrap(apperr.Critical, "Erro ao armazenar a foto", err)
	}

	max, found, err := s.store.MaxDisplayOrder(ctx, projectID)
	if err != nil {
		// A blind display_order 0 could collide with an existing photo;
		// give the blob back instead of guessing.
		if rmErr := s.blobs.Remove(ctx, s.photoBucket, []string{path}); rmErr != nil {
			log.Error("Failed to remove orphaned photo blob",
				zap.String("path", path), zap.Error(rmErr))
		}
		prometheus.UploadCounter.WithLabelValues("photo", "failed").Inc()
		return nil, apperr.Wrap(apperr.Query, "Erro ao registrar a foto", err)
	}
	order := 0
	if found {
		order = max + 1
	}

	var description *string
	if up.Description != "" {
		description = &up.Description
	}

	photo := &model.ProjectPhoto{
		ProjectID:    projectID,
		PhotoURL:     publicURL,
		Description:  description,
		DisplayOrder: order,
	}

	if err := s.store.Insert(ctx, photo); err != nil {
		// Compensate: the blob must not outlive the failed row.
		if rmErr := s.blobs.Remove(ctx, s.photoBucket, []string{path}); rmErr != nil {
			log.Error("Failed to remove orphaned photo blob",
				zap.String("path", path), zap.Error(rmErr))
		}
		prometheus.UploadCounter.WithLabelValues("photo", "failed").Inc()
		return nil, apperr.Wrap(apperr.Query, "Erro ao registrar a foto", err)
	}

	prometheus.UploadCounter.WithLabelValues("photo", "stored").Inc()
	return photo, nil
}

// DeleteProjectPhoto removes the metadata row first, then the blob.
// Blob removal is best effort; its failure is logged, never surfaced.
func (s *PhotoService) DeleteProjectPhoto(ctx context.Context, id string) error {
	log := logger.FromContext(ctx)

	if _, err := uuid.Parse(id); err != nil {
		return apperr.New(apperr.Validation, "id inválido")
	}

	photo, err := s.store.Get(ctx, id)
	if err != nil {
		return apperr.New(apperr.Validation, "Foto não encontrada")
	}

	if err := s.store.Delete(ctx, id); err != nil {
		return apperr.Wrap(apperr.Query, "Erro ao excluir a foto", err)
	}

	if path, ok := storage.PathFromURL(photo.PhotoURL, s.photoBucket); ok {
		if err := s.blobs.Remove(ctx, s.photoBucket, []string{path}); err != nil {
			log.Warn("Failed to remove photo blob",
				zap.String("photo_id", id), zap.Error(err))
		}
	}
	return nil
}

// UploadAvatar replaces the user's single avatar slot: the previous
// blob is removed (best effort), the new one stored and the profile
// updated, with the new blob deleted again when the update fails.
func (s *PhotoService) UploadAvatar(ctx context.Context, userID string, up Upload) (string, error) {
	log := logger.FromContext(ctx)

	if err := validateUpload(up); err != nil {
		prometheus.UploadCounter.WithLabelValues("avatar", "rejected").Inc()
		return "", err
	}

	if oldURL, err := s.avatars.AvatarURL(ctx, userID); err == nil && oldURL != "" {
		if oldPath, ok := storage.PathFromURL(oldURL, s.avatarBucket); ok {
			if err := s.blobs.Remove(ctx, s.avatarBucket, []string{oldPath}); err != nil {
				log.Warn("Failed to delete old avatar",
					zap.String("user_id", userID), zap.Error(err))
			}
		}
	}

	path := storagePath(userID, up.FileName)
	publicURL, err := s.blobs.Upload(ctx, s.avatarBucket, path, up.Data, up.ContentType)
	if err != nil {
		prometheus.UploadCounter.WithLabelValues("avatar", "failed").Inc()
		return "", apperr.Wrap(apperr.Critical, "Erro ao armazenar o avatar", err)
	}

	if err := s.avatars.SetAvatarURL(ctx, userID, publicURL); err != nil {
		if rmErr := s.blobs.Remove(ctx, s.avatarBucket, []string{path}); rmErr != nil {
			log.Error("Failed to remove orphaned avatar blob",
				zap.String("path", path), zap.Error(rmErr))
		}
		prometheus.UploadCounter.WithLabelValues("avatar", "failed").Inc()
		return "", apperr.Wrap(apperr.Query, "Erro ao atualizar o avatar", err)
	}

	prometheus.UploadCounter.WithLabelValues("avatar", "stored").Inc()
	return publicURL, nil
}

func validateUpload(up Upload) error {
	if len(up.Data) == 0 || up.FileName == "" {
		return apperr.New(apperr.Validation, "Arquivo não fornecido")
	}
	if !allowedImageTypes[normalizeContentType(up.ContentType)] {
		return apperr.New(apperr.Validation, "Tipo de arquivo não suportado. Envie JPEG, PNG, GIF ou WEBP")
	}
	if len(up.Data) > MaxUploadSize {
		return apperr.New(apperr.Validation, "O arquivo excede o tamanho máximo de 3MB")
	}
	return nil
}

func normalizeContentType(ct string) string {
	if idx := strings.Index(ct, ";"); idx >= 0 {
		ct = ct[:idx]
	}
	return strings.ToLower(strings.TrimSpace(ct))
}

// storagePath builds a collision-resistant object path: scope prefix,
// millisecond timestamp plus random suffix, original extension kept.
func storagePath(scope, fileName string) string {
	ext := filepath.Ext(fileName)
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:7]
	return fmt.Sprintf("%s/%d-%s%s", scope, time.Now().UnixMilli(), suffix, ext)
}
