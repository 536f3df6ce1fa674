package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/cicotti/reportfy-api/internal/apperr"
	"github.com/cicotti/reportfy-api/internal/model"
)

const photoProjectID = "9c2d3e4f-5a6b-4c7d-8e9f-0a1b2c3d4e5f"

type fakePhotoStore struct {
	photos       map[string]model.ProjectPhoto
	failInsert   error
	failMaxOrder error
}

func (s *fakePhotoStore) ListByProject(_ context.Context, projectID string) ([]model.ProjectPhoto, error) {
	var out []model.ProjectPhoto
	for _, p := range s.photos {
		if p.ProjectID == projectID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (s *fakePhotoStore) Get(_ context.Context, id string) (*model.ProjectPhoto, error) {
	p, ok := s.photos[id]
	if !ok {
		return nil, errors.New("not found")
	}
	return &p, nil
}

func (s *fakePhotoStore) MaxDisplayOrder(_ context.Context, projectID string) (int, bool, error) {
	if s.failMaxOrder != nil {
		return 0, false, s.failMaxOrder
	}
	max, found := 0, false
	for _, p := range s.photos {
		if p.ProjectID != projectID {
			continue
		}
		if !found || p.DisplayOrder > max {
			max = p.DisplayOrder
		}
		found = true
	}
	return max, found, nil
}

func (s *fakePhotoStore) Insert(_ context.Context, photo *model.ProjectPhoto) error {
	if s.failInsert != nil {
		return s.failInsert
	}
	if s.photos == nil {
		s.photos = map[string]model.ProjectPhoto{}
	}
	photo.ID = fmt.Sprintf("photo-%d", len(s.photos))
	s.photos[photo.ID] = *photo
	return nil
}

func (s *fakePhotoStore) Delete(_ context.Context, id string) error {
	delete(s.photos, id)
	return nil
}

type fakeAvatarStore struct {
	urls    map[string]string
	failSet error
}

func (s *fakeAvatarStore) AvatarURL(_ context.Context, userID string) (string, error) {
	return s.urls[userID], nil
}

func (s *fakeAvatarStore) SetAvatarURL(_ context.Context, userID, url string) error {
	if s.failSet != nil {
		return s.failSet
	}
	if s.urls == nil {
		s.urls = map[string]string{}
	}
	s.urls[userID] = url
	return nil
}

type fakeBlobStore struct {
	uploads []string
	removed []string
}

func (s *fakeBlobStore) Upload(_ context.Context, bucket, path string, _ []byte, _ string) (string, error) {
	s.uploads = append(s.uploads, path)
	return "https://storage.local/" + bucket + "/" + path, nil
}

func (s *fakeBlobStore) Remove(_ context.Context, _ string, paths []string) error {
	s.removed = append(s.removed, paths...)
	return nil
}

func newTestPhotoService(store *fakePhotoStore, avatars *fakeAvatarStore, blobs *fakeBlobStore) *PhotoService {
	return NewPhotoService(store, avatars, blobs, "project-photos", "avatars")
}

func validPhoto() Upload {
	return Upload{
		FileName:    "obra.jpg",
		ContentType: "image/jpeg",
		Data:        []byte("jpegdata"),
	}
}

func TestUploadRejectsUnsupportedType(t *testing.T) {
	blobs := &fakeBlobStore{}
	svc := newTestPhotoService(&fakePhotoStore{}, &fakeAvatarStore{}, blobs)

	up := validPhoto()
	up.FileName = "report.pdf"
	up.ContentType = "application/pdf"

	_, err := svc.UploadProjectPhoto(context.Background(), photoProjectID, up)
	if apperr.KindOf(err) != apperr.Validation {
		t.Fatalf("kind = %v, want Validation", apperr.KindOf(err))
	}
	if len(blobs.uploads) != 0 {
		t.Fatalf("blob store hit %d times, want 0", len(blobs.uploads))
	}
}

func TestUploadRejectsOversizedFile(t *testing.T) {
	blobs := &fakeBlobStore{}
	svc := newTestPhotoService(&fakePhotoStore{}, &fakeAvatarStore{}, blobs)

	up := validPhoto()
	up.Data = bytes.Repeat([]byte("x"), MaxUploadSize+1)

	_, err := svc.UploadProjectPhoto(context.Background(), photoProjectID, up)
	if apperr.KindOf(err) != apperr.Validation {
		t.Fatalf("kind = %v, want Validation", apperr.KindOf(err))
	}
	if len(blobs.uploads) != 0 {
		t.Fatalf("blob store hit %d times, want 0", len(blobs.uploads))
	}
}

func TestUploadRejectsEmptyFile(t *testing.T) {
	svc := newTestPhotoService(&fakePhotoStore{}, &fakeAvatarStore{}, &fakeBlobStore{})

	_, err := svc.UploadProjectPhoto(context.Background(), photoProjectID, Upload{FileName: "a.jpg", ContentType: "image/jpeg"})
	if apperr.KindOf(err) != apperr.Validation {
		t.Fatalf("kind = %v, want Validation", apperr.KindOf(err))
	}
}

func TestUploadAcceptsContentTypeParameters(t *testing.T) {
	svc := newTestPhotoService(&fakePhotoStore{}, &fakeAvatarStore{}, &fakeBlobStore{})

	up := validPhoto()
	up.ContentType = "image/PNG; charset=binary"
	up.FileName = "obra.png"

	if _, err := svc.UploadProjectPhoto(context.Background(), photoProjectID, up); err != nil {
		t.Fatalf("upload rejected: %v", err)
	}
}

func TestUploadAssignsNextDisplayOrder(t *testing.T) {
	store := &fakePhotoStore{}
	svc := newTestPhotoService(store, &fakeAvatarStore{}, &fakeBlobStore{})

	for i := 0; i < 3; i++ {
		photo, err := svc.UploadProjectPhoto(context.Background(), photoProjectID, validPhoto())
		if err != nil {
			t.Fatalf("upload #%d: %v", i, err)
		}
		if photo.DisplayOrder != i {
			t.Fatalf("upload #%d: display_order = %d, want %d", i, photo.DisplayOrder, i)
		}
	}
}

func TestUploadRemovesBlobWhenInsertFails(t *testing.T) {
	store := &fakePhotoStore{failInsert: errors.New("db down")}
	blobs := &fakeBlobStore{}
	svc := newTestPhotoService(store, &fakeAvatarStore{}, blobs)

	_, err := svc.UploadProjectPhoto(context.Background(), photoProjectID, validPhoto())
	if apperr.KindOf(err) != apperr.Query {
		t.Fatalf("kind = %v, want Query", apperr.KindOf(err))
	}
	if len(blobs.uploads) != 1 || len(blobs.removed) != 1 {
		t.Fatalf("uploads = %d, removed = %d; want 1 and 1", len(blobs.uploads), len(blobs.removed))
	}
	if blobs.removed[0] != blobs.uploads[0] {
		t.Fatalf("removed %q, want the uploaded path %q", blobs.removed[0], blobs.uploads[0])
	}
}

func TestUploadRemovesBlobWhenOrderLookupFails(t *testing.T) {
	store := &fakePhotoStore{failMaxOrder: errors.New("db down")}
	blobs := &fakeBlobStore{}
	svc := newTestPhotoService(store, &fakeAvatarStore{}, blobs)

	_, err := svc.UploadProjectPhoto(context.Background(), photoProjectID, validPhoto())
	if apperr.KindOf(err) != apperr.Query {
		t.Fatalf("kind = %v, want Query", apperr.KindOf(err))
	}
	if len(store.photos) != 0 {
		t.Fatalf("%d rows inserted despite the order lookup failure", len(store.photos))
	}
	if len(blobs.removed) != 1 || blobs.removed[0] != blobs.uploads[0] {
		t.Fatalf("orphaned blob not compensated: uploads=%v removed=%v", blobs.uploads, blobs.removed)
	}
}

func TestDeleteUnknownPhoto(t *testing.T) {
	svc := newTestPhotoService(&fakePhotoStore{}, &fakeAvatarStore{}, &fakeBlobStore{})

	err := svc.DeleteProjectPhoto(context.Background(), "3f4a5b6c-7d8e-4f90-a1b2-c3d4e5f6a7b8")
	if apperr.KindOf(err) != apperr.Validation {
		t.Fatalf("kind = %v, want Validation", apperr.KindOf(err))
	}
}

func TestDeleteRemovesRowAndBlob(t *testing.T) {
	store := &fakePhotoStore{}
	blobs := &fakeBlobStore{}
	svc := newTestPhotoService(store, &fakeAvatarStore{}, blobs)

	photo, err := svc.UploadProjectPhoto(context.Background(), photoProjectID, validPhoto())
	if err != nil {
		t.Fatal(err)
	}

	// Swap in a well-formed uuid so the id validation passes.
	const id = "3f4a5b6c-7d8e-4f90-a1b2-c3d4e5f6a7b8"
	rec := store.photos[photo.ID]
	rec.ID = id
	delete(store.photos, photo.ID)
	store.photos[id] = rec

	if err := svc.DeleteProjectPhoto(context.Background(), id); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if len(store.photos) != 0 {
		t.Fatalf("%d rows left, want 0", len(store.photos))
	}
	if len(blobs.removed) != 1 {
		t.Fatalf("removed %d blobs, want 1", len(blobs.removed))
	}
}

func TestUploadAvatarReplacesOldBlob(t *testing.T) {
	avatars := &fakeAvatarStore{urls: map[string]string{
		"user-1": "https://storage.local/avatars/user-1/old.png",
	}}
	blobs := &fakeBlobStore{}
	svc := newTestPhotoService(&fakePhotoStore{}, avatars, blobs)

	up := validPhoto()
	url, err := svc.UploadAvatar(context.Background(), "user-1", up)
	if err != nil {
		t.Fatalf("avatar upload: %v", err)
	}
	if url == "" || avatars.urls["user-1"] != url {
		t.Fatalf("avatar url not updated: got %q, stored %q", url, avatars.urls["user-1"])
	}
	if len(blobs.removed) != 1 || blobs.removed[0] != "user-1/old.png" {
		t.Fatalf("old blob not removed: %v", blobs.removed)
	}
	if len(blobs.uploads) != 1 {
		t.Fatalf("uploads = %d, want 1", len(blobs.uploads))
	}
}

func TestUploadAvatarCompensatesOnProfileFailure(t *testing.T) {
	avatars := &fakeAvatarStore{failSet: errors.New("db down")}
	blobs := &fakeBlobStore{}
	svc := newTestPhotoService(&fakePhotoStore{}, avatars, blobs)

	_, err := svc.UploadAvatar(context.Background(), "user-1", validPhoto())
	if apperr.KindOf(err) != apperr.Query {
		t.Fatalf("kind = %v, want Query", apperr.KindOf(err))
	}
	if len(blobs.removed) != 1 {
		t.Fatalf("orphaned blob not removed: %v", blobs.removed)
	}
}
