// Package media validates and stores story covers and profile photos.
package media

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/himlearning/storyhub/internal/models"
	"github.com/himlearning/storyhub/internal/pkg/apperr"
)

// Folders group uploaded objects by owner type.
const (
	FolderStories = "stories"
	FolderUsers   = "users"
)

var (
	imageTypes = map[string]struct{}{
		"image/jpeg": {}, "image/jpg": {}, "image/png": {}, "image/gif": {}, "image/webp": {},
	}
	videoTypes = map[string]struct{}{
		"video/mp4": {}, "video/mpeg": {}, "video/quicktime": {}, "video/x-msvideo": {},
		"video/webm": {}, "video/mov": {}, "video/avi": {},
	}
)

// Upload is a file received from a client.
type Upload struct {
	Reader      io.Reader
	Size        int64
	ContentType string
	Filename    string
	// Prefix names the object, e.g. "story" or "user_<id>".
	Prefix string

	closer io.Closer
}

// Close releases the underlying file, if any.
func (u *Upload) Close() error {
	if u == nil || u.closer == nil {
		return nil
	}
	return u.closer.Close()
}

// Asset is a stored media object.
type Asset struct {
	URL  string
	ID   string
	Type models.MediaType
}

// Provider stores media objects. Thumbnail and Duration are best-effort and
// may return zero values when the backend cannot derive them.
type Provider interface {
	Upload(ctx context.Context, folder string, up *Upload) (*Asset, error)
	Thumbnail(ctx context.Context, asset *Asset) (string, error)
	Duration(ctx context.Context, asset *Asset) (float64, error)
	Delete(ctx context.Context, id string) error
}

// Limits caps upload sizes per media type.
type Limits struct {
	MaxImageBytes int64
	MaxVideoBytes int64
}

// Classify returns the media type for a MIME type.
func Classify(contentType string) (models.MediaType, bool) {
	ct := normalizeContentType(contentType)
	if _, ok := imageTypes[ct]; ok {
		return models.MediaImage, true
	}
	if _, ok := videoTypes[ct]; ok {
		return models.MediaVideo, true
	}
	return "", false
}

// Validate checks type and size and returns the media type of the upload.
func (l Limits) Validate(up *Upload) (models.MediaType, error) {
	if up == nil || up.Reader == nil {
		return "", apperr.UploadRejected("no file received")
	}
	kind, ok := Classify(up.ContentType)
	if !ok {
		return "", apperr.UploadRejected("Please provide a valid image (JPEG, PNG, GIF, WebP) or video file (MP4, MOV, AVI, WebM)")
	}
	max := l.MaxImageBytes
	if kind == models.MediaVideo {
		max = l.MaxVideoBytes
	}
	if max > 0 && up.Size > max {
		return "", apperr.UploadRejected(fmt.Sprintf("%s files must be %dMB or smaller", kind, max>>20))
	}
	return kind, nil
}

// ValidateImage is Validate restricted to images, used for profile photos.
func (l Limits) ValidateImage(up *Upload) error {
	kind, err := l.Validate(up)
	if err != nil {
		return err
	}
	if kind != models.MediaImage {
		return apperr.UploadRejected("Please provide a valid image (JPEG, PNG, GIF, WebP)")
	}
	return nil
}

// fromFileHeader opens a multipart file as an Upload. The caller must Close it.
func fromFileHeader(fh *multipart.FileHeader, prefix string) (*Upload, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, apperr.Wrap(apperr.KindUploadRejected, "could not read uploaded file", err)
	}
	_ = f.Close()
	return fromFileHeader(fh, prefix)
}

// FromRequest returns the optional file field of a multipart request, or nil
// when the request carries none.
func FromRequest(r *http.Request, field, prefix string) (*Upload, error) {
	f, fh, err := r.FormFile(field)
	if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
		return nil, nil
	}
	if err != nil {
		return nil, apperr.Wrap(apperr.KindUploadRejected, "could not read uploaded file", err)
	}
	return &Upload{
		Reader:      f,
		Size:        fh.Size,
		ContentType: detectContentType(fh.Filename, fh.Header.Get("Content-Type")),
		Filename:    fh.Filename,
		Prefix:      prefix,
		closer:      f,
	}, nil
}
