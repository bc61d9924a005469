package media

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/himlearning/storyhub/internal/models"
)

// LocalProvider stores media on disk and serves it under a base URL.
type LocalProvider struct {
	dir               string
	baseURL           string
	thumbnailTemplate string
	now               func() time.Time
}

func NewLocalProvider(dir, baseURL, thumbnailTemplate string) (*LocalProvider, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, errors.New("local media dir is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create media dir: %w", err)
	}
	return &LocalProvider{
		dir:               dir,
		baseURL:           strings.TrimRight(baseURL, "/"),
		thumbnailTemplate: thumbnailTemplate,
		now:               time.Now,
	}, nil
}

// Dir is the directory served at BaseURL.
func (p *LocalProvider) Dir() string { return p.dir }

// BaseURL is the public prefix of stored files.
func (p *LocalProvider) BaseURL() string { return p.baseURL }

func (p *LocalProvider) Upload(ctx context.Context, folder string, up *Upload) (*Asset, error) {
	kind, ok := Classify(up.ContentType)
	if !ok {
		kind = models.MediaImage
	}
	key := objectKey(folder, up, p.now())
	path := filepath.Join(p.dir, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	if _, err := io.Copy(f, readerWithContext(ctx, up.Reader)); err != nil {
		f.Close()
		os.Remove(path)
		return nil, err
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return nil, err
	}
	return &Asset{URL: p.baseURL + "/" + key, ID: key, Type: kind}, nil
}

func (p *LocalProvider) Thumbnail(_ context.Context, asset *Asset) (string, error) {
	return expandThumbnail(p.thumbnailTemplate, asset), nil
}

func (p *LocalProvider) Duration(context.Context, *Asset) (float64, error) {
	return 0, nil
}

func (p *LocalProvider) Delete(_ context.Context, id string) error {
	key := normalizeObjectKey(id)
	if !isSafeKey(key) {
		return fmt.Errorf("invalid media id %q", id)
	}
	err := os.Remove(filepath.Join(p.dir, filepath.FromSlash(key)))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func readerWithContext(ctx context.Context, r io.Reader) io.Reader {
	return &ctxReader{ctx: ctx, r: r}
}

func (c *ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
