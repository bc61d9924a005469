package media

import (
	"fmt"
	"mime"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
)

const maxNameLength = 50

var (
	unsafeNameChars = regexp.MustCompile(`[^a-zA-Z0-9.\-_\s]`)
	spaces          = regexp.MustCompile(`\s+`)
	underscores     = regexp.MustCompile(`_+`)
)

// SanitizeFilename reduces a client filename (without extension) to
// [A-Za-z0-9._-], joining words with underscores.
func SanitizeFilename(name string) string {
	name = strings.TrimSuffix(name, filepath.Ext(name))
	name = unsafeNameChars.ReplaceAllString(name, "")
	name = spaces.ReplaceAllString(strings.TrimSpace(name), "_")
	name = underscores.ReplaceAllString(name, "_")
	name = strings.Trim(name, "_")
	if len(name) > maxNameLength {
		name = name[:maxNameLength]
	}
	if name == "" {
		return "unnamed_file"
	}
	return name
}

// objectKey builds "<folder>/<prefix>_<ts>_<name>_<rand><ext>".
func objectKey(folder string, up *Upload, now time.Time) string {
	prefix := strings.TrimSpace(up.Prefix)
	if prefix == "" {
		prefix = "file"
	}
	ext := strings.ToLower(filepath.Ext(strings.TrimSpace(up.Filename)))
	if ext == "" || len(ext) > 10 {
		if exts, _ := mime.ExtensionsByType(up.ContentType); len(exts) > 0 {
			ext = exts[0]
		} else {
			ext = ".dat"
		}
	}
	name := fmt.Sprintf("%s_%d_%s_%s%s",
		prefix, now.UnixMilli(), SanitizeFilename(up.Filename), strings.ReplaceAll(uuid.NewString(), "-", "")[:8], ext)
	return normalizeObjectKey(folder + "/" + name)
}

// detectContentType prefers the client header and falls back to the extension.
func detectContentType(filename, header string) string {
	if ct := normalizeContentType(header); ct != "" && ct != "application/octet-stream" {
		return ct
	}
	if ext := strings.ToLower(filepath.Ext(strings.TrimSpace(filename))); ext != "" {
		if guessed := mime.TypeByExtension(ext); guessed != "" {
			return normalizeContentType(guessed)
		}
	}
	return "application/octet-stream"
}

func normalizeContentType(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	if mt, _, err := mime.ParseMediaType(raw); err == nil {
		return strings.ToLower(mt)
	}
	return strings.ToLower(raw)
}

func normalizeObjectKey(key string) string {
	key = strings.TrimSpace(strings.ReplaceAll(key, "\\", "/"))
	key = strings.TrimPrefix(key, "/")
	for strings.Contains(key, "//") {
		key = strings.ReplaceAll(key, "//", "/")
	}
	return key
}

// isSafeKey rejects keys that could escape the storage root.
func isSafeKey(key string) bool {
	if key == "" || strings.HasPrefix(key, "/") {
		return false
	}
	for _, seg := range strings.Split(key, "/") {
		if seg == "" || seg == "." || seg == ".." {
			return false
		}
	}
	return true
}

func joinURLPath(parts ...string) string {
	segments := make([]string, 0, len(parts))
	for _, p := range parts {
		for _, seg := range strings.Split(strings.TrimSpace(p), "/") {
			seg = strings.TrimSpace(seg)
			if seg != "" {
				segments = append(segments, seg)
			}
		}
	}
	return "/" + strings.Join(segments, "/")
}

// expandThumbnail fills a thumbnail URL template. Supported tokens are
// {url}, {key} and {stem} (key without extension).
func expandThumbnail(template string, asset *Asset) string {
	template = strings.TrimSpace(template)
	if template == "" || asset == nil {
		return ""
	}
	return strings.NewReplacer(
		"{url}", asset.URL,
		"{key}", asset.ID,
		"{stem}", strings.TrimSuffix(asset.ID, filepath.Ext(asset.ID)),
	).Replace(template)
}
