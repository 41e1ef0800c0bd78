package entity

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

type MediaKind string

const (
	MediaKindVideo MediaKind = "video"
	MediaKindImage MediaKind = "image"
)

var allowedExtensions = map[MediaKind][]string{
	MediaKindVideo: {"mp4", "mov", "avi", "mkv"},
	MediaKindImage: {"png", "jpg", "jpeg"},
}

// AllowedExtensions returns the extensions (lower case, no dot) accepted for kind.
func AllowedExtensions(kind MediaKind) []string {
	return append([]string(nil), allowedExtensions[kind]...)
}

// NormalizeExtension lower-cases ext and strips the leading dot.
func NormalizeExtension(ext string) string {
	return strings.TrimPrefix(strings.ToLower(strings.TrimSpace(ext)), ".")
}

// ExtensionAllowed reports whether ext (with or without dot) is on the allow-list for kind.
func ExtensionAllowed(kind MediaKind, ext string) bool {
	ext = NormalizeExtension(ext)
	for _, allowed := range allowedExtensions[kind] {
		if ext == allowed {
			return true
		}
	}
	return false
}

// MediaAsset is a single file on local ephemeral storage. It pins disk space
// until its owner removes it; nothing removes it implicitly.
type MediaAsset struct {
	Path      string
	Kind      MediaKind
	Extension string
	SizeBytes int64
}

func (a MediaAsset) IsVideo() bool { return a.Kind == MediaKindVideo }

func (a MediaAsset) Name() string { return filepath.Base(a.Path) }

// Size re-reads the current size of the file backing the asset.
func (a MediaAsset) Size() (int64, error) {
	info, err := os.Stat(a.Path)
	if err != nil {
		return 0, fmt.Errorf("stat %s: %w", a.Path, err)
	}
	return info.Size(), nil
}

// MIMEType derives the content type from the asset extension.
func (a MediaAsset) MIMEType() string {
	switch NormalizeExtension(a.Extension) {
	case "mp4":
		return "video/mp4"
	case "mov":
		return "video/quicktime"
	case "avi":
		return "video/x-msvideo"
	case "mkv":
		return "video/x-matroska"
	case "png":
		return "image/png"
	case "jpg", "jpeg":
		return "image/jpeg"
	}
	return "application/octet-stream"
}
