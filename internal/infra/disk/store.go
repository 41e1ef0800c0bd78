package disk

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/oskarjolofsson/GSA1.0/internal/domain/entity"
)

// Store keeps media assets on local ephemeral storage, one directory per kind.
type Store struct {
	root string
	now  func() time.Time
}

func NewStore(root string) (*Store, error) {
	s := &Store{root: root, now: time.Now}
	for _, kind := range []entity.MediaKind{entity.MediaKindVideo, entity.MediaKindImage} {
		if err := os.MkdirAll(s.dir(kind), 0755); err != nil {
			return nil, fmt.Errorf("create %s dir: %w", kind, err)
		}
	}
	return s, nil
}

func (s *Store) dir(kind entity.MediaKind) string {
	return filepath.Join(s.root, string(kind)+"s")
}

// Ingest validates the extension of filename against the allow-list for kind
// and writes r under a freshly generated name.
func (s *Store) Ingest(r io.Reader, filename string, kind entity.MediaKind) (entity.MediaAsset, error) {
	ext := entity.NormalizeExtension(filepath.Ext(filename))
	if !entity.ExtensionAllowed(kind, ext) {
		return entity.MediaAsset{}, entity.NewValidationError("filename",
			"%q is not an allowed %s type (allowed: %s)", filename, kind, strings.Join(entity.AllowedExtensions(kind), ", "))
	}

	base := strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename))
	f, path, err := s.create(kind, base, ext)
	if err != nil {
		return entity.MediaAsset{}, err
	}

	n, err := io.Copy(f, r)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(path)
		return entity.MediaAsset{}, fmt.Errorf("write %s: %w", path, err)
	}

	return entity.MediaAsset{Path: path, Kind: kind, Extension: ext, SizeBytes: n}, nil
}

// Allocate reserves a new empty file for a tool (ffmpeg) to overwrite and
// returns its path.
func (s *Store) Allocate(kind entity.MediaKind, base, ext string) (string, error) {
	ext = entity.NormalizeExtension(ext)
	if !entity.ExtensionAllowed(kind, ext) {
		return "", entity.NewValidationError("extension", "%q is not an allowed %s type", ext, kind)
	}
	f, path, err := s.create(kind, base, ext)
	if err != nil {
		return "", err
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("close %s: %w", path, err)
	}
	return path, nil
}

// Adopt wraps a file written at path as an asset of kind.
func (s *Store) Adopt(path string, kind entity.MediaKind) (entity.MediaAsset, error) {
	info, err := os.Stat(path)
	if err != nil {
		return entity.MediaAsset{}, fmt.Errorf("stat %s: %w", path, err)
	}
	return entity.MediaAsset{
		Path:      path,
		Kind:      kind,
		Extension: entity.NormalizeExtension(filepath.Ext(path)),
		SizeBytes: info.Size(),
	}, nil
}

// Remove deletes the asset file. Removing an asset twice fails with an error
// wrapping fs.ErrNotExist; callers track disposal.
func (s *Store) Remove(asset entity.MediaAsset) error {
	if err := os.Remove(asset.Path); err != nil {
		return fmt.Errorf("remove %s asset: %w", asset.Kind, err)
	}
	return nil
}

var unsafeNameChars = regexp.MustCompile(`[^A-Za-z0-9_-]+`)

// create opens a new file with O_EXCL so an existing asset is never overwritten.
func (s *Store) create(kind entity.MediaKind, base, ext string) (*os.File, string, error) {
	base = unsafeNameChars.ReplaceAllString(base, "_")
	if base == "" || base == "_" {
		base = string(kind)
	}
	if len(base) > 48 {
		base = base[:48]
	}

	for attempt := 0; attempt < 3; attempt++ {
		name := fmt.Sprintf("%s_%s_%s.%s", base, s.now().Format("20060102_150405"), uuid.NewString()[:8], ext)
		path := filepath.Join(s.dir(kind), name)
		f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
		if err == nil {
			return f, path, nil
		}
		if !errors.Is(err, os.ErrExist) {
			return nil, "", fmt.Errorf("create %s: %w", path, err)
		}
	}
	return nil, "", fmt.Errorf("could not allocate a unique %s filename for %q", kind, base)
}
