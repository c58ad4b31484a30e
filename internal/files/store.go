// Package files keeps uploaded chat attachments on a local (or in-memory)
// filesystem and maps them to public URLs. Every file belongs to one room and
// lives under <dir>/<room>/.
package files

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/dkeye/Meet/internal/domain"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"
)

var (
	ErrTooLarge   = errors.New("file too large")
	ErrForeignURL = errors.New("url does not belong to this store")
	ErrBadName    = errors.New("invalid file name")
)

type Store struct {
	fs      afero.Fs
	dir     string
	baseURL string
	maxSize int64
}

func NewStore(fs afero.Fs, dir, baseURL string, maxSize int64) (*Store, error) {
	if err := fs.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &Store{
		fs:      fs,
		dir:     dir,
		baseURL: strings.TrimSuffix(baseURL, "/"),
		maxSize: maxSize,
	}, nil
}

// NewOSStore stores files on disk under dir.
func NewOSStore(dir, baseURL string, maxSize int64) (*Store, error) {
	return NewStore(afero.NewOsFs(), dir, baseURL, maxSize)
}

func sanitize(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	name = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-', r == '_':
			return r
		}
		return '_'
	}, name)
	if name == "." || name == ".." || name == "/" {
		return ""
	}
	return name
}

// roomDir returns the directory name of room; ids that are not safe path
// segments are refused.
func roomDir(room domain.RoomID) (string, error) {
	if room.Validate() != nil || sanitize(string(room)) != string(room) {
		return "", ErrBadName
	}
	return string(room), nil
}

// Save writes r under a unique name derived from name in room's directory
// and returns its URL.
func (s *Store) Save(room domain.RoomID, name string, r io.Reader) (string, error) {
	dir, err := roomDir(room)
	if err != nil {
		return "", err
	}
	clean := sanitize(name)
	if clean == "" {
		return "", ErrBadName
	}
	if err := s.fs.MkdirAll(filepath.Join(s.dir, dir), 0o755); err != nil {
		return "", fmt.Errorf("create room dir: %w", err)
	}
	stored := uuid.NewString() + "-" + clean
	p := filepath.Join(s.dir, dir, stored)

	f, err := s.fs.OpenFile(p, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return "", fmt.Errorf("create %s: %w", stored, err)
	}
	src := r
	if s.maxSize > 0 {
		src = io.LimitReader(r, s.maxSize+1)
	}
	n, err := io.Copy(f, src)
	closeErr := f.Close()
	if err == nil && s.maxSize > 0 && n > s.maxSize {
		err = ErrTooLarge
	}
	if err == nil {
		err = closeErr
	}
	if err != nil {
		_ = s.fs.Remove(p)
		return "", err
	}
	return s.baseURL + "/" + dir + "/" + stored, nil
}

// pathOf maps a URL of room back to its file. URLs outside the room's
// prefix are ErrForeignURL.
func (s *Store) pathOf(room domain.RoomID, url string) (string, error) {
	dir, err := roomDir(room)
	if err != nil {
		return "", err
	}
	prefix := s.baseURL + "/" + dir + "/"
	if !strings.HasPrefix(url, prefix) {
		return "", ErrForeignURL
	}
	name := strings.TrimPrefix(url, prefix)
	if name == "" || name == "." || name == ".." || path.Base(name) != name || sanitize(name) != name {
		return "", ErrBadName
	}
	return filepath.Join(s.dir, dir, name), nil
}

// Owns reports whether url names a file stored for room.
func (s *Store) Owns(room domain.RoomID, url string) bool {
	_, err := s.pathOf(room, url)
	return err == nil
}

// Open returns the file of room behind url.
func (s *Store) Open(room domain.RoomID, url string) (afero.File, error) {
	p, err := s.pathOf(room, url)
	if err != nil {
		return nil, err
	}
	return s.fs.Open(p)
}

// Remove unlinks the file of room behind url. URLs of other rooms, or not
// produced by this store, are refused with ErrForeignURL.
func (s *Store) Remove(room domain.RoomID, url string) error {
	p, err := s.pathOf(room, url)
	if err != nil {
		return err
	}
	if err := s.fs.Remove(p); err != nil {
		return err
	}
	log.Debug().Str("module", "files").Str("room", string(room)).Str("path", p).Msg("removed attachment")
	return nil
}
