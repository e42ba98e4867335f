// Package uploads persists files submitted through the upload form.
package uploads

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

var (
	ErrMissingFile = errors.New("no file submitted")
	ErrOutsideDir  = errors.New("resolved upload path escapes the upload directory")
)

// Saver writes uploads into Dir. Files with the same sanitized name replace
// each other; the last upload wins.
type Saver struct {
	Dir string
}

func NewSaver(dir string) *Saver {
	return &Saver{Dir: dir}
}

// Save stores a multipart form file and returns its path.
func (s *Saver) Save(fh *multipart.FileHeader) (string, error) {
	if fh == nil || fh.Filename == "" {
		return "", ErrMissingFile
	}

	f, err := fh.Open()
	if err != nil {
		return "", fmt.Errorf("open form file: %w", err)
	}
	defer f.Close()

	return s.SaveFile(fh.Filename, f)
}

// SaveFile stores r under the sanitized form of name.
func (s *Saver) SaveFile(name string, r io.Reader) (string, error) {
	if strings.TrimSpace(name) == "" {
		return "", ErrMissingFile
	}

	safe, err := SanitizeFilename(name)
	if errors.Is(err, ErrEmptyName) {
		safe = "upload-" + uuid.New().String()
		if ext := sanitizeExt(path.Ext(baseName(name))); ext != "" {
			safe += "." + ext
		}
	}

	dst := filepath.Join(s.Dir, safe)
	if err := s.contains(dst); err != nil {
		return "", err
	}

	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return "", fmt.Errorf("create upload dir: %w", err)
	}

	tmp, err := os.CreateTemp(s.Dir, ".upload-*")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return "", fmt.Errorf("write upload: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return "", fmt.Errorf("close upload: %w", err)
	}
	if err := os.Rename(tmpName, dst); err != nil {
		os.Remove(tmpName)
		return "", fmt.Errorf("move upload into place: %w", err)
	}

	return dst, nil
}

func (s *Saver) contains(p string) error {
	dir, err := filepath.Abs(s.Dir)
	if err != nil {
		return err
	}
	abs, err := filepath.Abs(p)
	if err != nil {
		return err
	}
	rel, err := filepath.Rel(dir, abs)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) || strings.ContainsRune(rel, filepath.Separator) {
		return ErrOutsideDir
	}
	return nil
}
