package staging

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/nikhilbhutani/audioweather/internal/models"
)

const (
	DefaultPrefix    = "audio-"
	DefaultExtension = ".m4a"
)

// Area is the directory holding one staged audio file per in-flight request.
type Area struct {
	dir    string
	prefix string
	ext    string
	now    func() time.Time
}

// New returns an Area rooted at dir, creating the directory if absent.
func New(dir string) (*Area, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolve staging dir: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("create staging dir: %w", err)
	}
	return &Area{
		dir:    abs,
		prefix: DefaultPrefix,
		ext:    DefaultExtension,
		now:    time.Now,
	}, nil
}

func (a *Area) Dir() string { return a.dir }

// Stage copies r into a new file whose name is unique per call.
func (a *Area) Stage(r io.Reader) (*models.UploadedAudio, error) {
	name := a.newName()
	path := filepath.Join(a.dir, name)

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return nil, fmt.Errorf("create staged file: %w", err)
	}

	n, err := io.Copy(f, r)
	if err != nil {
		f.Close()
		os.Remove(path)
		return nil, fmt.Errorf("write staged audio: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return nil, fmt.Errorf("close staged file: %w", err)
	}

	return &models.UploadedAudio{Filename: name, Size: n, Path: path}, nil
}

// Release deletes a staged file. A nil audio or an already removed file is not an error.
func (a *Area) Release(audio *models.UploadedAudio) error {
	if audio == nil || audio.Path == "" {
		return nil
	}
	if err := os.Remove(audio.Path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove staged audio %s: %w", audio.Filename, err)
	}
	return nil
}

// Remove deletes a staged file by its generated name.
func (a *Area) Remove(name string) error {
	if !a.owns(name) {
		return fmt.Errorf("%q is not a staged audio file", name)
	}
	if err := os.Remove(filepath.Join(a.dir, name)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove staged audio %s: %w", name, err)
	}
	return nil
}

// Sweep deletes staged files last modified more than maxAge ago and returns
// how many were removed. Files that vanish mid-sweep are skipped.
func (a *Area) Sweep(maxAge time.Duration) (int, error) {
	entries, err := os.ReadDir(a.dir)
	if err != nil {
		return 0, fmt.Errorf("read staging dir: %w", err)
	}

	cutoff := a.now().Add(-maxAge)
	removed := 0
	var errs []error
	for _, e := range entries {
		if e.IsDir() || !a.owns(e.Name()) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			if !errors.Is(err, fs.ErrNotExist) {
				errs = append(errs, err)
			}
			continue
		}
		if info.ModTime().After(cutoff) {
			continue
		}
		if err := os.Remove(filepath.Join(a.dir, e.Name())); err != nil {
			if !errors.Is(err, fs.ErrNotExist) {
				errs = append(errs, err)
			}
			continue
		}
		removed++
	}
	return removed, errors.Join(errs...)
}

func (a *Area) newName() string {
	return fmt.Sprintf("%s%d-%s%s", a.prefix, a.now().UnixNano(), uuid.NewString()[:8], a.ext)
}

func (a *Area) owns(name string) bool {
	return name == filepath.Base(name) &&
		strings.HasPrefix(name, a.prefix) &&
		strings.HasSuffix(name, a.ext)
}
