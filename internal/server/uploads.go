package server

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/liuji1031/visualize-architecture/pkg/errors"
	"github.com/liuji1031/visualize-architecture/pkg/store"
)

// Upload is one unpacked configuration folder on disk.
type Upload struct {
	ID        string    `json:"id"`
	MainFile  string    `json:"main_file,omitempty"`
	Files     []string  `json:"files"`
	CreatedAt time.Time `json:"created_at"`

	dir string
}

// UploadManager owns the upload directory tree. Every upload gets its own
// subdirectory named by a fresh UUID, and file reads go through a
// root-confined fetcher so a malicious config reference can never escape
// its upload.
type UploadManager struct {
	root string

	mu      sync.Mutex
	uploads map[string]*Upload
}

// NewUploadManager creates a manager rooted at dir; an empty dir uses a
// fresh temporary directory.
func NewUploadManager(dir string) (*UploadManager, error) {
	if dir == "" {
		tmp, err := os.MkdirTemp("", "netviz-uploads-*")
		if err != nil {
			return nil, err
		}
		dir = tmp
	} else if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &UploadManager{root: dir, uploads: make(map[string]*Upload)}, nil
}

// CreateFromFile stores a single configuration file as a new upload.
func (m *UploadManager) CreateFromFile(name string, content io.Reader) (*Upload, error) {
	if err := checkEntryName(name); err != nil {
		return nil, err
	}
	u, err := m.newUpload()
	if err != nil {
		return nil, err
	}

	if err := writeEntry(u.dir, name, content); err != nil {
		m.discard(u)
		return nil, err
	}
	u.MainFile = name
	u.Files = []string{name}
	return u, nil
}

// CreateFromZip unpacks a zip archive as a new upload. mainFile names the
// entry configuration within the archive and must exist there.
func (m *UploadManager) CreateFromZip(archive io.ReaderAt, size int64, mainFile string) (*Upload, error) {
	zr, err := zip.NewReader(archive, size)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrCodeInvalidInput, err, "read zip archive")
	}

	u, err := m.newUpload()
	if err != nil {
		return nil, err
	}

	for _, f := range zr.File {
		if f.FileInfo().IsDir() {
			continue
		}
		if err := checkEntryName(f.Name); err != nil {
			m.discard(u)
			return nil, err
		}
		rc, err := f.Open()
		if err != nil {
			m.discard(u)
			return nil, err
		}
		err = writeEntry(u.dir, f.Name, rc)
		rc.Close()
		if err != nil {
			m.discard(u)
			return nil, err
		}
		u.Files = append(u.Files, f.Name)
	}
	sort.Strings(u.Files)

	if mainFile != "" {
		if err := checkEntryName(mainFile); err != nil {
			m.discard(u)
			return nil, err
		}
		if _, err := os.Stat(filepath.Join(u.dir, filepath.FromSlash(mainFile))); err != nil {
			m.discard(u)
			return nil, apperrors.New(apperrors.ErrCodeInvalidInput,
				"main file %q not present in archive", mainFile)
		}
		u.MainFile = mainFile
	}
	return u, nil
}

// Get returns an upload by id.
func (m *UploadManager) Get(id string) (*Upload, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.uploads[id]
	if !ok {
		return nil, apperrors.New(apperrors.ErrCodeUploadNotFound, "upload %q not found", id)
	}
	return u, nil
}

// Fetcher returns a root-confined fetcher over the upload's directory.
func (m *UploadManager) Fetcher(id string) (store.Fetcher, error) {
	u, err := m.Get(id)
	if err != nil {
		return nil, err
	}
	return store.NewDir(u.dir), nil
}

// Release deletes an upload and its files. Releasing an unknown id is not
// an error, matching the idempotent DELETE semantics of the API.
func (m *UploadManager) Release(id string) error {
	m.mu.Lock()
	u, ok := m.uploads[id]
	delete(m.uploads, id)
	m.mu.Unlock()
	if !ok {
		return nil
	}
	return os.RemoveAll(u.dir)
}

// Close releases every upload.
func (m *UploadManager) Close() error {
	m.mu.Lock()
	ids := make([]string, 0, len(m.uploads))
	for id := range m.uploads {
		ids = append(ids, id)
	}
	m.mu.Unlock()

	var firstErr error
	for _, id := range ids {
		if err := m.Release(id); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (m *UploadManager) newUpload() (*Upload, error) {
	id := uuid.NewString()
	dir := filepath.Join(m.root, id)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	u := &Upload{ID: id, CreatedAt: time.Now(), dir: dir}
	m.mu.Lock()
	m.uploads[id] = u
	m.mu.Unlock()
	return u, nil
}

func (m *UploadManager) discard(u *Upload) {
	m.mu.Lock()
	delete(m.uploads, u.ID)
	m.mu.Unlock()
	_ = os.RemoveAll(u.dir)
}

// checkEntryName rejects archive paths that could land outside the upload
// directory.
func checkEntryName(name string) error {
	if name == "" || strings.HasPrefix(name, "/") || strings.Contains(name, "\\") {
		return apperrors.New(apperrors.ErrCodeInvalidInput, "invalid file name %q", name)
	}
	for _, part := range strings.Split(name, "/") {
		if part == ".." {
			return apperrors.New(apperrors.ErrCodeInvalidInput, "invalid file name %q", name)
		}
	}
	return nil
}

func writeEntry(dir, name string, content io.Reader) error {
	target := filepath.Join(dir, filepath.FromSlash(name))
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return err
	}
	out, err := os.Create(target)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, content); err != nil {
		out.Close()
		return fmt.Errorf("write %s: %w", name, err)
	}
	return out.Close()
}
