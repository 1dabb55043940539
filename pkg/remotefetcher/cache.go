package remotefetcher

import (
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"
	"sync"

	"github.com/pkg/errors"
)

// FileStore keeps the body of the last fresh response on disk so it can be
// served as a fallback when the server is unreachable. A FileStore with an
// empty path is disabled: writes are no-ops and nothing is ever loaded.
type FileStore struct {
	mu   sync.Mutex
	path string
}

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

func (s *FileStore) Path() string {
	return s.path
}

func (s *FileStore) Enabled() bool {
	return s.path != ""
}

// Write replaces the stored file with data. The content is written to a
// temporary file next to the target and renamed over it, so a reader sees
// either the old or the new content. A symlinked path is resolved first and
// the link target is replaced; the mode of an existing file is kept, new
// files get 0644.
func (s *FileStore) Write(data []byte) error {
	if !s.Enabled() {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	target := s.path
	if resolved, err := filepath.EvalSymlinks(s.path); err == nil {
		target = resolved
	}
	mode := os.FileMode(0644)
	if info, err := os.Stat(target); err == nil {
		mode = info.Mode().Perm()
	}

	dir := filepath.Dir(target)
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		if err := os.MkdirAll(dir, 0700); err != nil {
			return errors.Wrapf(err, "creating directory %s", dir)
		}
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(target)+".*.tmp")
	if err != nil {
		return errors.Wrap(err, "creating temporary file")
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return errors.Wrapf(err, "writing %s", tmpName)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return errors.Wrapf(err, "closing %s", tmpName)
	}
	if err := os.Chmod(tmpName, mode); err != nil {
		os.Remove(tmpName)
		return errors.Wrapf(err, "setting permissions on %s", tmpName)
	}
	if err := os.Rename(tmpName, target); err != nil {
		os.Remove(tmpName)
		return errors.Wrapf(err, "replacing %s", target)
	}
	return nil
}

// LoadFallback returns the stored bytes. ok is false when the store is
// disabled or the file does not exist; err is set when the file exists but
// cannot be read.
func (s *FileStore) LoadFallback() (data []byte, ok bool, err error) {
	if !s.Enabled() {
		return nil, false, nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err = os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, errors.Wrapf(err, "reading %s", s.path)
	}
	return data, true, nil
}

// Hash returns the hex encoded SHA256 of data.
func Hash(data []byte) string {
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:])
}
