package tokenstore

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// FileStore persists keys as a single JSON document on disk so the session
// survives process restart. Writes go through a temp file and rename, reads
// of a corrupt or missing file start from an empty map (fail-safe).
type FileStore struct {
	path string
	box  *secretBox // nil means plaintext

	mu   sync.Mutex
	data map[string]string
}

// OpenFile opens (or lazily creates) a plaintext file store at path.
func OpenFile(path string) (*FileStore, error) {
	s := &FileStore{path: path}
	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

// OpenEncryptedFile opens a file store whose on-disk form is sealed with a
// key derived from passphrase. A wrong passphrase fails at open, not at Get.
func OpenEncryptedFile(path string, passphrase string) (*FileStore, error) {
	if passphrase == "" {
		return nil, errors.New("passphrase must not be empty")
	}

	s := &FileStore{path: path, box: &secretBox{passphrase: passphrase}}
	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *FileStore) Get(key string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	value, ok := s.data[key]
	return value, ok
}

func (s *FileStore) Set(key string, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.data[key] = value
	return s.flush()
}

func (s *FileStore) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.data[key]; !ok {
		return nil
	}

	delete(s.data, key)
	return s.flush()
}

func (s *FileStore) load() error {
	s.data = make(map[string]string)

	raw, err := os.ReadFile(s.path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		return nil
	case err != nil:
		return fmt.Errorf("error while reading token file. Err: %w", err)
	}

	if s.box != nil {
		raw, err = s.box.open(raw)
		if err != nil {
			// Wrong passphrase must not silently wipe stored tokens
			return fmt.Errorf("error while unsealing token file. Err: %w", err)
		}
	}

	// Corrupted content reads as empty, the next write replaces it
	if err := json.Unmarshal(raw, &s.data); err != nil {
		s.data = make(map[string]string)
	}

	return nil
}

// flush writes the whole map atomically. Callers must hold s.mu.
func (s *FileStore) flush() error {
	raw, err := json.Marshal(s.data)
	if err != nil {
		return err
	}

	if s.box != nil {
		raw, err = s.box.seal(raw)
		if err != nil {
			return fmt.Errorf("error while sealing token file. Err: %w", err)
		}
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("error while creating token dir. Err: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o600); err != nil {
		return fmt.Errorf("error while writing token file. Err: %w", err)
	}

	return os.Rename(tmp, s.path)
}
