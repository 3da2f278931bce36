package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/renameio/v2"
)

type Persister interface {
	Load() (Session, bool, error)
	Save(Session) error
	Remove() error
}

// FilePersister keeps the session in a single 0600 JSON file, replaced
// atomically on every save.
type FilePersister struct {
	path string
}

func NewFilePersister(path string) *FilePersister {
	return &FilePersister{path: path}
}

func (p *FilePersister) Path() string {
	return p.path
}

func (p *FilePersister) Load() (Session, bool, error) {
	data, err := os.ReadFile(p.path)
	if errors.Is(err, os.ErrNotExist) {
		return Session{}, false, nil
	}
	if err != nil {
		return Session{}, false, err
	}

	var s Session
	if err := json.Unmarshal(data, &s); err != nil {
		return Session{}, false, fmt.Errorf("decode %s: %w", p.path, err)
	}
	return s, true, nil
}

func (p *FilePersister) Save(s Session) error {
	if err := os.MkdirAll(filepath.Dir(p.path), 0o700); err != nil {
		return err
	}

	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}

	pending, err := renameio.NewPendingFile(p.path, renameio.WithPermissions(0o600))
	if err != nil {
		return fmt.Errorf("create pending session file: %w", err)
	}
	defer func() { _ = pending.Cleanup() }()

	if _, err := pending.Write(data); err != nil {
		return fmt.Errorf("write session file: %w", err)
	}
	if err := pending.CloseAtomicallyReplace(); err != nil {
		return fmt.Errorf("replace session file: %w", err)
	}
	return nil
}

func (p *FilePersister) Remove() error {
	err := os.Remove(p.path)
	if err == nil || errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}
