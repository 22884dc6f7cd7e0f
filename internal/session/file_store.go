package session

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	pkgerrors "github.com/adoptipet/adoptipet-client/pkg/errors"
)

// FileStore keeps the session as a JSON file, the CLI counterpart of the web
// frontend's localStorage entry.
type FileStore struct {
	path string
	ttl  time.Duration
}

func NewFileStore(path string, ttl time.Duration) (*FileStore, error) {
	expanded, err := expandHome(path)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(expanded) == "" {
		return nil, fmt.Errorf("session file path is required")
	}
	return &FileStore{path: expanded, ttl: ttl}, nil
}

func (f *FileStore) Load(ctx context.Context) (*Session, error) {
	raw, err := os.ReadFile(f.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNoSession
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lecture de la session")
	}

	var s Session
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "session corrompue")
	}
	if strings.TrimSpace(s.Token) == "" {
		return nil, ErrNoSession
	}
	if f.ttl > 0 && !s.SavedAt.IsZero() && time.Since(s.SavedAt) > f.ttl {
		return nil, ErrNoSession
	}
	return &s, nil
}

func (f *FileStore) Save(ctx context.Context, s Session) error {
	if strings.TrimSpace(s.Token) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "un jeton est requis")
	}
	if s.SavedAt.IsZero() {
		s.SavedAt = time.Now().UTC()
	}

	raw, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encodage de la session")
	}

	if err := os.MkdirAll(filepath.Dir(f.path), 0o700); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "creation du dossier de session")
	}
	if err := os.WriteFile(f.path, raw, 0o600); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "ecriture de la session")
	}
	return nil
}

func (f *FileStore) Clear(ctx context.Context) error {
	if err := os.Remove(f.path); err != nil && !os.IsNotExist(err) {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "suppression de la session")
	}
	return nil
}

func expandHome(path string) (string, error) {
	if !strings.HasPrefix(path, "~") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolving home directory: %w", err)
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~")), nil
}
