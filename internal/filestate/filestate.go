// Package filestate is a JSON-file implementation of the session store, used
// by the batch CLI where a database is overkill. One file holds every session
// so an interrupted run can resume where it left off.
package filestate

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"

	"github.com/MikeSquared-Agency/prospect/internal/session"
)

const DefaultPath = "~/.prospect/sessions.json"

type Store struct {
	mu   sync.Mutex
	path string
}

func New(path string) *Store {
	if path == "" {
		path = DefaultPath
	}
	return &Store{path: expandHome(path)}
}

func (s *Store) Save(ctx context.Context, sess *session.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	all, err := s.readAll()
	if err != nil {
		return err
	}
	all[sess.ID.String()] = sess
	return s.writeAll(all)
}

func (s *Store) Load(ctx context.Context, id uuid.UUID) (*session.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	all, err := s.readAll()
	if err != nil {
		return nil, err
	}
	sess, ok := all[id.String()]
	if !ok {
		return nil, session.ErrNotFound
	}
	return sess, nil
}

func (s *Store) Delete(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	all, err := s.readAll()
	if err != nil {
		return err
	}
	if _, ok := all[id.String()]; !ok {
		return session.ErrNotFound
	}
	delete(all, id.String())
	return s.writeAll(all)
}

// List returns every stored session, in no particular order.
func (s *Store) List() ([]*session.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	all, err := s.readAll()
	if err != nil {
		return nil, err
	}
	out := make([]*session.Session, 0, len(all))
	for _, sess := range all {
		out = append(out, sess)
	}
	return out, nil
}

func (s *Store) readAll() (map[string]*session.Session, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return make(map[string]*session.Session), nil
		}
		return nil, fmt.Errorf("read state: %w", err)
	}

	var all map[string]*session.Session
	if err := json.Unmarshal(data, &all); err != nil {
		return nil, fmt.Errorf("parse state: %w", err)
	}
	if all == nil {
		all = make(map[string]*session.Session)
	}
	return all, nil
}

func (s *Store) writeAll(all map[string]*session.Session) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("mkdir: %w", err)
	}

	data, err := json.MarshalIndent(all, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal state: %w", err)
	}

	// Write-then-rename so a crash mid-write never corrupts the state file.
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write state: %w", err)
	}
	return os.Rename(tmp, s.path)
}

func expandHome(path string) string {
	if len(path) > 1 && path[0] == '~' && path[1] == '/' {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[2:])
	}
	return path
}
