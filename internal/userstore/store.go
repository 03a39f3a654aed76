// Package userstore manages the local credential store: one flat file,
// one "username:bcrypt-hash" record per line, owner-only permissions.
//
// The store is the fallback behind directory authentication and the only
// authentication source when the directory is disabled. Records are written
// through a temporary file and an atomic rename so concurrent readers never
// observe a torn file.
package userstore

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"golang.org/x/crypto/bcrypt"
)

// ErrUserNotFound is returned when a username has no record in the store.
var ErrUserNotFound = errors.New("user not found")

// StorageError reports a filesystem failure in the credential store.
type StorageError struct {
	Op   string
	Path string
	Err  error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("credential store %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// Store is a flat-file credential store.
type Store struct {
	path string
	cost int

	// mu serializes read-modify-write cycles against concurrent writers.
	mu sync.Mutex
}

// New creates a Store over the given password file.
// A cost outside bcrypt's valid range selects bcrypt.DefaultCost.
func New(path string, cost int) *Store {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &Store{path: path, cost: cost}
}

// Path returns the password file path.
func (s *Store) Path() string { return s.path }

// List returns the usernames in the store, in file order, duplicates and
// malformed lines (no delimiter) skipped. A missing file is an empty store.
func (s *Store) List() ([]string, error) {
	records, err := s.read()
	if err != nil {
		return nil, err
	}

	users := make([]string, 0, len(records))
	seen := make(map[string]bool, len(records))
	for _, rec := range records {
		if !seen[rec.username] {
			seen[rec.username] = true
			users = append(users, rec.username)
		}
	}
	return users, nil
}

// Find returns the stored password hash for username.
func (s *Store) Find(username string) (string, error) {
	records, err := s.read()
	if err != nil {
		return "", err
	}

	// Last write wins: scan from the end.
	for i := len(records) - 1; i >= 0; i-- {
		if records[i].username == username {
			return records[i].hash, nil
		}
	}
	return "", ErrUserNotFound
}

// Verify checks password against the stored hash for username.
// Returns ErrUserNotFound for unknown users and bcrypt's mismatch error
// for a wrong password.
func (s *Store) Verify(username, password string) error {
	hash, err := s.Find(username)
	if err != nil {
		return err
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
}

// Upsert adds or replaces the record for username with a fresh hash of
// password. The file is rewritten atomically and restricted to mode 0600.
func (s *Store) Upsert(username, password string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.read()
	if err != nil {
		return err
	}

	replaced := false
	for i, rec := range records {
		if rec.username == username {
			records[i].hash = string(hash)
			replaced = true
		}
	}
	if !replaced {
		records = append(records, record{username: username, hash: string(hash)})
	}

	return s.write(records)
}

// Remove deletes the record for username. Removing an absent user is a
// successful no-op.
func (s *Store) Remove(username string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.read()
	if err != nil {
		return err
	}

	kept := records[:0]
	found := false
	for _, rec := range records {
		if rec.username == username {
			found = true
			continue
		}
		kept = append(kept, rec)
	}
	if !found {
		return nil
	}
	return s.write(kept)
}

type record struct {
	username string
	hash     string
}

// read parses the password file. A missing file yields no records.
func (s *Store) read() ([]record, error) {
	file, err := os.Open(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, &StorageError{Op: "open", Path: s.path, Err: err}
	}
	defer func() { _ = file.Close() }()

	var records []record
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		username, hash, ok := strings.Cut(line, ":")
		if !ok {
			continue // malformed line
		}
		records = append(records, record{
			username: strings.TrimSpace(username),
			hash:     strings.TrimSpace(hash),
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, &StorageError{Op: "read", Path: s.path, Err: err}
	}
	return records, nil
}

// write rewrites the password file via a temp file and an atomic rename.
// Caller holds the mutex.
func (s *Store) write(records []record) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return &StorageError{Op: "mkdir", Path: dir, Err: err}
	}

	tmp, err := os.CreateTemp(dir, ".password-*")
	if err != nil {
		return &StorageError{Op: "create", Path: s.path, Err: err}
	}
	tmpPath := tmp.Name()

	cleanup := func() {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
	}

	if err := tmp.Chmod(0o600); err != nil {
		cleanup()
		return &StorageError{Op: "chmod", Path: tmpPath, Err: err}
	}

	w := bufio.NewWriter(tmp)
	for _, rec := range records {
		if _, err := fmt.Fprintf(w, "%s:%s\n", rec.username, rec.hash); err != nil {
			cleanup()
			return &StorageError{Op: "write", Path: tmpPath, Err: err}
		}
	}
	if err := w.Flush(); err != nil {
		cleanup()
		return &StorageError{Op: "write", Path: tmpPath, Err: err}
	}
	if err := tmp.Sync(); err != nil {
		cleanup()
		return &StorageError{Op: "sync", Path: tmpPath, Err: err}
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return &StorageError{Op: "close", Path: tmpPath, Err: err}
	}

	if err := os.Rename(tmpPath, s.path); err != nil {
		_ = os.Remove(tmpPath)
		return &StorageError{Op: "rename", Path: s.path, Err: err}
	}
	return nil
}
