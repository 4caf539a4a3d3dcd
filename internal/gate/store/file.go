package store

import (
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fieldserve/pingate/internal/domain"
)

const (
	sessionFileName = "pin_access_session.json"
	lockoutFileName = "pin_lockout_info.json"
)

// FileStore keeps the session and lockout records as JSON files in a
// directory. It is the production Store for the terminal gate.
type FileStore struct {
	dir    string
	logger *slog.Logger
	now    func() time.Time
}

func NewFileStore(dir string, logger *slog.Logger) *FileStore {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &FileStore{dir: dir, logger: logger, now: time.Now}
}

func (s *FileStore) ReadSession() *domain.StoredSession {
	var session domain.StoredSession
	if !s.readRecord(sessionFileName, &session) {
		return nil
	}
	if !session.Valid(s.now()) {
		s.remove(sessionFileName)
		return nil
	}
	return &session
}

func (s *FileStore) WriteSession(session domain.StoredSession) bool {
	return s.writeRecord(sessionFileName, session)
}

func (s *FileStore) ReadLockout() *domain.LockoutInfo {
	var info domain.LockoutInfo
	if !s.readRecord(lockoutFileName, &info) {
		return nil
	}
	if !info.Active(s.now()) {
		s.remove(lockoutFileName)
		return nil
	}
	return &info
}

func (s *FileStore) WriteLockout(info domain.LockoutInfo) {
	s.writeRecord(lockoutFileName, info)
}

func (s *FileStore) ClearLockout() {
	s.remove(lockoutFileName)
}

// ClearSession removes the persisted session pass. Only the reset tool calls
// this, the gate itself never discards a valid pass.
func (s *FileStore) ClearSession() {
	s.remove(sessionFileName)
}

func (s *FileStore) readRecord(name string, out any) bool {
	path := filepath.Join(s.dir, name)
	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			s.logger.Warn("gate store read failed", "file", name, "error", err)
		}
		return false
	}
	if err := json.Unmarshal(data, out); err != nil {
		s.logger.Warn("gate store record malformed, removing", "file", name, "error", err)
		s.remove(name)
		return false
	}
	return true
}

func (s *FileStore) writeRecord(name string, record any) bool {
	data, err := json.Marshal(record)
	if err != nil {
		s.logger.Warn("gate store encode failed", "file", name, "error", err)
		return false
	}
	if err := os.MkdirAll(s.dir, 0o700); err != nil {
		s.logger.Warn("gate store mkdir failed", "dir", s.dir, "error", err)
		return false
	}
	if err := os.WriteFile(filepath.Join(s.dir, name), data, 0o600); err != nil {
		s.logger.Warn("gate store write failed", "file", name, "error", err)
		return false
	}
	return true
}

func (s *FileStore) remove(name string) {
	if err := os.Remove(filepath.Join(s.dir, name)); err != nil && !os.IsNotExist(err) {
		s.logger.Warn("gate store delete failed", "file", name, "error", err)
	}
}
