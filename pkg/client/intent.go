package client

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// intentMaxAge bounds how long a saved intent survives before a fresh
// setup is required.
const intentMaxAge = 24 * time.Hour

// Intent is the locally persisted record of an interview the user
// started or meant to start. It lets a restarted client resume or
// replay setup without the server.
type Intent struct {
	SessionID        string    `json:"sessionId"`
	JobPosition      string    `json:"jobPosition"`
	InterviewType    string    `json:"interviewType"`
	SkillLevel       string    `json:"skillLevel"`
	Timestamp        time.Time `json:"timestamp"`
	IsOfflineSession bool      `json:"isOfflineSession"`
}

// IntentStore persists the current Intent as a JSON file. Writes go
// through a temp file rename so a crash never leaves a torn record.
type IntentStore struct {
	path string
	mu   sync.Mutex
}

func NewIntentStore(path string) *IntentStore {
	return &IntentStore{path: path}
}

// DefaultIntentStore places the file under the user cache directory.
func DefaultIntentStore() (*IntentStore, error) {
	dir, err := os.UserCacheDir()
	if err != nil {
		return nil, err
	}
	dir = filepath.Join(dir, "deepinterview")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return NewIntentStore(filepath.Join(dir, "intent.json")), nil
}

func (s *IntentStore) Save(in Intent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if in.Timestamp.IsZero() {
		in.Timestamp = time.Now().UTC()
	}
	raw, err := json.Marshal(in)
	if err != nil {
		return err
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, s.path)
}

// Load returns the saved intent, or (nil, nil) when none exists or the
// saved one has expired.
func (s *IntentStore) Load() (*Intent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	raw, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}

	var in Intent
	if err := json.Unmarshal(raw, &in); err != nil {
		// A corrupt file is treated as absent.
		_ = os.Remove(s.path)
		return nil, nil
	}
	if time.Since(in.Timestamp) > intentMaxAge {
		_ = os.Remove(s.path)
		return nil, nil
	}
	return &in, nil
}

func (s *IntentStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}
