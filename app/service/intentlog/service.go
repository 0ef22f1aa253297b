package intentlog

import (
	"bufio"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"recruitbot/app/config"

	"github.com/google/uuid"
	"github.com/samber/do"
	"github.com/samber/oops"
)

// Service is a write-ahead log of pending calendar holds, persisted as JSON
// lines. Only unfinished intents are kept in the file.
type Service struct {
	path string
	mu   sync.Mutex
	now  func() time.Time
}

func New(di *do.Injector) (*Service, error) {
	cfg := do.MustInvoke[*config.Config](di)
	return NewService(cfg.Intents.File)
}

func NewService(path string) (*Service, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, oops.In("intentlog").With("path", path).Wrapf(err, "failed to create directory")
	}

	file, err := os.OpenFile(path, os.O_RDONLY|os.O_CREATE, 0o644)
	if err != nil {
		return nil, oops.In("intentlog").With("path", path).Wrapf(err, "failed to create intent file")
	}
	_ = file.Close()

	return &Service{
		path: path,
		now:  time.Now,
	}, nil
}

// Begin records that holds are about to be placed for sessionID on the given
// open slots.
func (s *Service) Begin(sessionID string, candidates []Hold) (string, error) {
	intent := Intent{
		ID:         uuid.NewString(),
		SessionID:  sessionID,
		Kind:       KindHold,
		Candidates: candidates,
		CreatedAt:  s.now(),
	}

	err := s.update(func(intents []Intent) ([]Intent, error) {
		return append(intents, intent), nil
	})
	if err != nil {
		return "", err
	}

	slog.Debug("Intent started", "intent_id", intent.ID, "session_id", sessionID, "candidates", len(candidates))

	return intent.ID, nil
}

// Get returns the intent with the given id, or false once it was completed.
func (s *Service) Get(id string) (Intent, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	intents, err := s.load()
	if err != nil {
		return Intent{}, false, err
	}

	for _, intent := range intents {
		if intent.ID == id {
			return intent, true, nil
		}
	}

	return Intent{}, false, nil
}

// RecordHolds replaces the hold list of an intent with the entries that
// actually exist in the calendar.
func (s *Service) RecordHolds(id string, holds []Hold) error {
	return s.modify(id, func(intent *Intent) error {
		intent.Holds = holds
		return nil
	})
}

// Choose pins the selected slot before any hold is resolved. A different
// choice for an intent that already has one is rejected; 0 clears the pin.
func (s *Service) Choose(id string, choice int) error {
	return s.modify(id, func(intent *Intent) error {
		if choice != 0 && intent.Choice != 0 && intent.Choice != choice {
			return oops.In("intentlog").
				With("intent_id", id, "choice", intent.Choice, "requested", choice).
				Errorf("intent already resolving another slot")
		}

		intent.Choice = choice
		return nil
	})
}

// Complete drops an intent. Completing an unknown id is a no-op so retries
// stay harmless.
func (s *Service) Complete(id string) error {
	if id == "" {
		return nil
	}

	return s.update(func(intents []Intent) ([]Intent, error) {
		result := intents[:0]
		for _, intent := range intents {
			if intent.ID != id {
				result = append(result, intent)
			}
		}

		return result, nil
	})
}

// Pending returns intents created more than olderThan ago.
func (s *Service) Pending(olderThan time.Duration) ([]Intent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	intents, err := s.load()
	if err != nil {
		return nil, err
	}

	cutoff := s.now().Add(-olderThan)

	var result []Intent
	for _, intent := range intents {
		if !intent.CreatedAt.After(cutoff) {
			result = append(result, intent)
		}
	}

	return result, nil
}

func (s *Service) modify(id string, fn func(intent *Intent) error) error {
	return s.update(func(intents []Intent) ([]Intent, error) {
		for i := range intents {
			if intents[i].ID == id {
				if err := fn(&intents[i]); err != nil {
					return nil, err
				}
				return intents, nil
			}
		}

		return nil, oops.In("intentlog").With("intent_id", id).Errorf("intent not found")
	})
}

func (s *Service) update(fn func([]Intent) ([]Intent, error)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	intents, err := s.load()
	if err != nil {
		return err
	}

	intents, err = fn(intents)
	if err != nil {
		return err
	}

	return s.save(intents)
}

func (s *Service) load() ([]Intent, error) {
	file, err := os.OpenFile(s.path, os.O_RDONLY|os.O_CREATE, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open intent file: %w", err)
	}
	defer file.Close()

	var intents []Intent

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		var intent Intent
		if err = json.Unmarshal([]byte(line), &intent); err != nil {
			return nil, fmt.Errorf("failed to parse JSON line: %w", err)
		}

		intents = append(intents, intent)
	}

	if err = scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading intent file: %w", err)
	}

	return intents, nil
}

// save writes to a temp file and renames it over the log so a crash never
// leaves a truncated file behind.
func (s *Service) save(intents []Intent) error {
	tmp := s.path + ".tmp"

	file, err := os.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("failed to create/open intent file: %w", err)
	}

	writer := bufio.NewWriter(file)

	for _, intent := range intents {
		data, err := json.Marshal(intent)
		if err != nil {
			_ = file.Close()
			return fmt.Errorf("failed to marshal intent: %w", err)
		}
		if _, err = writer.WriteString(string(data) + "\n"); err != nil {
			_ = file.Close()
			return fmt.Errorf("failed to write intent: %w", err)
		}
	}

	if err = writer.Flush(); err != nil {
		_ = file.Close()
		return fmt.Errorf("failed to flush writer: %w", err)
	}

	if err = file.Close(); err != nil {
		return fmt.Errorf("failed to close intent file: %w", err)
	}

	if err = os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("failed to replace intent file: %w", err)
	}

	return nil
}
