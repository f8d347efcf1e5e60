package state

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/ducminhle1904/trade-risk-gate/pkg/types"
)

const recordVersion = "1.0.0"

// StatusRecord is the persisted form of the guard's trading status: the
// variant tag plus the timestamp and numeric payload of the active variant.
type StatusRecord struct {
	Kind        string    `json:"kind"`
	Since       time.Time `json:"since,omitempty"`
	DrawdownPct float64   `json:"drawdown_pct,omitempty"`
	LossCount   int       `json:"loss_count,omitempty"`
}

// GuardRecord is the single durable record kept per account. Unknown fields
// in a stored record are ignored on load, so the format can grow.
type GuardRecord struct {
	Version           string               `json:"version"`
	AccountID         string               `json:"account_id"`
	Status            StatusRecord         `json:"status"`
	ConsecutiveLosses int                  `json:"consecutive_losses"`
	Peak              float64              `json:"peak"`
	PeakAt            time.Time            `json:"peak_at"`
	Equity            []types.EquitySample `json:"equity"`
	UpdatedAt         time.Time            `json:"updated_at"`
}

// Store persists guard records durably. Implementations must make Save
// atomic: after a crash, Load returns either the previous record or the new
// one, never a torn write.
type Store interface {
	// Load returns the stored record, or (nil, nil) when none exists yet.
	Load() (*GuardRecord, error)

	// Save durably replaces the stored record.
	Save(record *GuardRecord) error
}

// FileStore keeps one JSON record per account under a state directory,
// written via a temp file and an atomic rename.
type FileStore struct {
	dir       string
	accountID string
}

// NewFileStore creates a file-backed store, creating the directory if needed.
func NewFileStore(dir, accountID string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create state directory: %w", err)
	}
	return &FileStore{dir: dir, accountID: accountID}, nil
}

func (fs *FileStore) path() string {
	return filepath.Join(fs.dir, fmt.Sprintf("%s_guard.json", fs.accountID))
}

// Load reads the stored record. A missing file is not an error; the guard
// starts fresh. An unreadable file is reported so the caller can log it
// before starting fresh.
func (fs *FileStore) Load() (*GuardRecord, error) {
	data, err := os.ReadFile(fs.path())
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read state file: %w", err)
	}

	var record GuardRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, fmt.Errorf("failed to parse state file: %w", err)
	}
	if record.AccountID != "" && record.AccountID != fs.accountID {
		return nil, fmt.Errorf("state account mismatch: expected %s, got %s", fs.accountID, record.AccountID)
	}

	return &record, nil
}

// Save writes the record to a temp file and renames it into place, so a
// crash mid-write leaves the previous record intact.
func (fs *FileStore) Save(record *GuardRecord) error {
	record.Version = recordVersion
	record.AccountID = fs.accountID
	record.UpdatedAt = time.Now()

	data, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal state: %w", err)
	}

	stateFile := fs.path()
	tempFile := stateFile + ".tmp"
	if err := os.WriteFile(tempFile, data, 0644); err != nil {
		return fmt.Errorf("failed to write temp state file: %w", err)
	}
	if err := os.Rename(tempFile, stateFile); err != nil {
		return fmt.Errorf("failed to move state file: %w", err)
	}

	return nil
}
