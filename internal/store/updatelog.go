package store

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
)

// maxUpdateRecords bounds the update log so it never grows past the most
// recent runs.
const maxUpdateRecords = 100

// UpdateRecord is one pipeline run's entry in the update log.
type UpdateRecord struct {
	RunID           string   `json:"run_id"`
	Timestamp       string   `json:"timestamp"`
	TotalDiscovered int      `json:"total_discovered"`
	TotalExisting   int      `json:"total_existing"`
	NewCount        int      `json:"new_count"`
	Failed          []string `json:"failed"`
	Forced          bool     `json:"forced"`
}

// NewUpdateRecord stamps a record with a fresh run ID and the current
// UTC time.
func NewUpdateRecord(totalDiscovered, totalExisting, newCount int, failed []string, forced bool) UpdateRecord {
	if failed == nil {
		failed = []string{}
	}
	return UpdateRecord{
		RunID:           uuid.NewString(),
		Timestamp:       time.Now().UTC().Format(time.RFC3339),
		TotalDiscovered: totalDiscovered,
		TotalExisting:   totalExisting,
		NewCount:        newCount,
		Failed:          failed,
		Forced:          forced,
	}
}

// UpdateLog appends run records to a JSON file, keeping only the most
// recent maxUpdateRecords entries.
type UpdateLog struct {
	Path string
}

// Append adds a record to the log. A missing or corrupt log file is
// replaced, not fatal.
func (l *UpdateLog) Append(record UpdateRecord) error {
	var records []UpdateRecord
	if data, err := os.ReadFile(l.Path); err == nil {
		if err := json.Unmarshal(data, &records); err != nil {
			records = nil
		}
	}

	records = append(records, record)
	if len(records) > maxUpdateRecords {
		records = records[len(records)-maxUpdateRecords:]
	}

	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding update log: %w", err)
	}
	if err := writeFile(l.Path, data); err != nil {
		return fmt.Errorf("writing update log: %w", err)
	}
	return nil
}

// Records returns the log contents, newest last. Missing files yield an
// empty slice.
func (l *UpdateLog) Records() ([]UpdateRecord, error) {
	data, err := os.ReadFile(l.Path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading update log: %w", err)
	}
	var records []UpdateRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("decoding update log: %w", err)
	}
	return records, nil
}
