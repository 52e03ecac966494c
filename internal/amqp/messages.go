package amqp

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"daytracker/internal/core"
)

// DaySyncMessage asks the worker to mirror one day to Google Sheets.
// It carries only the key and version; the worker re-reads the record.
type DaySyncMessage struct {
	Date      core.DayKey `json:"date"`
	Version   int64       `json:"version"`
	Timestamp time.Time   `json:"timestamp"`
}

func NewDaySyncMessage(date core.DayKey, version int64) *DaySyncMessage {
	return &DaySyncMessage{
		Date:      date,
		Version:   version,
		Timestamp: time.Now(),
	}
}

// Validate rejects messages that can never be processed.
func (m *DaySyncMessage) Validate() error {
	if _, err := core.ParseDayKey(string(m.Date)); err != nil {
		return err
	}
	if m.Version <= 0 {
		return errors.New("version must be positive")
	}
	return nil
}

func (m *DaySyncMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func DaySyncMessageFromJSON(data []byte) (*DaySyncMessage, error) {
	var msg DaySyncMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("decode day sync message: %w", err)
	}
	return &msg, nil
}
