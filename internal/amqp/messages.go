package amqp

import (
	"encoding/json"
	"fmt"
	"time"
)

// SheetSavedMessage announces a successful write-back of one worksheet.
type SheetSavedMessage struct {
	SaveID       int64     `json:"save_id,omitempty"`
	Sheet        string    `json:"sheet"`
	Range        string    `json:"range"`
	Rows         int       `json:"rows"`
	Cols         int       `json:"cols"`
	ClearedRange string    `json:"cleared_range,omitempty"`
	SessionID    string    `json:"session_id"`
	Timestamp    time.Time `json:"timestamp"`
}

func NewSheetSavedMessage(sheet, rng string, rows, cols int) *SheetSavedMessage {
	return &SheetSavedMessage{
		Sheet:     sheet,
		Range:     rng,
		Rows:      rows,
		Cols:      cols,
		Timestamp: time.Now().UTC(),
	}
}

func (m *SheetSavedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// SheetSavedMessageFromJSON decodes and checks a message body.
func SheetSavedMessageFromJSON(data []byte) (*SheetSavedMessage, error) {
	var msg SheetSavedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.Sheet == "" || msg.Range == "" {
		return nil, fmt.Errorf("sheet saved message missing sheet or range")
	}
	return &msg, nil
}
