package metrics

import (
	"encoding/csv"
	"io"
	"os"
	"path/filepath"
	"time"

	"wifictl/internal/supervisor"
)

// Transition is one recorded phase change.
type Transition struct {
	Timestamp time.Time
	From      supervisor.Phase
	To        supervisor.Phase
	Event     string
	Network   string
}

// FromChange converts a supervisor change into a history row.
func FromChange(c supervisor.Change) Transition {
	return Transition{
		Timestamp: c.At,
		From:      c.From,
		To:        c.To,
		Event:     c.Event.String(),
		Network:   c.Network,
	}
}

var header = []string{"timestamp", "from", "to", "event", "network"}

// WriteCSV writes transitions to CSV with a fixed column order.
func WriteCSV(w io.Writer, items []Transition) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(header); err != nil {
		return err
	}
	return writeRecords(writer, items)
}

// AppendCSV appends transitions to path, writing the header only when the
// file is new or empty.
func AppendCSV(path string, items []Transition) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return err
	}
	writer := csv.NewWriter(file)
	if info.Size() == 0 {
		if err := writer.Write(header); err != nil {
			return err
		}
	}
	return writeRecords(writer, items)
}

func writeRecords(writer *csv.Writer, items []Transition) error {
	for _, t := range items {
		record := []string{
			t.Timestamp.UTC().Format(time.RFC3339Nano),
			t.From.String(),
			t.To.String(),
			t.Event,
			t.Network,
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}
