package metrics

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"time"

	"wifictl/internal/supervisor"
)

// ReadCSV loads transitions from a CSV file.
func ReadCSV(path string) ([]Transition, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	return readCSV(file)
}

func readCSV(r io.Reader) ([]Transition, error) {
	reader := csv.NewReader(r)
	records, err := reader.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, nil
	}

	start := 0
	if len(records[0]) > 0 && records[0][0] == "timestamp" {
		start = 1
	}

	items := make([]Transition, 0, len(records)-start)
	for i := start; i < len(records); i++ {
		rec := records[i]
		if len(rec) < 5 {
			return nil, fmt.Errorf("invalid record at line %d", i+1)
		}
		ts, err := time.Parse(time.RFC3339Nano, rec[0])
		if err != nil {
			return nil, fmt.Errorf("invalid timestamp at line %d: %w", i+1, err)
		}
		from, err := supervisor.ParsePhase(rec[1])
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", i+1, err)
		}
		to, err := supervisor.ParsePhase(rec[2])
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", i+1, err)
		}
		items = append(items, Transition{
			Timestamp: ts,
			From:      from,
			To:        to,
			Event:     rec[3],
			Network:   rec[4],
		})
	}

	return items, nil
}
