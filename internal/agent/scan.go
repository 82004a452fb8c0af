package agent

import (
	"context"
	"errors"
	"time"

	"wifictl/internal/supervisor"
)

// ErrScanFailed is returned by Scan when the driver reports a failed scan.
var ErrScanFailed = errors.New("wifi scan failed")

// Scan runs one scan to completion outside the supervisor, for the CLI.
func Scan(ctx context.Context, drv supervisor.Driver, aggressive bool, every time.Duration) ([]supervisor.AccessPoint, error) {
	if every <= 0 {
		every = 100 * time.Millisecond
	}
	drv.BeginScan(aggressive)
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		out := drv.PollScan()
		switch out.Status {
		case supervisor.ScanDone:
			return out.Results, nil
		case supervisor.ScanFailed:
			return nil, ErrScanFailed
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}
