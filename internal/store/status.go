package store

import (
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"wifictl/internal/supervisor"
)

// Status is the last known supervisor state, persisted for `wifictl status`
// and other processes on the device.
type Status struct {
	UpdatedAt     time.Time        `yaml:"updated_at"`
	Interface     string           `yaml:"interface,omitempty"`
	Phase         supervisor.Phase `yaml:"phase"`
	Since         time.Time        `yaml:"since"`
	LastEvent     string           `yaml:"last_event,omitempty"`
	Network       string           `yaml:"network,omitempty"`
	LastConnected time.Time        `yaml:"last_connected,omitempty"`
	Transitions   int              `yaml:"transitions"`
}

// LoadStatus loads the status from disk. If the file is missing, returns an
// Idle status.
func LoadStatus(path string) (*Status, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &Status{Phase: supervisor.PhaseIdle}, nil
		}
		return nil, err
	}

	var st Status
	if err := yaml.Unmarshal(data, &st); err != nil {
		return nil, err
	}

	return &st, nil
}

// SaveStatus writes the status to disk, replacing the file atomically so
// readers never see a partial document.
func SaveStatus(path string, st *Status) error {
	if st == nil {
		return nil
	}
	st.UpdatedAt = time.Now().UTC()
	data, err := yaml.Marshal(st)
	if err != nil {
		return err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, ".status-*.yaml")
	if err != nil {
		return err
	}
	defer func() {
		_ = os.Remove(tmp.Name())
	}()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

// StatusWriter rewrites the status file on every phase change.
type StatusWriter struct {
	path string

	mu sync.Mutex
	st Status
}

var _ supervisor.Feedback = (*StatusWriter)(nil)

func NewStatusWriter(path, iface string) *StatusWriter {
	return &StatusWriter{path: path, st: Status{Interface: iface, Phase: supervisor.PhaseIdle}}
}

func (w *StatusWriter) PhaseChanged(c supervisor.Change) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.st.Phase = c.To
	w.st.Since = c.At.UTC()
	w.st.LastEvent = c.Event.String()
	w.st.Network = c.Network
	w.st.Transitions++
	if c.To == supervisor.PhaseConnected {
		w.st.LastConnected = c.At.UTC()
	}
	st := w.st
	if err := SaveStatus(w.path, &st); err != nil {
		zap.S().Warnw("failed to write status file", "path", w.path, "error", err)
	}
}

// Status returns a copy of the last written status.
func (w *StatusWriter) Status() Status {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.st
}
