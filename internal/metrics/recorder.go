package metrics

import (
	"go.uber.org/zap"

	"wifictl/internal/supervisor"
)

// Recorder appends every phase change to a CSV history file.
type Recorder struct {
	Path string
}

var _ supervisor.Feedback = (*Recorder)(nil)

func NewRecorder(path string) *Recorder {
	return &Recorder{Path: path}
}

func (r *Recorder) PhaseChanged(c supervisor.Change) {
	if err := AppendCSV(r.Path, []Transition{FromChange(c)}); err != nil {
		zap.S().Warnw("failed to append transition history", "path", r.Path, "error", err)
	}
}
