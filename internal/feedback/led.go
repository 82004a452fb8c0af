package feedback

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"wifictl/internal/supervisor"
)

// Pattern is a steady or blinking LED state. A zero On means off, a zero Off
// means steadily on.
type Pattern struct {
	On  time.Duration
	Off time.Duration
}

var (
	PatternOff       = Pattern{}
	PatternOn        = Pattern{On: time.Second}
	PatternSlowBlink = Pattern{On: time.Second, Off: time.Second}
	PatternFastBlink = Pattern{On: 100 * time.Millisecond, Off: 100 * time.Millisecond}
	PatternPulse     = Pattern{On: 100 * time.Millisecond, Off: 1900 * time.Millisecond}
)

// PatternFor maps a phase to its LED pattern.
func PatternFor(p supervisor.Phase) Pattern {
	switch p {
	case supervisor.PhaseScanning, supervisor.PhaseScanComplete:
		return PatternSlowBlink
	case supervisor.PhaseConnecting, supervisor.PhaseCheckingInternet:
		return PatternFastBlink
	case supervisor.PhaseConnected:
		return PatternOn
	case supervisor.PhaseInternetCheckFailed:
		return PatternPulse
	default:
		return PatternOff
	}
}

// LED drives a Linux sysfs LED. Blinking is delegated to the kernel timer
// trigger, so a phase change costs a few small file writes.
type LED struct {
	dir     string
	current Pattern
	set     bool
}

var _ supervisor.Feedback = (*LED)(nil)

// NewLED drives /<root>/<name>.
func NewLED(root, name string) *LED {
	return &LED{dir: filepath.Join(root, name)}
}

func (l *LED) PhaseChanged(c supervisor.Change) {
	if err := l.Apply(PatternFor(c.To)); err != nil {
		zap.S().Warnw("failed to set status led", "led", l.dir, "phase", c.To, "error", err)
	}
}

// Apply writes p to the LED unless it is already showing it.
func (l *LED) Apply(p Pattern) error {
	if l.set && l.current == p {
		return nil
	}
	var err error
	switch {
	case p.On == 0:
		err = l.steady("0")
	case p.Off == 0:
		err = l.steady(l.maxBrightness())
	default:
		err = l.blink(p)
	}
	if err != nil {
		l.set = false
		return err
	}
	l.current, l.set = p, true
	return nil
}

func (l *LED) steady(brightness string) error {
	if err := l.write("trigger", "none"); err != nil {
		return err
	}
	return l.write("brightness", brightness)
}

func (l *LED) blink(p Pattern) error {
	// delay_on and delay_off only exist once the timer trigger is active.
	if err := l.write("trigger", "timer"); err != nil {
		return err
	}
	if err := l.write("delay_on", strconv.FormatInt(p.On.Milliseconds(), 10)); err != nil {
		return err
	}
	return l.write("delay_off", strconv.FormatInt(p.Off.Milliseconds(), 10))
}

func (l *LED) maxBrightness() string {
	data, err := os.ReadFile(filepath.Join(l.dir, "max_brightness"))
	if err != nil {
		return "1"
	}
	v := strings.TrimSpace(string(data))
	if v == "" || v == "0" {
		return "1"
	}
	return v
}

func (l *LED) write(name, value string) error {
	return os.WriteFile(filepath.Join(l.dir, name), []byte(value), 0o644)
}
