package supervisor

import "fmt"

// Phase is the supervisor's position in the connection lifecycle.
type Phase uint8

const (
	PhaseIdle Phase = iota
	PhaseScanning
	PhaseScanComplete
	PhaseConnecting
	PhaseConnected
	PhaseDisconnected
	PhaseCheckingInternet
	PhaseInternetCheckFailed
)

var phaseNames = [...]string{
	PhaseIdle:                "idle",
	PhaseScanning:            "scanning",
	PhaseScanComplete:        "scan_complete",
	PhaseConnecting:          "connecting",
	PhaseConnected:           "connected",
	PhaseDisconnected:        "disconnected",
	PhaseCheckingInternet:    "checking_internet",
	PhaseInternetCheckFailed: "internet_check_failed",
}

// Phases lists every phase in declaration order.
func Phases() []Phase {
	out := make([]Phase, 0, len(phaseNames))
	for i := range phaseNames {
		out = append(out, Phase(i))
	}
	return out
}

func (p Phase) String() string {
	if int(p) < len(phaseNames) {
		return phaseNames[p]
	}
	return fmt.Sprintf("phase(%d)", uint8(p))
}

// ParsePhase is the inverse of Phase.String.
func ParsePhase(s string) (Phase, error) {
	for i, name := range phaseNames {
		if name == s {
			return Phase(i), nil
		}
	}
	return 0, fmt.Errorf("invalid phase: %s", s)
}

func (p Phase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

func (p *Phase) UnmarshalText(b []byte) error {
	parsed, err := ParsePhase(string(b))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}
