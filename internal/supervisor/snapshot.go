package supervisor

import "time"

// Snapshot is a copy of the supervisor's observable state. It never queries
// the driver, so it is cheap to take after every poll.
type Snapshot struct {
	Phase                 Phase     `json:"phase"`
	CurrentNetwork        string    `json:"current_network,omitempty"`
	TargetNetwork         string    `json:"target_network,omitempty"`
	ScanInFlight          bool      `json:"scan_in_flight"`
	LastConnectAttempt    time.Time `json:"last_connect_attempt"`
	LastSuccessfulConnect time.Time `json:"last_successful_connect"`
	ConnectStartedAt      time.Time `json:"connect_started_at"`
	LastInternetCheck     time.Time `json:"last_internet_check"`
	InternetCheckEnabled  bool      `json:"internet_check_enabled"`
}

func (s *Supervisor) Snapshot() Snapshot {
	return Snapshot{
		Phase:                 s.phase,
		CurrentNetwork:        s.nameOf(s.current),
		TargetNetwork:         s.nameOf(s.target),
		ScanInFlight:          s.scanInFlight,
		LastConnectAttempt:    s.lastConnectAttempt,
		LastSuccessfulConnect: s.lastSuccessfulConnect,
		ConnectStartedAt:      s.connectStartedAt,
		LastInternetCheck:     s.lastInternetCheck,
		InternetCheckEnabled:  s.checkEnabled,
	}
}
