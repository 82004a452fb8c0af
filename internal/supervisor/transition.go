package supervisor

import "fmt"

// Event is one observation produced by a poll.
type Event uint8

const (
	EventNone Event = iota
	// EventRetryDue opens the backoff gate with no network to retry directly.
	EventRetryDue
	// EventRetryKnown opens the backoff gate with a last known good network.
	EventRetryKnown
	EventScanFailed
	EventScanDone
	EventMatch
	EventNoMatch
	// EventAssociated is association with the internet check enabled.
	EventAssociated
	// EventAssociatedUnchecked is association with the internet check disabled.
	EventAssociatedUnchecked
	EventConnectTimeout
	EventReachable
	EventUnreachable
	EventLinkLost
	EventRefreshDue
	// EventReset is a forced reconnection.
	EventReset
)

var eventNames = [...]string{
	EventNone:                "none",
	EventRetryDue:            "retry_due",
	EventRetryKnown:          "retry_known",
	EventScanFailed:          "scan_failed",
	EventScanDone:            "scan_done",
	EventMatch:               "match",
	EventNoMatch:             "no_match",
	EventAssociated:          "associated",
	EventAssociatedUnchecked: "associated_unchecked",
	EventConnectTimeout:      "connect_timeout",
	EventReachable:           "reachable",
	EventUnreachable:         "unreachable",
	EventLinkLost:            "link_lost",
	EventRefreshDue:          "refresh_due",
	EventReset:               "reset",
}

func (e Event) String() string {
	if int(e) < len(eventNames) {
		return eventNames[e]
	}
	return fmt.Sprintf("event(%d)", uint8(e))
}

func (e Event) MarshalText() ([]byte, error) {
	return []byte(e.String()), nil
}

var transitions = map[Phase]map[Event]Phase{
	PhaseIdle: {
		EventRetryDue: PhaseScanning,
	},
	PhaseScanning: {
		EventScanFailed: PhaseIdle,
		EventScanDone:   PhaseScanComplete,
	},
	PhaseScanComplete: {
		EventMatch:   PhaseConnecting,
		EventNoMatch: PhaseIdle,
	},
	PhaseConnecting: {
		EventAssociated:          PhaseCheckingInternet,
		EventAssociatedUnchecked: PhaseConnected,
		EventConnectTimeout:      PhaseDisconnected,
	},
	PhaseCheckingInternet: {
		EventReachable:   PhaseConnected,
		EventUnreachable: PhaseInternetCheckFailed,
	},
	PhaseConnected: {
		EventLinkLost:    PhaseDisconnected,
		EventRefreshDue:  PhaseIdle,
		EventReachable:   PhaseConnected,
		EventUnreachable: PhaseInternetCheckFailed,
	},
	PhaseDisconnected: {
		EventRetryKnown: PhaseConnecting,
		EventRetryDue:   PhaseScanning,
	},
	PhaseInternetCheckFailed: {
		EventRetryDue: PhaseScanning,
	},
}

// Next returns the phase that follows p on ev. It reports false when ev is
// not a valid exit from p, in which case p is returned unchanged. EventReset
// is valid from every phase.
func Next(p Phase, ev Event) (Phase, bool) {
	if ev == EventReset {
		return PhaseIdle, true
	}
	next, ok := transitions[p][ev]
	if !ok {
		return p, false
	}
	return next, true
}
