package supervisor

import "wifictl/internal/registry"

// SelectBest returns the registry index of the strongest scanned network
// whose name matches a registered credential, or -1 when nothing matches.
// A scanned name maps to its first registered index. Comparison is strictly
// greater-than, so the earliest scan entry wins a tie.
func SelectBest(reg *registry.Registry, results []AccessPoint) int {
	best := -1
	bestSignal := 0
	for _, ap := range results {
		idx, ok := reg.Lookup(ap.Name)
		if !ok {
			continue
		}
		if best == -1 || ap.Signal > bestSignal {
			best = idx
			bestSignal = ap.Signal
		}
	}
	return best
}
