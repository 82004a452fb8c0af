package supervisor

import (
	"testing"

	"wifictl/internal/registry"
)

func newRegistry(t *testing.T, names ...string) *registry.Registry {
	t.Helper()
	reg := registry.New(0)
	for _, n := range names {
		if _, err := reg.Register(n, "pw-"+n); err != nil {
			t.Fatalf("register %s: %v", n, err)
		}
	}
	return reg
}

func TestSelectBest_StrongestMatch(t *testing.T) {
	t.Parallel()

	reg := newRegistry(t, "A", "B")
	got := SelectBest(reg, []AccessPoint{{"A", -70}, {"B", -40}, {"A", -50}})
	if got != 1 {
		t.Fatalf("selected=%d", got)
	}
}

func TestSelectBest_IgnoresUnregistered(t *testing.T) {
	t.Parallel()

	reg := newRegistry(t, "A")
	got := SelectBest(reg, []AccessPoint{{"Neighbour", -20}, {"A", -80}})
	if got != 0 {
		t.Fatalf("selected=%d", got)
	}
}

func TestSelectBest_NoMatch(t *testing.T) {
	t.Parallel()

	reg := newRegistry(t, "A", "B")
	if got := SelectBest(reg, []AccessPoint{{"C", -30}}); got != -1 {
		t.Fatalf("selected=%d", got)
	}
	if got := SelectBest(reg, nil); got != -1 {
		t.Fatalf("selected=%d", got)
	}
}

func TestSelectBest_TieKeepsFirstScanned(t *testing.T) {
	t.Parallel()

	reg := newRegistry(t, "A", "B")
	if got := SelectBest(reg, []AccessPoint{{"B", -60}, {"A", -60}}); got != 1 {
		t.Fatalf("selected=%d", got)
	}
	if got := SelectBest(reg, []AccessPoint{{"A", -60}, {"B", -60}}); got != 0 {
		t.Fatalf("selected=%d", got)
	}
}

func TestSelectBest_DuplicateNameUsesFirstIndex(t *testing.T) {
	t.Parallel()

	reg := newRegistry(t, "X", "A", "A")
	if got := SelectBest(reg, []AccessPoint{{"A", -45}}); got != 1 {
		t.Fatalf("selected=%d", got)
	}
}

func TestSelectBest_VeryWeakSignalStillWins(t *testing.T) {
	t.Parallel()

	reg := newRegistry(t, "A")
	if got := SelectBest(reg, []AccessPoint{{"A", -1200}}); got != 0 {
		t.Fatalf("selected=%d", got)
	}
}
