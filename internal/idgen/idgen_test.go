package idgen

import "testing"

func TestUUIDUnique(t *testing.T) {
	var g UUID
	seen := make(map[string]struct{})
	for i := 0; i < 100; i++ {
		id := g.NewID()
		if _, dup := seen[id]; dup {
			t.Fatalf("duplicate id %q", id)
		}
		seen[id] = struct{}{}
	}
}

func TestShortLength(t *testing.T) {
	if got := (Short{}).NewID(); len(got) != 12 {
		t.Errorf("len = %d, want 12", len(got))
	}
}

func TestSequenceDeterministic(t *testing.T) {
	s := NewSequence("c")
	if got := s.NewID(); got != "c-1" {
		t.Errorf("first = %q", got)
	}
	if got := s.NewID(); got != "c-2" {
		t.Errorf("second = %q", got)
	}
}
