package sample

import "testing"

func TestChooseDeterministic(t *testing.T) {
	candidates := []string{"a", "b", "c", "d", "e"}

	s1 := New(42)
	s2 := New(42)

	got1 := Choose(s1, candidates, 3)
	got2 := Choose(s2, candidates, 3)

	if len(got1) != 3 || len(got2) != 3 {
		t.Fatalf("want 3 elements, got %v / %v", got1, got2)
	}
	for i := range got1 {
		if got1[i] != got2[i] {
			t.Fatalf("same seed diverged at %d: %v vs %v", i, got1, got2)
		}
	}
}

func TestChooseUniqueness(t *testing.T) {
	candidates := []string{"a", "b", "c", "d"}
	s := New(7)
	got := Choose(s, candidates, 4)
	seen := map[string]bool{}
	for _, v := range got {
		if seen[v] {
			t.Fatalf("duplicate in sample: %v", got)
		}
		seen[v] = true
	}
}

func TestChooseCapsAtLen(t *testing.T) {
	candidates := []string{"a", "b"}
	s := New(1)
	got := Choose(s, candidates, 10)
	if len(got) != 2 {
		t.Fatalf("want 2, got %d", len(got))
	}
}

func TestChooseDoesNotMutateInput(t *testing.T) {
	candidates := []string{"a", "b", "c"}
	orig := append([]string(nil), candidates...)
	s := New(3)
	Choose(s, candidates, 2)
	for i := range candidates {
		if candidates[i] != orig[i] {
			t.Fatalf("input mutated: %v", candidates)
		}
	}
}
