package bitset

import "testing"

func TestInsertHasRemove(t *testing.T) {
	s := New(32)
	if s.Has(5) {
		t.Fatal("fresh set should not contain 5")
	}
	s.Insert(5)
	if !s.Has(5) {
		t.Fatal("expected 5 to be a member after Insert")
	}
	s.Remove(5)
	if s.Has(5) {
		t.Fatal("expected 5 removed")
	}
}

func TestZeroPriorityIgnored(t *testing.T) {
	s := New(32)
	s.Insert(0)
	if s.Has(0) {
		t.Fatal("priority 0 must never be a member")
	}
	if !s.IsEmpty() {
		t.Fatal("inserting priority 0 should be a no-op")
	}
}

func TestFindMaxAcrossWords(t *testing.T) {
	s := New(128)
	s.Insert(3)
	s.Insert(70)
	s.Insert(40)

	got, ok := s.FindMax()
	if !ok || got != 70 {
		t.Fatalf("FindMax() = %d, %v; want 70, true", got, ok)
	}
}

func TestFindMaxEmpty(t *testing.T) {
	s := New(32)
	if _, ok := s.FindMax(); ok {
		t.Fatal("FindMax on empty set should report false")
	}
}

func TestCloneIsIndependent(t *testing.T) {
	s := New(32)
	s.Insert(1)
	s.Insert(2)

	clone := s.Clone()
	s.Insert(3)
	clone.Remove(1)

	if !s.Has(1) {
		t.Fatal("removing from clone must not affect original")
	}
	if clone.Has(3) {
		t.Fatal("inserting into original must not affect clone")
	}
}

func TestForEachOrder(t *testing.T) {
	s := New(128)
	for _, p := range []uint32{5, 64, 1, 100} {
		s.Insert(p)
	}

	var seen []uint32
	s.ForEach(func(prio uint32) { seen = append(seen, prio) })

	want := []uint32{1, 5, 64, 100}
	if len(seen) != len(want) {
		t.Fatalf("ForEach visited %v, want %v", seen, want)
	}
	for i := range want {
		if seen[i] != want[i] {
			t.Fatalf("ForEach visited %v, want %v", seen, want)
		}
	}
}
