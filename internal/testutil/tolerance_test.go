package testutil

import "testing"

func TestMaxAbsDiff(t *testing.T) {
	d, err := MaxAbsDiff([]float64{1, 2, 3}, []float64{1, 2.5, 2})
	if err != nil {
		t.Fatalf("MaxAbsDiff: %v", err)
	}
	if d != 1 {
		t.Fatalf("d = %v, want 1", d)
	}
}

func TestMaxAbsDiffLengthMismatch(t *testing.T) {
	if _, err := MaxAbsDiff([]float64{1}, []float64{1, 2}); err == nil {
		t.Fatal("expected error")
	}
}

func TestSignals(t *testing.T) {
	if got := Impulse(4, 1); got[0] != 0 || got[1] != 1 || got[2] != 0 {
		t.Fatalf("Impulse = %v", got)
	}
	if got := DC(2.5, 3); got[0] != 2.5 || got[2] != 2.5 {
		t.Fatalf("DC = %v", got)
	}
	a := DeterministicNoise(42, 1, 16)
	b := DeterministicNoise(42, 1, 16)
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("noise not reproducible at %d", i)
		}
	}
}
