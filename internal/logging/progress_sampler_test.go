package logging

import "testing"

func TestProgressSamplerEmitsEveryN(t *testing.T) {
	s := NewProgressSampler(10)
	var emitted []int
	for step := 1; step <= 25; step++ {
		if s.ShouldLog(step, false) {
			emitted = append(emitted, step)
		}
	}
	if len(emitted) != 2 || emitted[0] != 10 || emitted[1] != 20 {
		t.Fatalf("emitted = %v", emitted)
	}
}

func TestProgressSamplerCompletionOnce(t *testing.T) {
	s := NewProgressSampler(10)
	if !s.ShouldLog(3, true) {
		t.Fatal("expected completion to emit")
	}
	if s.ShouldLog(4, true) {
		t.Fatal("completion should emit only once")
	}
	s.Reset()
	if !s.ShouldLog(1, true) {
		t.Fatal("expected emission after reset")
	}
}

func TestProgressSamplerDefaultsAndNil(t *testing.T) {
	s := NewProgressSampler(0)
	if s.ShouldLog(9, false) || !s.ShouldLog(10, false) {
		t.Fatal("expected default interval of 10")
	}
	var nilSampler *ProgressSampler
	if !nilSampler.ShouldLog(1, false) {
		t.Fatal("nil sampler should always log")
	}
}
