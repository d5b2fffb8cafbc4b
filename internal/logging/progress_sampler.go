package logging

// ProgressSampler suppresses repetitive progress logs for batched loops. It
// emits every N steps and once when the loop reports completion.
type ProgressSampler struct {
	every    int
	finished bool
}

// NewProgressSampler constructs a sampler that emits every `every` steps
// (default 10).
func NewProgressSampler(every int) *ProgressSampler {
	if every <= 0 {
		every = 10
	}
	return &ProgressSampler{every: every}
}

// ShouldLog reports whether progress after step (1-based) should be logged.
// done forces a single emission the first time it is true.
func (s *ProgressSampler) ShouldLog(step int, done bool) bool {
	if s == nil {
		return true
	}
	if done {
		if s.finished {
			return false
		}
		s.finished = true
		return true
	}
	return step > 0 && step%s.every == 0
}

// Reset clears the sampler state (e.g. when a new dataset starts).
func (s *ProgressSampler) Reset() {
	if s == nil {
		return
	}
	s.finished = false
}
