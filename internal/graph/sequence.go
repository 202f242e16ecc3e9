package graph

import "sort"

// Sequence is a simulation's timesteps in time order.
type Sequence []Timestep

// NewSequence sorts timesteps by time, breaking ties by extension.
func NewSequence(steps []Timestep) Sequence {
	seq := make(Sequence, len(steps))
	copy(seq, steps)
	sort.SliceStable(seq, func(i, j int) bool {
		if seq[i].TimeGyr != seq[j].TimeGyr {
			return seq[i].TimeGyr < seq[j].TimeGyr
		}
		return seq[i].Extension < seq[j].Extension
	})
	return seq
}

// Index returns the position of the timestep in the sequence, or -1.
func (s Sequence) Index(id TimestepID) int {
	for i, ts := range s {
		if ts.ID == id {
			return i
		}
	}
	return -1
}

// Next returns the timestep n places after id. Negative n moves backwards.
// Returns false if id is absent or the move leaves the sequence.
func (s Sequence) Next(id TimestepID, n int) (Timestep, bool) {
	i := s.Index(id)
	if i < 0 {
		return Timestep{}, false
	}
	j := i + n
	if j < 0 || j >= len(s) {
		return Timestep{}, false
	}
	return s[j], true
}

// First returns the earliest timestep.
func (s Sequence) First() (Timestep, bool) {
	if len(s) == 0 {
		return Timestep{}, false
	}
	return s[0], true
}

// Final returns the latest timestep.
func (s Sequence) Final() (Timestep, bool) {
	if len(s) == 0 {
		return Timestep{}, false
	}
	return s[len(s)-1], true
}
