package histogram

import (
	"errors"
	"fmt"
	"math"
	"sort"
)

// Params describes the binning of a time-chunked property.
type Params struct {
	NBins           int     `json:"nbins"`
	TMaxGyr         float64 `json:"tmax_gyr"`
	MinimumStoreGyr float64 `json:"minimum_store_gyr"`
}

// DefaultParams covers 20 Gyr in 1000 bins and stores at least 1 Gyr per step.
var DefaultParams = Params{
	NBins:           1000,
	TMaxGyr:         20.0,
	MinimumStoreGyr: 1.0,
}

// Validate reports unusable parameters.
func (p Params) Validate() error {
	var errs []error
	if p.NBins <= 0 {
		errs = append(errs, fmt.Errorf("nbins must be positive, got %d", p.NBins))
	}
	if !(p.TMaxGyr > 0) {
		errs = append(errs, fmt.Errorf("tmax_gyr must be positive, got %g", p.TMaxGyr))
	}
	if p.MinimumStoreGyr < 0 || math.IsNaN(p.MinimumStoreGyr) {
		errs = append(errs, fmt.Errorf("minimum_store_gyr must not be negative, got %g", p.MinimumStoreGyr))
	}
	return errors.Join(errs...)
}

// BinWidth returns the width of one bin in Gyr.
func (p Params) BinWidth() float64 {
	return p.TMaxGyr / float64(p.NBins)
}

// BinIndex converts a time in Gyr to a bin index, never below 0.
func (p Params) BinIndex(timeGyr float64) int {
	idx := int(math.Floor(float64(p.NBins) * timeGyr / p.TMaxGyr))
	if idx < 0 {
		return 0
	}
	return idx
}

// StoreSlice returns the half-open bin range [start, end) a step at
// timeGyr is responsible for storing.
func (p Params) StoreSlice(timeGyr float64) (start, end int) {
	return p.BinIndex(timeGyr - p.MinimumStoreGyr), p.BinIndex(timeGyr)
}

// Place zero-pads chunk into an array of length BinIndex(timeGyr) with the
// chunk occupying the trailing entries. A chunk longer than the array loses
// its leading entries.
func (p Params) Place(timeGyr float64, chunk []float64) []float64 {
	out := make([]float64, p.BinIndex(timeGyr))
	end := len(out)
	start := end - len(chunk)
	src := chunk
	if start < 0 {
		src = chunk[-start:]
		start = 0
	}
	copy(out[start:end], src)
	return out
}

// Entry is one stored chunk and the time of the step that stored it.
type Entry struct {
	TimeGyr float64
	Chunk   []float64
}

// Accumulate combines chunks into one array of length BinIndex(untilGyr).
//
// Entries are applied in time order, each right-aligned at its own
// BinIndex. A later time overwrites the bins it covers. With sumSameTime,
// entries sharing a time add into each other instead; without it they
// overwrite in input order. NaN values are skipped.
func (p Params) Accumulate(untilGyr float64, entries []Entry, sumSameTime bool) []float64 {
	out := make([]float64, p.BinIndex(untilGyr))

	ordered := make([]Entry, len(entries))
	copy(ordered, entries)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].TimeGyr < ordered[j].TimeGyr })

	// touched marks bins already written by the current time group.
	touched := make([]bool, len(out))
	for i, e := range ordered {
		if i == 0 || e.TimeGyr != ordered[i-1].TimeGyr {
			clear(touched)
		}

		end := p.BinIndex(e.TimeGyr)
		start := end - len(e.Chunk)
		for j, v := range e.Chunk {
			bin := start + j
			if bin < 0 || bin >= len(out) || math.IsNaN(v) {
				continue
			}
			if sumSameTime && touched[bin] {
				out[bin] += v
			} else {
				out[bin] = v
			}
			touched[bin] = true
		}
	}
	return out
}
