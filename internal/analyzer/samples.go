package analyzer

import "sort"

// sampleLess is the total order used to keep the best samples: entry points
// first, then larger files, then path. Eviction drops from the tail, so the
// smallest non-entry file goes first.
func sampleLess(a, b CodeSample) bool {
	if a.EntryPoint != b.EntryPoint {
		return a.EntryPoint
	}
	if a.Lines != b.Lines {
		return a.Lines > b.Lines
	}
	return a.Path < b.Path
}

// mergeSamples returns the top k of the union of a and b under sampleLess.
func mergeSamples(a, b []CodeSample, k int) []CodeSample {
	out := make([]CodeSample, 0, len(a)+len(b))
	out = append(out, a...)
	out = append(out, b...)
	sort.Slice(out, func(i, j int) bool { return sampleLess(out[i], out[j]) })
	if len(out) > k {
		out = out[:k]
	}
	return out
}

// finalizeSamples keeps only entry points when any were selected; otherwise
// the list already holds the largest files.
func finalizeSamples(samples []CodeSample) []CodeSample {
	if len(samples) == 0 || !samples[0].EntryPoint {
		return samples
	}
	out := samples[:0:0]
	for _, s := range samples {
		if s.EntryPoint {
			out = append(out, s)
		}
	}
	return out
}
