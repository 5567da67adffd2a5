package clip

import "math"

// Value is an animated value produced by a scrubbable clip.
// Components are independent; a shorter vector is treated as zero-padded.
type Value []float64

// Clone returns a copy of v. Clone of nil is nil.
func (v Value) Clone() Value {
	if v == nil {
		return nil
	}
	out := make(Value, len(v))
	copy(out, v)
	return out
}

// Equal reports whether v and other match component-wise within tolerance.
// Missing components compare as zero.
func (v Value) Equal(other Value, tolerance float64) bool {
	n := max(len(v), len(other))
	for i := 0; i < n; i++ {
		if math.Abs(v.at(i)-other.at(i)) > tolerance {
			return false
		}
	}
	return true
}

func (v Value) at(i int) float64 {
	if i < len(v) {
		return v[i]
	}
	return 0
}

// Lerp blends sample on top of acc with straight linear interpolation:
//
//	out[i] = acc[i] + (sample[i] - acc[i]) * w
//
// The result has the length of the longer input. acc is not modified.
func Lerp(acc, sample Value, w float64) Value {
	n := max(len(acc), len(sample))
	out := make(Value, n)
	for i := 0; i < n; i++ {
		a := acc.at(i)
		out[i] = a + (sample.at(i)-a)*w
	}
	return out
}
