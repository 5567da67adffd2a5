package engine

import (
	"cmp"
	"slices"

	"github.com/roach88/mixer/internal/clip"
)

// Record is the driver's per-frame view of one accepted clip.
// It is tagged with the iteration of the frame that produced it and with
// its input position, which breaks ties between equal starts.
type Record struct {
	Handle    clip.Handle
	Start     float64
	Weight    float64
	Iteration uint64
	Order     int
}

func (r Record) record() Record { return r }

type scrubbableRecord struct {
	Record
	sample func(local float64) clip.Value
}

type triggerableRecord struct {
	Record
	fire func() error
}

type sequentialRecord struct {
	Record
	step func(sc *clip.StepContext) (clip.StepResult, error)
}

type recorded interface {
	record() Record
}

// sortByStart orders a bucket ascending by start. Equal starts keep their
// input order.
func sortByStart[T recorded](recs []T) {
	slices.SortStableFunc(recs, func(a, b T) int {
		return cmp.Compare(a.record().Start, b.record().Start)
	})
}

// buckets holds one frame's records grouped by kind.
type buckets struct {
	scrubbable  []scrubbableRecord
	triggerable []triggerableRecord
	sequential  []sequentialRecord
}

func (b *buckets) sort() {
	sortByStart(b.scrubbable)
	sortByStart(b.triggerable)
	sortByStart(b.sequential)
}
