package sharder

import (
	"github.com/kestrelgraph/pswgraph/shardfmt"
	"github.com/kestrelgraph/pswgraph/utils"
)

// mergeSource is one shovel file's current head record, as tracked by the
// k-way merge heap (spec.md §4.1 step 3). exhausted sources are popped off
// the heap entirely rather than kept with a sentinel, so the heap's length
// is always the number of still-live shovels.
type mergeSource[E any, PE shardfmt.Codec[E]] struct {
	reader *shovelReader[E, PE]
	head   shovelRecord[E]
}

// Less satisfies utils.PQI so mergeSource can be held in a utils.PQ
// min-heap keyed on the standard (dst, src, seq) shovel order.
func (m *mergeSource[E, PE]) Less(other *mergeSource[E, PE]) bool {
	return lessShovel(m.head, other.head)
}

// kwayMerge drives a min-heap over all open shovel readers, yielding
// records in strictly non-decreasing dst order (ties broken by src then
// seq) via the callback emit. Matches GraphChi's merge-phase sink
// contract: "a strictly non-decreasing dst stream."
func kwayMerge[E any, PE shardfmt.Codec[E]](paths []string, emit func(shovelRecord[E]) error) error {
	var heap utils.PQ[*mergeSource[E, PE]]
	var readers []*shovelReader[E, PE]
	defer func() {
		for _, r := range readers {
			r.close()
		}
	}()

	for _, p := range paths {
		r, err := openShovelReader[E, PE](p)
		if err != nil {
			return err
		}
		readers = append(readers, r)
		head, ok, err := r.next()
		if err != nil {
			return err
		}
		if ok {
			heap.Push(&mergeSource[E, PE]{reader: r, head: head})
		}
	}
	heap.Init()

	for len(heap) > 0 {
		src := heap[0]
		if err := emit(src.head); err != nil {
			return err
		}
		next, ok, err := src.reader.next()
		if err != nil {
			return err
		}
		if ok {
			src.head = next
			heap.Fix(0)
		} else {
			heap.Pop()
		}
	}
	return nil
}
