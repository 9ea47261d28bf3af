package shardfmt

import (
	"bytes"
	"reflect"
	"testing"
)

func TestAdjacencyRoundTrip(t *testing.T) {
	cases := []struct {
		name string
		recs map[uint32][]uint32
		max  uint32
	}{
		{"empty", map[uint32][]uint32{}, 0},
		{"single", map[uint32][]uint32{0: {1, 2, 3}}, 0},
		{"gap", map[uint32][]uint32{0: {5}, 3: {1}}, 3},
		{"longGap", map[uint32][]uint32{0: {1}, 300: {2}}, 300},
		{"manyDsts", map[uint32][]uint32{0: seq(500)}, 0},
		{"tailSinks", map[uint32][]uint32{0: {1}}, 10},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			var buf bytes.Buffer
			aw := NewAdjacencyWriter(&buf)
			maxSrc := c.max
			for src := range c.recs {
				if src > maxSrc {
					maxSrc = src
				}
			}
			for src := uint32(0); src <= maxSrc; src++ {
				if dsts, ok := c.recs[src]; ok {
					if err := aw.WriteVertex(src, dsts); err != nil {
						t.Fatalf("WriteVertex(%d): %v", src, err)
					}
				}
			}
			if err := aw.Close(maxSrc); err != nil {
				t.Fatalf("Close: %v", err)
			}

			ar := NewAdjacencyReader(&buf)
			got := map[uint32][]uint32{}
			for {
				src, dsts, ok, err := ar.Next()
				if err != nil {
					t.Fatalf("Next: %v", err)
				}
				if !ok {
					break
				}
				if len(dsts) > 0 {
					got[src] = dsts
				}
			}
			if !reflect.DeepEqual(got, c.recs) {
				t.Fatalf("got %v, want %v", got, c.recs)
			}
		})
	}
}

func seq(n int) []uint32 {
	s := make([]uint32, n)
	for i := range s {
		s[i] = uint32(i)
	}
	return s
}
