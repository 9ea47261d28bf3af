package main

import (
	"flag"
	"fmt"
	"math"

	"github.com/rs/zerolog/log"

	"github.com/kestrelgraph/pswgraph/cmd/common"
	"github.com/kestrelgraph/pswgraph/engine"
	"github.com/kestrelgraph/pswgraph/shardfmt"
	"github.com/kestrelgraph/pswgraph/utils"
)

// Launch point. Parses command-line flags (including -root, specific to
// this algorithm, declared ahead of engine.FlagsToOptions() per the
// teacher's own convention), seeds the root's distance to 0 and every
// other vertex to "unvisited", runs to convergence, then writes one
// "<id> <distance>" line per vertex (math.MaxUint32 for unreached ones).
func main() {
	rootPtr := flag.Int("root", 0, "BFS root vertex id.")
	opts := engine.FlagsToOptions()
	root := uint32(*rootPtr)

	g, err := engine.Open[shardfmt.Uint32, shardfmt.Uint32, *shardfmt.Uint32, *shardfmt.Uint32](opts)
	if err != nil {
		log.Fatal().Err(err).Msg("opening shard set")
	}
	defer g.Close()

	n := g.NumVertices()
	init := make([]shardfmt.Uint32, n)
	for i := range init {
		init[i] = shardfmt.Uint32{Value: unvisited}
	}
	if root < n {
		init[root] = shardfmt.Uint32{Value: 0}
	}
	if err := g.SetVertexData(0, init); err != nil {
		log.Fatal().Err(err).Msg("seeding root distance")
	}

	if err := g.Run(BFS{}); err != nil {
		log.Fatal().Err(err).Msg("running engine")
	}

	distances, err := g.VertexData(0, n-1)
	if err != nil {
		log.Fatal().Err(err).Msg("reading final distances")
	}

	reportFarthest(distances, 5)

	name := common.ExtractGraphName(opts.BasePath)
	outPath := "results/" + name + "-bfs.txt"
	if err := common.WriteVertexValues(outPath, distances, func(_ uint32, v shardfmt.Uint32) string {
		return fmt.Sprintf("%d", v.Value)
	}); err != nil {
		log.Fatal().Err(err).Msg("writing results")
	}
}

// reportFarthest logs the topN vertices with the largest finite hop
// distance from the root, same top-N-without-a-full-sort idiom the
// teacher's own PageRank results reporting uses.
func reportFarthest(distances []shardfmt.Uint32, topN uint32) {
	asFloat := make([]float64, len(distances))
	for id, d := range distances {
		if d.Value == unvisited {
			asFloat[id] = -1
			continue
		}
		asFloat[id] = float64(d.Value)
	}
	for _, p := range utils.FindTopNInArray(asFloat, topN) {
		if p.Second < 0 {
			continue
		}
		log.Info().Uint32("vertex", p.First).Int("distance", int(math.Round(p.Second))).Msg("farthest reached")
	}
}
