package main

import (
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/kestrelgraph/pswgraph/cmd/common"
	"github.com/kestrelgraph/pswgraph/engine"
	"github.com/kestrelgraph/pswgraph/shardfmt"
)

// Launch point. Parses command-line flags, runs connected components to
// convergence, then writes one "<id> <component>" line per vertex.
func main() {
	opts := engine.FlagsToOptions()

	g, err := engine.Open[shardfmt.Uint32, shardfmt.Uint32, *shardfmt.Uint32, *shardfmt.Uint32](opts)
	if err != nil {
		log.Fatal().Err(err).Msg("opening shard set")
	}
	defer g.Close()

	if err := g.Run(CC{}); err != nil {
		log.Fatal().Err(err).Msg("running engine")
	}

	labels, err := g.VertexData(0, g.NumVertices()-1)
	if err != nil {
		log.Fatal().Err(err).Msg("reading final labels")
	}

	components := make(map[uint32]bool)
	for _, l := range labels {
		components[Label(l.Value)] = true
	}
	log.Info().Int("components", len(components)).Msg("connected components converged")

	name := common.ExtractGraphName(opts.BasePath)
	outPath := "results/" + name + "-cc.txt"
	if err := common.WriteVertexValues(outPath, labels, func(_ uint32, v shardfmt.Uint32) string {
		return fmt.Sprintf("%d", Label(v.Value))
	}); err != nil {
		log.Fatal().Err(err).Msg("writing results")
	}
}
