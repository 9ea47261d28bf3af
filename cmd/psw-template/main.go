package main

import (
	"github.com/rs/zerolog/log"

	"github.com/kestrelgraph/pswgraph/engine"
	"github.com/kestrelgraph/pswgraph/shardfmt"
)

// Launch point. Parses command-line flags and runs the engine over an
// already-sharded dataset. Algorithm binaries under cmd/ follow this same
// three-line shape: FlagsToOptions, Open, Run.
func main() {
	opts := engine.FlagsToOptions()

	g, err := engine.Open[shardfmt.Empty, shardfmt.Empty, *shardfmt.Empty, *shardfmt.Empty](opts)
	if err != nil {
		log.Fatal().Err(err).Msg("opening shard set")
	}
	defer g.Close()

	if err := g.Run(Template{}); err != nil {
		log.Fatal().Err(err).Msg("running engine")
	}
}
