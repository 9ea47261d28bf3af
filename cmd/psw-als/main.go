package main

import (
	"flag"
	"math"

	"github.com/rs/zerolog/log"

	"github.com/kestrelgraph/pswgraph/cmd/common"
	"github.com/kestrelgraph/pswgraph/engine"
	"github.com/kestrelgraph/pswgraph/outstream"
	"github.com/kestrelgraph/pswgraph/sharder"
)

// rating is one observed (row, column, value) training triple.
type rating struct {
	Row, Col uint32
	Value    float64
}

// smokeRatings is the 3x3 training matrix from spec.md §8 scenario 6,
// built as the outer product of two rank-2 row/column factor matrices
// (rows [[1,0],[0,1],[1,1]], columns [[2,1],[1,3],[2,2]]) so an exact
// two-factor fit actually exists for ALS to converge to -- a matrix
// picked at random from a 1-5 rating scale is almost always full rank
// and no two-factor model can reach a near-zero training RMSE against
// it. Rows are vertex ids 0-2, columns are offset by numRows so both
// sides of the bipartite graph live in one vertex id space.
var smokeRatings = []rating{
	{0, 0, 2}, {0, 1, 1}, {0, 2, 2},
	{1, 0, 1}, {1, 1, 3}, {1, 2, 2},
	{2, 0, 3}, {2, 1, 4}, {2, 2, 4},
}

const numRows = 3
const numCols = 3

// Launch point. Shards the built-in smoke-test ratings matrix at the -file
// base path (always, replacing any shard set already there), runs ALS to
// convergence, and reports training RMSE.
func main() {
	itersPtr := flag.Int("als_iters", 20, "Iterations to run (includes the seed-only iteration 0).")
	opts := engine.FlagsToOptions()
	opts.NumIterations = *itersPtr

	colOffset := uint32(numRows)
	if err := shardSmokeRatings(opts.BasePath); err != nil {
		log.Fatal().Err(err).Msg("sharding smoke-test ratings")
	}

	g, err := engine.Open[ALSVertex, ALSEdge, *ALSVertex, *ALSEdge](opts)
	if err != nil {
		log.Fatal().Err(err).Msg("opening shard set")
	}
	defer g.Close()

	if err := g.Run(ALS{}); err != nil {
		log.Fatal().Err(err).Msg("running engine")
	}

	factorsOut, err := g.VertexData(0, g.NumVertices()-1)
	if err != nil {
		log.Fatal().Err(err).Msg("reading final factors")
	}

	rmse := trainingRMSE(factorsOut, colOffset)
	log.Info().Float64("rmse", rmse).Msg("ALS training RMSE")

	name := common.ExtractGraphName(opts.BasePath)
	w, err := outstream.NewTextWriter("results/" + name + "-als.txt")
	if err != nil {
		log.Fatal().Err(err).Msg("opening results file")
	}
	for id, f := range factorsOut {
		if err := w.WriteLine("%d %v", id, f.Factor); err != nil {
			log.Fatal().Err(err).Msg("writing result")
		}
	}
	if err := w.Close(); err != nil {
		log.Fatal().Err(err).Msg("closing results file")
	}
}

// trainingRMSE reports root-mean-squared error between the smoke-test
// ratings and the dot product of their two endpoints' converged factors.
func trainingRMSE(factorsOut []ALSVertex, colOffset uint32) float64 {
	var sumSq float64
	for _, r := range smokeRatings {
		colID := colOffset + r.Col
		var pred float64
		for k := 0; k < factors; k++ {
			pred += factorsOut[r.Row].Factor[k] * factorsOut[colID].Factor[k]
		}
		d := pred - r.Value
		sumSq += d * d
	}
	return math.Sqrt(sumSq / float64(len(smokeRatings)))
}

// shardSmokeRatings writes both directions of every training rating (row
// -> column and column -> row) so each endpoint gets its own edge-value
// slot to broadcast into, then shards them.
func shardSmokeRatings(base string) error {
	s := sharder.New[ALSEdge, *ALSEdge](sharder.Options{BasePath: base, NumShards: 1})
	colOffset := uint32(numRows)
	for _, r := range smokeRatings {
		colID := colOffset + r.Col
		if err := s.AddEdgeWithValue(r.Row, colID, ALSEdge{Rating: r.Value}); err != nil {
			return err
		}
		if err := s.AddEdgeWithValue(colID, r.Row, ALSEdge{Rating: r.Value}); err != nil {
			return err
		}
	}
	_, err := s.Finalize()
	return err
}
