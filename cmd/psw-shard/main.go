// Command psw-shard converts a plain-text edge list ("src dst [value]" per
// line, whitespace separated) into an on-disk shard set the engine can
// run against. Line scanning follows the teacher's fast-fields idiom
// (cmd/lp-edgelist-tools) rather than strings.Fields/fmt.Sscanf.
package main

import (
	"bufio"
	"flag"
	"strconv"

	"github.com/rs/zerolog/log"

	"github.com/kestrelgraph/pswgraph/shardfmt"
	"github.com/kestrelgraph/pswgraph/sharder"
	"github.com/kestrelgraph/pswgraph/utils"
)

func main() {
	inPtr := flag.String("in", "", "Path to a whitespace-separated edge list (src dst [value]).")
	outPtr := flag.String("out", "", "Base path for the produced shard set.")
	nshardsPtr := flag.Int("nshards", 0, "P, number of shards. 0 auto-computes from membudget_mb.")
	membudgetPtr := flag.Int("membudget_mb", 1024, "Memory budget (MB) driving auto shard count.")
	compactPtr := flag.Bool("compact_duplicates", false, "Keep the first-seen value on a duplicate (src,dst) pair instead of failing.")
	debugPtr := flag.Int("debug", 0, "Adds extra debug output. 0 info, 1 debug, 2+ trace.")
	flag.Parse()
	utils.SetLevel(*debugPtr)

	if *inPtr == "" || *outPtr == "" {
		log.Info().Msg("Both -in and -out are required.")
		flag.Usage()
		return
	}

	s := sharder.New[shardfmt.Float64, *shardfmt.Float64](sharder.Options{
		BasePath:          *outPtr,
		NumShards:         *nshardsPtr,
		MemBudgetMB:       *membudgetPtr,
		CompactDuplicates: *compactPtr,
	})

	f := utils.OpenFile(*inPtr)
	defer f.Close()

	scanner := bufio.NewScanner(f)
	fields := make([]string, 3)
	lines := 0
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		fields[0], fields[1], fields[2] = "", "", ""
		utils.FastFields(fields, line)
		src, err := strconv.ParseUint(fields[0], 10, 32)
		if err != nil {
			log.Fatal().Err(err).Int("line", lines).Msg("parsing src")
		}
		dst, err := strconv.ParseUint(fields[1], 10, 32)
		if err != nil {
			log.Fatal().Err(err).Int("line", lines).Msg("parsing dst")
		}
		var value float64
		if fields[2] != "" {
			value, err = strconv.ParseFloat(fields[2], 64)
			if err != nil {
				log.Fatal().Err(err).Int("line", lines).Msg("parsing value")
			}
		}
		if err := s.AddEdgeWithValue(uint32(src), uint32(dst), shardfmt.Float64{Value: value}); err != nil {
			log.Fatal().Err(err).Int("line", lines).Msg("adding edge")
		}
		lines++
	}
	if err := scanner.Err(); err != nil {
		log.Fatal().Err(err).Msg("scanning edge list")
	}

	result, err := s.Finalize()
	if err != nil {
		log.Fatal().Err(err).Msg("finalizing shard set")
	}
	log.Info().
		Int("shards", result.NumShards).
		Uint64("edges", result.TotalEdges).
		Uint32("max_vertex_id", result.MaxVertexID).
		Msg("sharding complete")
}
