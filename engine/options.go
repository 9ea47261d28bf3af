// Package engine is the PSW iteration driver (spec.md §4.6, component
// C8): it turns a finished shard set into a sequence of iterations, each
// sweeping every shard's execution interval in sub-interval batches,
// running a vertex program's update over the resulting vertex array, and
// committing modified edge values back before moving on.
package engine

import (
	"flag"
	"os"
	"runtime"

	"github.com/rs/zerolog/log"

	"github.com/kestrelgraph/pswgraph/shardfmt"
	"github.com/kestrelgraph/pswgraph/utils"
)

// Options configures a Graph's run. BasePath and NumShards identify an
// already-sharded dataset on disk (produced by sharder.Sharder).
type Options struct {
	BasePath  string
	NumShards int // 0 means "read the shard count from the largest <base>.<P>.intervals file found"

	NumIterations int

	ExecThreads int // compute parallelism within one sub-interval
	IOThreads   int // stripe workers per stripedio.Manager

	MemBudgetMB int
	SubWindow   uint32 // max vertices per sub-interval; 0 runs each execution interval as one sub-interval

	BlockSize shardfmt.BlockSize
	Compress  bool

	// StripeSize is Z from spec.md §4.2 (io.stripesize). 0 derives
	// BlockSize/2, matching the documented default.
	StripeSize int64

	// PreloadMaxMB bounds how much small hot metadata (currently the
	// degree store) the engine will pin wholly in memory via
	// stripedio.File.Pin (spec.md §4.2 Pinning, §6 preload.max_megabytes).
	PreloadMaxMB int

	SelectiveScheduling bool

	ResetVertexData          bool
	InitializeEdgesBeforeRun bool

	DebugLevel int
}

const defaultSubWindow = 1 << 16

// FlagsToOptions parses the engine's recognized command-line flags (spec.md
// §6's configuration keys) into an Options. Declare any algorithm-specific
// flags before calling this, exactly as the teacher's cmd/ binaries declare
// their own flags ahead of graph.FlagsToOptions().
func FlagsToOptions() (opts Options) {
	basePtr := flag.String("file", "", "Base path for shards and derived files (also accepted as -training).")
	trainingPtr := flag.String("training", "", "Alias for -file.")
	nshardsPtr := flag.Int("nshards", 0, "P, number of shards. 0 reads the count from the intervals file on disk.")
	nitersPtr := flag.Int("niters", 5, "Iteration count cap.")
	execThreadsPtr := flag.Int("execthreads", runtime.NumCPU(), "Compute parallelism for vertex updates.")
	ioThreadsPtr := flag.Int("niothreads", 4, "Number of I/O stripes, each served by one worker goroutine.")
	membudgetPtr := flag.Int("membudget_mb", 1024, "Memory budget (MB). Sub-window size does not depend on it.")
	subWindowPtr := flag.Int("subwindow", 0, "Max vertices per sub-interval. 0 uses the default of 65536.")
	blockSizePtr := flag.Int("io.blocksize", 1<<20, "Bytes per edge-value block file.")
	stripeSizePtr := flag.Int64("io.stripesize", 0, "Stripe size in bytes. 0 derives io.blocksize/2.")
	preloadMaxMBPtr := flag.Int("preload.max_megabytes", 64, "Max bytes (MB) of hot metadata (degree store) to pin in memory.")
	compressPtr := flag.Bool("io.compress", false, "Zstd-compress edge-value blocks at rest.")
	selectivePtr := flag.Bool("selective", false, "Enable selective scheduling (skip vertices with no pending task).")
	resetVdataPtr := flag.Bool("reset_vertexdata", false, "Zero-fill the vertex data file at run start.")
	initEdgesPtr := flag.Bool("initialize_edges_before_run", false, "Zero-fill edge values at run start.")
	debugPtr := flag.Int("debug", 0, "Adds extra debug output. 0 info, 1 debug, 2+ trace.")
	flag.Parse()

	utils.SetLevel(*debugPtr)

	base := *basePtr
	if base == "" {
		base = *trainingPtr
	}
	if base == "" {
		log.Info().Msg("Missing required -file (base path for shards).")
		flag.Usage()
		os.Exit(1)
	}

	opts = Options{
		BasePath:                 base,
		NumShards:                *nshardsPtr,
		NumIterations:            *nitersPtr,
		ExecThreads:              *execThreadsPtr,
		IOThreads:                *ioThreadsPtr,
		MemBudgetMB:              *membudgetPtr,
		SubWindow:                uint32(*subWindowPtr),
		BlockSize:                shardfmt.BlockSize(*blockSizePtr),
		StripeSize:               *stripeSizePtr,
		PreloadMaxMB:             *preloadMaxMBPtr,
		Compress:                 *compressPtr,
		SelectiveScheduling:      *selectivePtr,
		ResetVertexData:          *resetVdataPtr,
		InitializeEdgesBeforeRun: *initEdgesPtr,
		DebugLevel:               *debugPtr,
	}
	if opts.SubWindow == 0 {
		opts.SubWindow = defaultSubWindow
	}
	if opts.ExecThreads <= 0 {
		log.Panic().Msg("Invalid execthreads count.")
	}
	return opts
}
