package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/graph-import/internal/fileinput"
	"github.com/graph-import/internal/idmap"
	"github.com/graph-import/internal/importer"
	"github.com/graph-import/internal/schema"
)

var (
	inputDir       string
	outputFile     string
	concurrency    int
	nodeBatch      int
	relBatch       int
	dedupIDs       bool
	maxOriginalID  int64
	idMapType      string
	orientation    string
	indexInverse   bool
	aggregation    string
	skipDangling   bool
	pooledProvider bool
	poolTimeoutSec int
)

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Import a CSV bundle into a graph store",
	Long: `Import reads node, relationship and graph-property CSV files from a
directory, builds the graph store in memory and writes a JSON summary.

Example:
  graph-import import -i ./bundle -o summary.json --concurrency 8
  graph-import import -i ./bundle --dedup --max-original-id 1000000
  graph-import import -i ./bundle --orientation undirected`,
	RunE: runImport,
}

func init() {
	importCmd.Flags().StringVarP(&inputDir, "input", "i", "", "Input directory holding the CSV bundle (required)")
	importCmd.Flags().StringVarP(&outputFile, "output", "o", "", "Path for the JSON import summary (default: stdout)")
	importCmd.Flags().IntVar(&concurrency, "concurrency", 4, "Number of import workers")
	importCmd.Flags().IntVar(&nodeBatch, "node-batch-size", 10000, "Per-worker node buffer size")
	importCmd.Flags().IntVar(&relBatch, "relationship-batch-size", 8192, "Per-worker relationship buffer size")
	importCmd.Flags().BoolVar(&dedupIDs, "dedup", false, "Deduplicate original node ids")
	importCmd.Flags().Int64Var(&maxOriginalID, "max-original-id", -1, "Highest original id hint for the dedup bitset (-1 = unknown)")
	importCmd.Flags().StringVar(&idMapType, "id-map", "dense", "Id map layout: dense, paged or highlimit")
	importCmd.Flags().StringVar(&orientation, "orientation", "natural", "Relationship orientation: natural, reverse or undirected")
	importCmd.Flags().BoolVar(&indexInverse, "index-inverse", false, "Also build reverse adjacencies")
	importCmd.Flags().StringVar(&aggregation, "aggregation", "NONE", "Aggregation for discovered relationship properties")
	importCmd.Flags().BoolVar(&skipDangling, "skip-dangling", true, "Drop relationships with unmapped endpoints")
	importCmd.Flags().BoolVar(&pooledProvider, "pooled-provider", false, "Use the pooled local builder provider")
	importCmd.Flags().IntVar(&poolTimeoutSec, "pool-timeout-sec", 3600, "Pooled provider acquire timeout in seconds")
	_ = importCmd.MarkFlagRequired("input")

	rootCmd.AddCommand(importCmd)
}

func runImport(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	input, err := fileinput.NewCSVInput(inputDir)
	if err != nil {
		return err
	}

	opts, err := buildImportOptions()
	if err != nil {
		return err
	}
	opts.Logger = logger

	imp := importer.New(input, opts)
	store, summary, runErr := imp.Run(ctx)

	summary.InputBytes = dirSize(inputDir)

	data, err := summary.ToJSON()
	if err != nil {
		return err
	}
	if outputFile != "" {
		if err := os.WriteFile(outputFile, data, 0644); err != nil {
			return fmt.Errorf("failed to write summary: %w", err)
		}
		logger.Info("summary written to %s", outputFile)
	} else {
		fmt.Println(string(data))
	}

	if runErr != nil {
		return runErr
	}

	logger.Info("graph store ready: %d nodes, %d relationships across %d types (%s input)",
		store.NodeCount(), store.RelationshipCount(), len(store.Relationships), summary.HumanInputSize())
	return nil
}

func buildImportOptions() (importer.Options, error) {
	opts := importer.DefaultOptions()
	opts.Concurrency = concurrency
	opts.NodeBatchSize = nodeBatch
	opts.RelationshipBatchSize = relBatch
	opts.DeduplicateIDs = dedupIDs
	opts.MaxOriginalID = maxOriginalID
	opts.IndexInverse = indexInverse
	opts.SkipDanglingRelationships = skipDangling
	opts.UsePooledBuilderProvider = pooledProvider
	opts.PoolAcquireTimeout = time.Duration(poolTimeoutSec) * time.Second

	builderType, err := idmap.ParseBuilderType(idMapType)
	if err != nil {
		return opts, err
	}
	opts.IDMapType = builderType

	switch orientation {
	case "", "natural":
		opts.Orientation = schema.OrientationNatural
	case "reverse":
		opts.Orientation = schema.OrientationReverse
	case "undirected":
		opts.Orientation = schema.OrientationUndirected
	default:
		return opts, fmt.Errorf("unsupported orientation: %s", orientation)
	}

	agg, err := schema.ParseAggregation(aggregation)
	if err != nil {
		return opts, err
	}
	opts.Aggregation = agg

	return opts, nil
}

// dirSize sums the sizes of all files under dir.
func dirSize(dir string) uint64 {
	var total uint64
	_ = filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err == nil && !info.IsDir() {
			total += uint64(info.Size())
		}
		return nil
	})
	return total
}
