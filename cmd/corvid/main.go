// Package main provides the corvid CLI entry point.
package main

import (
	"bufio"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/corvid-graph/corvid/pkg/config"
	"github.com/corvid-graph/corvid/pkg/cparse"
	"github.com/corvid-graph/corvid/pkg/engine"
	"github.com/corvid-graph/corvid/pkg/optimizer"
	"github.com/corvid-graph/corvid/pkg/planner"
)

var (
	version = "0.1.0"
	commit  = "dev"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "corvid",
		Short: "Corvid - Embedded openCypher property-graph database",
		Long: `Corvid is an embedded, openCypher-compatible property-graph
database written in Go: a cost-based query planner and optimizer over an
indexed in-memory (or badger-backed) graph store.`,
	}
	rootCmd.PersistentFlags().String("config", "", "Path to a YAML config file (overrides CORVID_* env vars)")
	rootCmd.PersistentFlags().String("data-dir", "", "Open a persistent badger store at this directory instead of in-memory")

	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("corvid v%s (%s)\n", version, commit)
		},
	})

	runCmd := &cobra.Command{
		Use:   "run [query]",
		Short: "Execute a Cypher query and print the result rows",
		Args:  cobra.ExactArgs(1),
		RunE:  runRun,
	}
	runCmd.Flags().String("seed", "", "File of semicolon-separated statements to execute before the query")
	rootCmd.AddCommand(runCmd)

	explainCmd := &cobra.Command{
		Use:   "explain [query]",
		Short: "Print the optimized operator pipeline for a query",
		Args:  cobra.ExactArgs(1),
		RunE:  runExplain,
	}
	explainCmd.Flags().String("seed", "", "File of semicolon-separated statements to execute first, so the optimizer sees real statistics")
	explainCmd.Flags().Bool("no-optimize", false, "Show the planner's raw pipeline without optimizer rewrites")
	rootCmd.AddCommand(explainCmd)

	statsCmd := &cobra.Command{
		Use:   "stats",
		Short: "Print the graph's cardinality statistics snapshot",
		RunE:  runStats,
	}
	statsCmd.Flags().String("seed", "", "File of semicolon-separated statements to execute first")
	rootCmd.AddCommand(statsCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// openEngine builds a config from flags/env and opens an Engine against it.
func openEngine(cmd *cobra.Command) (*engine.Engine, error) {
	configPath, _ := cmd.Flags().GetString("config")
	dataDir, _ := cmd.Flags().GetString("data-dir")

	var cfg *config.Config
	var err error
	if configPath != "" {
		cfg, err = config.LoadFromFile(configPath)
		if err != nil {
			return nil, err
		}
	} else {
		cfg = config.LoadFromEnv()
	}
	if dataDir != "" {
		cfg.Storage.PersistenceEnabled = true
		cfg.Storage.DataDir = dataDir
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return engine.Open(cfg)
}

// seedFromFile executes every semicolon-separated statement in path, so a
// query can run against a populated graph without a persistent store.
func seedFromFile(e *engine.Engine, path string) error {
	if path == "" {
		return nil
	}
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening seed file: %w", err)
	}
	defer f.Close()

	var sb strings.Builder
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		sb.WriteString(scanner.Text())
		sb.WriteString("\n")
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("reading seed file: %w", err)
	}
	for _, stmt := range strings.Split(sb.String(), ";") {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}
		if _, err := e.Query(stmt, nil); err != nil {
			return fmt.Errorf("seed statement %q: %w", stmt, err)
		}
	}
	return nil
}

func runRun(cmd *cobra.Command, args []string) error {
	e, err := openEngine(cmd)
	if err != nil {
		return err
	}
	defer e.Close()

	seed, _ := cmd.Flags().GetString("seed")
	if err := seedFromFile(e, seed); err != nil {
		return err
	}

	result, err := e.Query(args[0], nil)
	if err != nil {
		return err
	}

	if len(result.Columns) > 0 {
		fmt.Println(strings.Join(result.Columns, "\t"))
	}
	for _, row := range result.Rows {
		cells := make([]string, len(result.Columns))
		for i, c := range result.Columns {
			cells[i] = row[c].String()
		}
		fmt.Println(strings.Join(cells, "\t"))
	}
	fmt.Printf("(%d rows)\n", len(result.Rows))
	return nil
}

func runExplain(cmd *cobra.Command, args []string) error {
	e, err := openEngine(cmd)
	if err != nil {
		return err
	}
	defer e.Close()

	seed, _ := cmd.Flags().GetString("seed")
	if err := seedFromFile(e, seed); err != nil {
		return err
	}

	ast, err := cparse.Parse(args[0])
	if err != nil {
		return err
	}
	ops, err := planner.Plan(ast)
	if err != nil {
		return err
	}
	noOptimize, _ := cmd.Flags().GetBool("no-optimize")
	if !noOptimize {
		cfg := optimizer.DefaultConfig()
		if configPath, _ := cmd.Flags().GetString("config"); configPath != "" {
			fileCfg, err := config.LoadFromFile(configPath)
			if err != nil {
				return err
			}
			cfg = fileCfg.Optimizer
		}
		ops = optimizer.Optimize(ops, e.Graph().Statistics(), cfg)
	}
	fmt.Print(planner.Explain(ops))
	return nil
}

func runStats(cmd *cobra.Command, args []string) error {
	e, err := openEngine(cmd)
	if err != nil {
		return err
	}
	defer e.Close()

	seed, _ := cmd.Flags().GetString("seed")
	if err := seedFromFile(e, seed); err != nil {
		return err
	}

	stats := e.Graph().Statistics()
	fmt.Printf("Nodes: %d\n", stats.TotalNodes)
	fmt.Printf("Edges: %d\n", stats.TotalEdges)

	labels := sortedKeys(stats.NodeCountsByLabel)
	if len(labels) > 0 {
		fmt.Println("Node counts by label:")
		for _, l := range labels {
			fmt.Printf("  %-20s %d\n", l, stats.NodeCountsByLabel[l])
		}
	}
	types := sortedKeys(stats.EdgeCountsByType)
	if len(types) > 0 {
		fmt.Println("Edge counts by type:")
		for _, t := range types {
			fmt.Printf("  %-20s %d (avg out-degree %.2f)\n", t, stats.EdgeCountsByType[t], stats.AvgDegreeByType[t])
		}
	}
	if !stats.LastUpdated.IsZero() {
		fmt.Printf("Last updated: %s\n", stats.LastUpdated.Format("2006-01-02 15:04:05"))
	}
	return nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
