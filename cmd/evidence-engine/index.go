// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/evidence-engine/internal/index"
	"github.com/pdiddy/evidence-engine/internal/logging"
	"github.com/pdiddy/evidence-engine/pkg/types"
)

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Manage the evidence index (store, retrieve, export, domains)",
	Long: `Index manages a local SQLite database built from enrich output. Use
subcommands to load output files, query sources, export them, or count
sources per domain.`,
}

// --- store subcommand ---

var indexStoreCmd = &cobra.Command{
	Use:   "store [jsonl...]",
	Short: "Load enrich output into the index",
	Long: `Store reads enriched JSONL files (default: the configured enrich output),
upserts each claim and replaces its sources, and refreshes export.yaml.
Files unchanged since the last store are skipped.`,
	RunE: runIndexStore,
}

func runIndexStore(cmd *cobra.Command, args []string) error {
	cfg, store, err := openIndex(cmd)
	if err != nil {
		return err
	}
	defer store.Close()

	paths := args
	if len(paths) == 0 {
		paths = []string{cfg.Enrich.OutputPath}
	}
	for _, path := range paths {
		if _, err := store.Ingest(context.Background(), path, os.Stdout); err != nil {
			return err
		}
	}
	return nil
}

// --- retrieve subcommand ---

var indexRetrieveCmd = &cobra.Command{
	Use:   "retrieve [query]",
	Short: "Query indexed sources with full-text search and filters",
	Long: `Retrieve searches source titles and snippets with FTS5, filters by
bucket, domain or claim, or combines both.`,
	RunE: runIndexRetrieve,
}

func runIndexRetrieve(cmd *cobra.Command, args []string) error {
	_, store, err := openIndex(cmd)
	if err != nil {
		return err
	}
	defer store.Close()

	opts, err := queryOptsFromFlags(cmd, args)
	if err != nil {
		return err
	}
	if opts.IsEmpty() {
		return fmt.Errorf("query or filter required: provide a search query, --bucket, --domain, or --claim")
	}

	results, err := store.Retrieve(context.Background(), opts)
	if err != nil {
		return err
	}

	jsonOutput, _ := cmd.Flags().GetBool("json")
	return formatRetrieveOutput(os.Stdout, results, jsonOutput)
}

func formatRetrieveOutput(w io.Writer, results []index.QueryResult, jsonOutput bool) error {
	if jsonOutput {
		if results == nil {
			results = []index.QueryResult{}
		}
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(results)
	}

	if len(results) == 0 {
		fmt.Fprintln(w, "No results found.")
		return nil
	}

	fmt.Fprintf(w, "%-4s  %-10s  %-12s  %-24s  %s\n", "Rank", "Bucket", "Claim", "Domain", "Title")
	fmt.Fprintln(w, strings.Repeat("-", 100))
	for i, r := range results {
		fmt.Fprintf(w, "%-4d  %-10s  %-12s  %-24s  %s\n",
			i+1, r.Bucket, truncate(r.ClaimID, 12), truncate(r.Domain, 24), truncate(r.Title, 44))
	}
	fmt.Fprintf(w, "\n%d results\n", len(results))
	return nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}

// --- export subcommand ---

var indexExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export indexed sources to YAML or JSON",
	Long: `Export writes all indexed sources (or a filtered subset) to
export.yaml or export.json in the index directory. It accepts the same
filter flags as retrieve.`,
	RunE: runIndexExport,
}

func runIndexExport(cmd *cobra.Command, args []string) error {
	format, _ := cmd.Flags().GetString("format")

	_, store, err := openIndex(cmd)
	if err != nil {
		return err
	}
	defer store.Close()

	opts, err := queryOptsFromFlags(cmd, args)
	if err != nil {
		return err
	}

	var path string
	switch format {
	case "yaml", "":
		path, err = store.ExportYAML(context.Background(), opts)
	case "json":
		path, err = store.ExportJSON(context.Background(), opts)
	default:
		return fmt.Errorf("unsupported format %q: use yaml or json", format)
	}
	if err != nil {
		return err
	}
	fmt.Println("Exported to", path)
	return nil
}

// --- domains subcommand ---

var indexDomainsCmd = &cobra.Command{
	Use:   "domains",
	Short: "Count indexed sources per domain",
	RunE: func(cmd *cobra.Command, args []string) error {
		_, store, err := openIndex(cmd)
		if err != nil {
			return err
		}
		defer store.Close()

		bucket, err := bucketFlag(cmd)
		if err != nil {
			return err
		}
		counts, err := store.DomainCounts(context.Background(), bucket)
		if err != nil {
			return err
		}
		limit, _ := cmd.Flags().GetInt("limit")
		for i, c := range counts {
			if limit > 0 && i >= limit {
				break
			}
			fmt.Printf("%6d  %s\n", c.Count, c.Domain)
		}
		return nil
	},
}

// --- shared helpers ---

func openIndex(cmd *cobra.Command) (types.PipelineConfig, *index.Store, error) {
	cfg, err := loadConfig(cmd, map[string]string{
		"index-dir":   "index.index_dir",
		"max-results": "index.max_results",
	})
	if err != nil {
		return cfg, nil, err
	}
	if cfg.Index.ClaimField == "" {
		cfg.Index.ClaimField = cfg.Enrich.ClaimField
	}
	store, err := index.NewStore(cfg.Index, logging.Log)
	return cfg, store, err
}

func bucketFlag(cmd *cobra.Command) (types.BucketName, error) {
	b, _ := cmd.Flags().GetString("bucket")
	switch types.BucketName(b) {
	case "", types.BucketSupporting, types.BucketOpposing:
		return types.BucketName(b), nil
	}
	return "", fmt.Errorf("unknown bucket %q: use supporting or opposing", b)
}

func queryOptsFromFlags(cmd *cobra.Command, args []string) (index.QueryOptions, error) {
	queryText, _ := cmd.Flags().GetString("query")
	if queryText == "" && len(args) > 0 {
		queryText = strings.Join(args, " ")
	}
	bucket, err := bucketFlag(cmd)
	if err != nil {
		return index.QueryOptions{}, err
	}
	domain, _ := cmd.Flags().GetString("domain")
	claimID, _ := cmd.Flags().GetString("claim")
	limit, _ := cmd.Flags().GetInt("limit")

	return index.QueryOptions{
		Query:      queryText,
		Bucket:     bucket,
		Domain:     domain,
		ClaimID:    claimID,
		MaxResults: limit,
	}, nil
}

func addFilterFlags(cmd *cobra.Command, verb string) {
	cmd.Flags().String("query", "", "full-text search "+verb)
	cmd.Flags().String("bucket", "", "filter by bucket: supporting or opposing")
	cmd.Flags().String("domain", "", "filter by domain, including subdomains")
	cmd.Flags().String("claim", "", "filter by claim ID")
	cmd.Flags().Int("limit", 0, "maximum results (0 = use default)")
}

func init() {
	indexCmd.PersistentFlags().String("index-dir", "", "index directory (default index)")
	indexCmd.PersistentFlags().Int("max-results", 0, "default maximum number of query results (default 20)")

	addFilterFlags(indexRetrieveCmd, "query")
	indexRetrieveCmd.Flags().Bool("json", false, "output results as JSON")

	addFilterFlags(indexExportCmd, "filter for partial export")
	indexExportCmd.Flags().String("format", "yaml", "export format: yaml or json")

	indexDomainsCmd.Flags().String("bucket", "", "count only this bucket: supporting or opposing")
	indexDomainsCmd.Flags().Int("limit", 0, "show at most this many domains")

	indexCmd.AddCommand(indexStoreCmd)
	indexCmd.AddCommand(indexRetrieveCmd)
	indexCmd.AddCommand(indexExportCmd)
	indexCmd.AddCommand(indexDomainsCmd)

	rootCmd.AddCommand(indexCmd)
}
