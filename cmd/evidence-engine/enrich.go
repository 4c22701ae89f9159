// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/pdiddy/evidence-engine/internal/claims"
	"github.com/pdiddy/evidence-engine/internal/domains"
	"github.com/pdiddy/evidence-engine/internal/enrich"
	"github.com/pdiddy/evidence-engine/internal/ledger"
	"github.com/pdiddy/evidence-engine/internal/logging"
	"github.com/pdiddy/evidence-engine/pkg/types"
)

var enrichCmd = &cobra.Command{
	Use:   "enrich",
	Short: "Attach supporting and opposing sources to every claim",
	Long: `Enrich reads a claims file (JSON array or JSONL), searches the open web
for supporting sources and the low-credibility domain list for opposing
sources, and appends one enriched record per claim to the output JSONL.

The output is append-only. Claims already present in it are skipped, so an
interrupted run resumes where it stopped. --export also writes the whole
output as a JSON array next to the JSONL file.`,
	RunE: runEnrich,
}

func init() {
	enrichCmd.Flags().String("input", "", "claims file (default data/claims.json)")
	enrichCmd.Flags().String("output", "", "enriched JSONL output (default output/enriched.jsonl)")
	enrichCmd.Flags().String("domains", "", "untrusted domain list file (default: build from the domains config)")
	enrichCmd.Flags().Int("bucket-size", 0, "sources per bucket (default 5)")
	enrichCmd.Flags().String("claim-field", "", "record field holding the claim text (default claim)")
	enrichCmd.Flags().String("id-field", "", "record field holding the claim ID (default id)")
	enrichCmd.Flags().Bool("exclude-untrusted", false, "exclude untrusted domains from supporting searches")
	enrichCmd.Flags().Bool("export", false, "also write the output as a JSON array")

	rootCmd.AddCommand(enrichCmd)
}

func runEnrich(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd, map[string]string{
		"input":             "enrich.input",
		"output":            "enrich.output",
		"domains":           "enrich.domains_file",
		"bucket-size":       "enrich.bucket_size",
		"claim-field":       "enrich.claim_field",
		"id-field":          "enrich.id_field",
		"exclude-untrusted": "enrich.exclude_untrusted",
	})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	input, err := claims.Load(cfg.Enrich.InputPath, claims.Options{
		TextField: cfg.Enrich.ClaimField,
		IDField:   cfg.Enrich.IDField,
	})
	if err != nil {
		return err
	}

	untrusted, err := untrustedDomains(cfg, os.Stderr)
	if err != nil {
		return err
	}

	searcher, err := newSearcher(cmd, cfg.Search)
	if err != nil {
		return err
	}

	p, err := enrich.New(searcher, untrusted, cfg.Enrich, logging.Log)
	if err != nil {
		return err
	}

	done, err := ledger.CompletedIDs(cfg.Enrich.OutputPath)
	if err != nil {
		return err
	}

	out, err := ledger.OpenWriter(cfg.Enrich.OutputPath)
	if err != nil {
		return err
	}
	defer out.Close()

	fmt.Fprintf(os.Stdout, "enriching %d claims from %s (%d already in %s)\n",
		len(input), cfg.Enrich.InputPath, len(done), cfg.Enrich.OutputPath)

	summary, runErr := p.Run(ctx, input, done, out, os.Stdout)
	logging.Log.WithField("run", summary.RunID).WithField("enriched", summary.Enriched).Info("enrich run finished")

	if export, _ := cmd.Flags().GetBool("export"); export {
		dst := exportPath(cfg.Enrich.OutputPath)
		n, err := ledger.ExportArray(cfg.Enrich.OutputPath, dst)
		if err != nil {
			return err
		}
		fmt.Fprintf(os.Stdout, "exported %d records to %s\n", n, dst)
	}
	return runErr
}

// untrustedDomains loads the prepared list or builds one from the
// domains config.
func untrustedDomains(cfg types.PipelineConfig, w io.Writer) ([]string, error) {
	if cfg.Enrich.DomainsFile != "" {
		list, err := domains.ReadList(cfg.Enrich.DomainsFile)
		if err != nil {
			return nil, err
		}
		fmt.Fprintf(w, "%s: %d domains\n", cfg.Enrich.DomainsFile, len(list))
		return list, nil
	}
	list, err := domains.Build(cfg.Domains, w)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		logging.Log.Warn("untrusted domain list is empty, opposing buckets will stay empty")
	}
	return list, nil
}

// exportPath replaces a .jsonl extension with .json.
func exportPath(jsonl string) string {
	if base, ok := strings.CutSuffix(jsonl, ".jsonl"); ok {
		return base + ".json"
	}
	return jsonl + ".json"
}
