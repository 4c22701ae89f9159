// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pdiddy/evidence-engine/internal/domains"
)

var domainsCmd = &cobra.Command{
	Use:   "domains",
	Short: "Build the low-credibility domain list",
	Long: `Domains extracts untrusted domains from a NewsGuard label metadata CSV
(rating "N" within the score range), merges the built-in misinformation list
and any extra list files, and writes the normalized, duplicate-free result.

The output format follows the --out extension: .json, .yaml/.yml, or plain
text with one domain per line. Without --out the list is printed.`,
	RunE: runDomains,
}

func init() {
	domainsCmd.Flags().String("csv", "", "NewsGuard label metadata CSV")
	domainsCmd.Flags().Float64("min-score", 0, "minimum NewsGuard score, inclusive")
	domainsCmd.Flags().Float64("max-score", 50, "maximum NewsGuard score, inclusive")
	domainsCmd.Flags().String("country", "", "only rows for this country code")
	domainsCmd.Flags().String("language", "", "only rows for this language code")
	domainsCmd.Flags().Bool("wiki", true, "merge the built-in misinformation domain list")
	domainsCmd.Flags().StringSlice("extra", nil, "additional domain list files")
	domainsCmd.Flags().String("out", "", "write the list to this file")

	rootCmd.AddCommand(domainsCmd)
}

func runDomains(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd, map[string]string{
		"csv":       "domains.newsguard_csv",
		"min-score": "domains.min_score",
		"max-score": "domains.max_score",
		"country":   "domains.country",
		"language":  "domains.language",
		"wiki":      "domains.include_wiki",
		"extra":     "domains.extra_files",
	})
	if err != nil {
		return err
	}
	if cfg.Domains.MinScore > cfg.Domains.MaxScore {
		return fmt.Errorf("--min-score %g is above --max-score %g", cfg.Domains.MinScore, cfg.Domains.MaxScore)
	}

	list, err := domains.Build(cfg.Domains, os.Stderr)
	if err != nil {
		return err
	}
	if len(list) == 0 {
		return fmt.Errorf("no domains selected: provide --csv, --wiki, or --extra")
	}

	out, _ := cmd.Flags().GetString("out")
	if out == "" {
		for _, d := range list {
			fmt.Println(d)
		}
		return nil
	}
	if err := domains.WriteList(out, list); err != nil {
		return err
	}
	fmt.Printf("Wrote %d domains to %s\n", len(list), out)
	return nil
}
