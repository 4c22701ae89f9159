// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/evidence-engine/internal/domains"
	"github.com/pdiddy/evidence-engine/internal/enrich"
	"github.com/pdiddy/evidence-engine/internal/logging"
	"github.com/pdiddy/evidence-engine/internal/search"
)

var searchCmd = &cobra.Command{
	Use:   "search [query...]",
	Short: "Run one web search and print the results",
	Long: `Search sends a single query to the search provider and prints the
answer and each result's title, URL, score and snippet.

With --untrusted the query is restricted to the low-credibility domains
listed in --domains, the way enrich fills the opposing bucket. --save
writes the request and results to a YAML file, and --replay re-runs a
previously saved request.`,
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().Bool("untrusted", false, "restrict results to the domains in --domains")
	searchCmd.Flags().String("domains", "", "domain list file used by --untrusted")
	searchCmd.Flags().Int("max-results", 0, "maximum number of results (provider ceiling 20)")
	searchCmd.Flags().String("depth", "", "search depth: basic or advanced")
	searchCmd.Flags().String("topic", "", "search topic: general or news")
	searchCmd.Flags().Bool("answer", true, "ask the provider for a short answer")
	searchCmd.Flags().Bool("json", false, "output the response as JSON")
	searchCmd.Flags().String("save", "", "save request and results to a YAML file")
	searchCmd.Flags().String("replay", "", "re-run the request stored in a saved search file")

	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd, map[string]string{
		"max-results": "search.max_results",
		"depth":       "search.search_depth",
		"topic":       "search.topic",
	})
	if err != nil {
		return err
	}

	req, err := searchRequest(cmd, args)
	if err != nil {
		return err
	}

	untrusted, _ := cmd.Flags().GetBool("untrusted")
	if untrusted {
		path, _ := cmd.Flags().GetString("domains")
		if path == "" {
			path = cfg.Enrich.DomainsFile
		}
		if path == "" {
			return fmt.Errorf("--untrusted requires --domains")
		}
		list, err := domains.ReadList(path)
		if err != nil {
			return err
		}
		if len(list) == 0 {
			return fmt.Errorf("domain list %s is empty", path)
		}
		if len(list) > enrich.DefaultDomainChunkSize {
			logging.Log.WithField("domains", len(list)).Warnf("restricting search to the first %d domains", enrich.DefaultDomainChunkSize)
			list = list[:enrich.DefaultDomainChunkSize]
		}
		req.IncludeDomains = list
	}

	searcher, err := newSearcher(cmd, cfg.Search)
	if err != nil {
		return err
	}

	resp, err := searcher.Search(context.Background(), req)
	if err != nil {
		return err
	}

	if path, _ := cmd.Flags().GetString("save"); path != "" {
		if err := search.WriteSearchFile(path, searcher.Name(), req, resp); err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "Saved %d results to %s\n", len(resp.Results), path)
	}

	if jsonOutput, _ := cmd.Flags().GetBool("json"); jsonOutput {
		return search.FormatJSON(resp, os.Stdout)
	}
	search.FormatTable(resp, os.Stdout)
	return nil
}

// searchRequest builds the request from --replay or the positional query.
func searchRequest(cmd *cobra.Command, args []string) (search.Request, error) {
	if replay, _ := cmd.Flags().GetString("replay"); replay != "" {
		sf, err := search.ReadSearchFile(replay)
		if err != nil {
			return search.Request{}, err
		}
		return sf.Request.ToRequest(), nil
	}

	query := strings.TrimSpace(strings.Join(args, " "))
	if query == "" {
		return search.Request{}, fmt.Errorf("provide a query or --replay")
	}
	answer, _ := cmd.Flags().GetBool("answer")
	return search.Request{Query: query, IncludeAnswer: answer}, nil
}
