// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the evidence-engine CLI.
package main

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/evidence-engine/internal/domains"
	"github.com/pdiddy/evidence-engine/internal/logging"
	"github.com/pdiddy/evidence-engine/internal/search"
	"github.com/pdiddy/evidence-engine/internal/secrets"
	"github.com/pdiddy/evidence-engine/pkg/types"
)

// version is set at build time via ldflags.
var version = "dev"

const defaultUserAgent = "evidence-engine/0.1"

// loadedSecrets holds API keys loaded from the secrets directory at startup.
var loadedSecrets map[string]string

var rootCmd = &cobra.Command{
	Use:   "evidence-engine",
	Short: "Collect supporting and opposing web evidence for claims",
	Long: `evidence-engine enriches a dataset of claims with web sources. For every
claim it searches the open web for supporting evidence and a list of
low-credibility domains for opposing evidence, and appends the result to a
JSONL file that can be resumed after interruption.

Stages are subcommands: domains builds the low-credibility list, search runs
ad hoc queries, enrich processes a claims file, and index loads the output
into a searchable SQLite database.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		level, _ := cmd.Flags().GetString("log-level")
		logFile, _ := cmd.Flags().GetString("log-file")
		if err := logging.Init(level, logFile); err != nil {
			return err
		}

		dir, _ := cmd.Flags().GetString("secrets-dir")
		s, err := secrets.Load(dir)
		if err != nil {
			return err
		}
		loadedSecrets = s
		if len(s) > 0 {
			keys := make([]string, 0, len(s))
			for k := range s {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			logging.Log.WithField("keys", keys).Debug("loaded secrets")
		}
		return nil
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	pf := rootCmd.PersistentFlags()
	pf.String("config", "", "config file (default: ./evidence-engine.yaml or ~/.config/evidence-engine/evidence-engine.yaml)")
	pf.String("log-level", "info", "log level: debug, info, warn, error")
	pf.String("log-file", "", "also append log entries to this file")
	pf.String("secrets-dir", ".secrets", "directory of API key files")
	pf.String("api-key", "", "search API key (overrides secrets and TAVILY_API_KEY)")

	setDefaults(viper.GetViper())
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("evidence-engine")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "evidence-engine"))
		}
	}

	viper.SetEnvPrefix("EVIDENCE_ENGINE")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// setDefaults registers every config key so environment variables and
// Unmarshal see the full key set.
func setDefaults(v *viper.Viper) {
	v.SetDefault("search.timeout", 30*time.Second)
	v.SetDefault("search.user_agent", defaultUserAgent)
	v.SetDefault("search.search_depth", "basic")
	v.SetDefault("search.topic", "general")
	v.SetDefault("search.max_results", 20)
	v.SetDefault("search.include_raw_content", false)
	v.SetDefault("search.max_retries", 5)
	v.SetDefault("search.requests_per_minute", 0)
	v.SetDefault("search.burst", 1)
	v.SetDefault("search.breaker_max_failures", 5)
	v.SetDefault("search.breaker_timeout", 30*time.Second)

	v.SetDefault("domains.newsguard_csv", "")
	v.SetDefault("domains.min_score", domains.DefaultFilter().MinScore)
	v.SetDefault("domains.max_score", domains.DefaultFilter().MaxScore)
	v.SetDefault("domains.country", "")
	v.SetDefault("domains.language", "")
	v.SetDefault("domains.include_wiki", true)
	v.SetDefault("domains.extra_files", []string{})

	v.SetDefault("enrich.input", "data/claims.json")
	v.SetDefault("enrich.output", "output/enriched.jsonl")
	v.SetDefault("enrich.claim_field", "claim")
	v.SetDefault("enrich.id_field", "id")
	v.SetDefault("enrich.domains_file", "")
	v.SetDefault("enrich.bucket_size", 5)
	v.SetDefault("enrich.trusted_templates", []string{})
	v.SetDefault("enrich.untrusted_templates", []string{})
	v.SetDefault("enrich.exclude_untrusted", false)
	v.SetDefault("enrich.domain_chunk_size", 300)

	v.SetDefault("index.index_dir", "index")
	v.SetDefault("index.claim_field", "")
	v.SetDefault("index.max_results", 20)
}

// loadConfig binds the named command flags onto config keys and decodes
// the merged configuration. Flags only override when set explicitly.
func loadConfig(cmd *cobra.Command, bindings map[string]string) (types.PipelineConfig, error) {
	for flag, key := range bindings {
		f := cmd.Flags().Lookup(flag)
		if f == nil {
			return types.PipelineConfig{}, fmt.Errorf("unknown flag %q bound to %s", flag, key)
		}
		if err := viper.BindPFlag(key, f); err != nil {
			return types.PipelineConfig{}, fmt.Errorf("binding --%s: %w", flag, err)
		}
	}
	return decodeConfig(viper.GetViper())
}

func decodeConfig(v *viper.Viper) (types.PipelineConfig, error) {
	var cfg types.PipelineConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("decoding config: %w", err)
	}
	return cfg, nil
}

// newSearcher builds the guarded Tavily searcher from cfg and the
// resolved API key.
func newSearcher(cmd *cobra.Command, cfg types.SearchConfig) (*search.Guarded, error) {
	explicit, _ := cmd.Flags().GetString("api-key")
	key := secrets.Resolve(loadedSecrets, secrets.TavilyAPIKey, explicit)

	client := &http.Client{Timeout: cfg.Timeout}
	tavily, err := search.NewTavily(key, client, cfg)
	if err != nil {
		return nil, err
	}
	return search.NewGuarded(tavily, search.GuardConfigFrom(cfg), logging.Log), nil
}

func main() {
	err := rootCmd.Execute()
	if cerr := logging.Close(); cerr != nil {
		fmt.Fprintln(os.Stderr, "closing log file:", cerr)
	}
	if err != nil {
		os.Exit(1)
	}
}
