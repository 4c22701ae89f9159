// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package domains

import (
	"fmt"
	"io"

	"github.com/pdiddy/evidence-engine/pkg/types"
)

// Build assembles the untrusted domain list described by cfg: NewsGuard
// matches first (lowest score first), then the built-in list, then each
// extra file in order. The result is normalized and duplicate-free.
// Per-source counts are written to w.
func Build(cfg types.DomainsConfig, w io.Writer) ([]string, error) {
	var lists [][]string

	if cfg.NewsGuardCSV != "" {
		f := Filter{
			MinScore: cfg.MinScore,
			MaxScore: cfg.MaxScore,
			Country:  cfg.Country,
			Language: cfg.Language,
		}
		ng, err := LoadNewsGuard(cfg.NewsGuardCSV, f)
		if err != nil {
			return nil, err
		}
		fmt.Fprintf(w, "newsguard: %d domains (score %g-%g)\n", len(ng), f.MinScore, f.MaxScore)
		lists = append(lists, ng)
	}

	if cfg.IncludeWiki {
		wiki := Wiki()
		fmt.Fprintf(w, "built-in:  %d domains\n", len(wiki))
		lists = append(lists, wiki)
	}

	for _, path := range cfg.ExtraFiles {
		extra, err := ReadList(path)
		if err != nil {
			return nil, err
		}
		fmt.Fprintf(w, "%s: %d domains\n", path, len(extra))
		lists = append(lists, extra)
	}

	merged := Merge(lists...)
	fmt.Fprintf(w, "total:     %d unique domains\n", len(merged))
	return merged, nil
}
