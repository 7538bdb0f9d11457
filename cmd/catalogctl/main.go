// Command catalogctl merges and inspects catalog datasets offline.
//
// Usage:
//
//	catalogctl merge --main programs.json --extended cchgeu_programs.json
//	catalogctl list --extended cchgeu_programs.json --level master --sort price-asc
//	catalogctl compare --main programs.json --ids 3,7,12
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/unicatalog/backend/internal/domain"
	"github.com/unicatalog/backend/internal/infrastructure/source"
	"github.com/unicatalog/backend/internal/logging"
	"github.com/unicatalog/backend/internal/usecase"
)

// Global flags
var (
	mainPath     string
	extendedPath string
	logLevel     string
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "catalogctl",
		Short:        "Merge and query academic program datasets",
		SilenceUsage: true,
	}
	root.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		// Logs go to stderr so stdout stays valid JSON
		logger, _ := logging.New(cmd.ErrOrStderr(), logging.Options{Level: logLevel})
		slog.SetDefault(logger)
	}

	root.PersistentFlags().StringVar(&mainPath, "main", "", "main dataset (file path or URL)")
	root.PersistentFlags().StringVar(&extendedPath, "extended", "", "extended dataset (file path or URL)")
	root.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "log level: debug, info, warn, error")

	root.AddCommand(newMergeCmd(), newListCmd(), newCompareCmd())
	return root
}

// loadCatalog merges the configured datasets without any cache
func loadCatalog(ctx context.Context) (*usecase.CatalogService, error) {
	if mainPath == "" && extendedPath == "" {
		return nil, fmt.Errorf("%w: at least one of --main or --extended is required", domain.ErrInvalidRequest)
	}

	client := source.NewClient(source.Config{
		Main:     mainPath,
		Extended: extendedPath,
	})
	catalog := usecase.NewCatalogService(client, nil, nil, usecase.CatalogServiceConfig{})
	if err := catalog.Init(ctx); err != nil {
		return nil, err
	}
	return catalog, nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
