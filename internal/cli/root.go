// Package cli implements financectl, the operator command line for bulk
// loading historical spreadsheets and inspecting stored entries.
package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/JonMunkholm/dailyfinance/internal/config"
	"github.com/JonMunkholm/dailyfinance/internal/core"
	"github.com/JonMunkholm/dailyfinance/internal/entry"
	"github.com/JonMunkholm/dailyfinance/internal/logging"
)

// StoreOpener opens the entry store for one command run.
type StoreOpener func(ctx context.Context, cfg *config.Config) (entry.Store, func(), error)

// app is the state shared by subcommands once the root has run.
type app struct {
	open    StoreOpener
	cfg     *config.Config
	store   entry.Store
	service *core.Service
	close   func()
}

// NewRootCommand creates the root CLI command backed by the configured
// store. The returned func releases the store once the command has run.
func NewRootCommand() (*cobra.Command, func()) {
	return newRootCommand(entry.Open)
}

func newRootCommand(open StoreOpener) (*cobra.Command, func()) {
	a := &app{open: open}

	rootCmd := &cobra.Command{
		Use:   "financectl",
		Short: "Import and inspect daily finance entries",
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd.Context(), cmd)
		},
	}

	rootCmd.AddCommand(
		newSheetsCommand(a),
		newImportCommand(a),
		newListCommand(a),
		newReportCommand(a),
		newHistoryCommand(a),
	)

	return rootCmd, a.release
}

func (a *app) release() {
	if a.close != nil {
		a.close()
		a.close = nil
	}
}

// setup loads configuration, logs to stderr and opens the store.
func (a *app) setup(ctx context.Context, cmd *cobra.Command) error {
	// .env is optional
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	a.cfg = cfg

	slog.SetDefault(logging.New(cmd.ErrOrStderr(), cfg.Logging.Level, cfg.Logging.Format))
	cmd.SetContext(logging.NewContext(ctx, "command", cmd.Name()))

	store, closeStore, err := a.open(ctx, cfg)
	if err != nil {
		return fmt.Errorf("open %s store: %w", cfg.Store.Driver, err)
	}
	a.store = store
	a.close = closeStore
	a.service = core.NewService(store, cfg)
	return nil
}

// readFile reads a workbook from disk, refusing files over the upload limit.
func (a *app) readFile(path string) ([]byte, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if limit := a.cfg.Upload.MaxFileSize; limit > 0 && info.Size() > limit {
		return nil, fmt.Errorf("%w: %s is %d bytes, limit is %d",
			core.ErrFileTooLarge, path, info.Size(), limit)
	}
	return os.ReadFile(path)
}

// userError turns a service error into the message an operator sees.
func userError(err error) error {
	if err == nil {
		return nil
	}
	if !core.IsUserFacing(err) {
		return err
	}
	slog.Debug("command failed", "error", err)
	return errors.New(core.FormatUserError(err))
}
