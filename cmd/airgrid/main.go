package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"airgrid/cmd/airgrid/ui"
	"airgrid/internal/config"
	"airgrid/internal/logging"
	"airgrid/internal/store"
	"airgrid/internal/ux"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	// Global flags
	verbose   bool
	workspace string
	timeout   time.Duration

	// Logger
	logger *zap.Logger
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "airgrid",
	Short: "airgrid - spreadsheet-style tables in the terminal",
	Long: `airgrid keeps workspaces, bases and tables of typed columns in a local
database and edits them in a keyboard driven grid.

Run without arguments to open the grid for the current navigation
(see "airgrid use"), or the picker when nothing is selected.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg := zap.NewProductionConfig()
		if verbose {
			cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = cfg.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}

		if err := logging.Initialize(resolveWorkspace()); err != nil {
			logger.Warn("file logging disabled", zap.Error(err))
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logging.CloseAll()
		if logger != nil {
			_ = logger.Sync()
		}
	},
	RunE: runInteractive,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVarP(&workspace, "workspace", "w", "", "Workspace directory (default: current)")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 30*time.Second, "Operation timeout")

	rootCmd.AddCommand(workspaceCmd)
	rootCmd.AddCommand(baseCmd)
	rootCmd.AddCommand(tableCmd)
	rootCmd.AddCommand(viewCmd)
	rootCmd.AddCommand(filterCmd)
	rootCmd.AddCommand(sortCmd)
	rootCmd.AddCommand(columnCmd)
	rootCmd.AddCommand(rowCmd)
	rootCmd.AddCommand(cellCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(importCmd)
	rootCmd.AddCommand(useCmd)
	rootCmd.AddCommand(logoutCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(configCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func resolveWorkspace() string {
	ws := workspace
	if ws == "" {
		ws, _ = os.Getwd()
	}
	return ws
}

func loadConfig(ws string) (*config.Config, error) {
	cfg, err := config.Load(config.DefaultConfigPath(ws))
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// session bundles what every data command needs: the workspace, its config,
// the open store and the navigation state.
type session struct {
	ws    string
	cfg   *config.Config
	store store.Store
	nav   *ux.Navigator
}

func openSession() (*session, error) {
	ws := resolveWorkspace()
	cfg, err := loadConfig(ws)
	if err != nil {
		return nil, err
	}

	s, err := store.Open(cfg, ws)
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}

	nav := ux.NewNavigator(ws)
	if err := nav.Load(); err != nil {
		logger.Warn("navigation state unreadable, starting empty", zap.Error(err))
	}

	logger.Debug("session opened",
		zap.String("workspace", ws),
		zap.String("driver", cfg.Storage.Driver),
		zap.String("path", cfg.ResolveStoragePath(ws)))
	return &session{ws: ws, cfg: cfg, store: s, nav: nav}, nil
}

func (s *session) Close() {
	if err := s.store.Close(); err != nil {
		logger.Warn("failed to close store", zap.Error(err))
	}
}

func commandContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), timeout)
}

// tableFlag returns the --table value, falling back to the navigation state.
func (s *session) tableFlag(cmd *cobra.Command) (string, error) {
	id, _ := cmd.Flags().GetString("table")
	if id == "" {
		id = s.nav.Get().TableID
	}
	if id == "" {
		return "", fmt.Errorf("no table selected (use --table or \"airgrid use\")")
	}
	return id, nil
}

// baseFlag returns the --base value, falling back to the navigation state.
func (s *session) baseFlag(cmd *cobra.Command) (string, error) {
	id, _ := cmd.Flags().GetString("base")
	if id == "" {
		id = s.nav.Get().BaseID
	}
	if id == "" {
		return "", fmt.Errorf("no base selected (use --base or \"airgrid use\")")
	}
	return id, nil
}

// viewFlag returns the --view value, falling back to the navigation state and
// then to the table's first view.
func (s *session) viewFlag(ctx context.Context, cmd *cobra.Command, tableID string) (string, error) {
	id, _ := cmd.Flags().GetString("view")
	if id != "" {
		return id, nil
	}
	if nav := s.nav.Get(); nav.TableID == tableID && nav.ViewID != "" {
		return nav.ViewID, nil
	}
	views, err := s.store.ListViews(ctx, tableID)
	if err != nil {
		return "", err
	}
	if len(views) == 0 {
		return "", fmt.Errorf("table %s has no views", tableID)
	}
	return views[0].ID, nil
}

func runInteractive(cmd *cobra.Command, args []string) error {
	sess, err := openSession()
	if err != nil {
		return err
	}
	defer sess.Close()

	return ui.Run(context.Background(), ui.Options{
		Store:     sess.store,
		Config:    sess.cfg,
		Navigator: sess.nav,
		Workspace: sess.ws,
	})
}
