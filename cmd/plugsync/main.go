package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/schaermu/plugsync/internal/config"
	"github.com/schaermu/plugsync/internal/console"
	"github.com/schaermu/plugsync/internal/lock"
	"github.com/schaermu/plugsync/internal/plugin"
	plugsync "github.com/schaermu/plugsync/internal/sync"
)

var (
	// Set by goreleaser
	version = "dev"
	commit  = "none"
	date    = "unknown"

	// Global flags
	cfgFile   string
	logLevel  string
	logFormat string
	noColor   bool
	vaultPath string
	pluginID  string
	sourceDir string
	debounce  time.Duration
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		console.New(os.Stdout, noColor).Fatal(err, hintFor(err))
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "plugsync",
	Short: "Mirror a plugin's build output into an Obsidian vault",
	Long: `plugsync copies a plugin's built artifacts (main.js, styles.css, manifest.json)
into <vault>/.obsidian/plugins/<plugin-id> and keeps them up to date while you
develop, so Obsidian always loads the latest build.

Without a subcommand it performs a full sync and then watches the source
directory until interrupted.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runWatch,
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Sync once, then keep syncing on every change (default)",
	Long: `Watch performs a full sync of every allow-listed artifact and then subscribes
to filesystem changes below the source directory. Each created or modified
allow-listed file is copied into the plugin directory. Deletions are not
propagated. Press Ctrl+C to stop.`,
	RunE: runWatch,
}

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Perform a one-time full sync and exit",
	Long: `Sync copies every allow-listed artifact present in the source directory into
the plugin directory once. It exits non-zero if any item failed to copy.`,
	RunE: runSync,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("plugsync %s\n", version)
		fmt.Printf("  commit: %s\n", commit)
		fmt.Printf("  built:  %s\n", date)
	},
}

func init() {
	bindFlags(rootCmd.PersistentFlags())

	// Add commands
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(syncCmd)
	rootCmd.AddCommand(versionCmd)
}

// bindFlags registers the global flags on flags
func bindFlags(flags *pflag.FlagSet) {
	flags.StringVar(&cfgFile, "config", "", "optional config file (YAML)")
	flags.StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	flags.StringVar(&logFormat, "log-format", "text", "log format (text, json)")
	flags.BoolVar(&noColor, "no-color", false, "disable colored output")
	flags.StringVarP(&vaultPath, "vault", "v", "", "path to the Obsidian vault (required)")
	flags.StringVarP(&pluginID, "plugin-id", "p", config.DefaultPluginID, "plugin ID")
	flags.StringVarP(&sourceDir, "source", "s", ".", "path to the plugin source")
	flags.DurationVar(&debounce, "debounce", 0, "coalesce bursts of changes to the same file (e.g. 100ms)")
}

func runWatch(cmd *cobra.Command, args []string) error {
	ctx, cancel := setupSignalHandler()
	defer cancel()

	s, err := startSession(cmd)
	if err != nil {
		return err
	}
	defer s.close()

	agent, err := plugsync.NewAgent(s.cfg, s.printer, s.logger)
	if err != nil {
		return err
	}

	if err := agent.Watch(ctx); err != nil {
		return err
	}

	s.printer.Stopped()
	return nil
}

func runSync(cmd *cobra.Command, args []string) error {
	s, err := startSession(cmd)
	if err != nil {
		return err
	}
	defer s.close()

	agent, err := plugsync.NewAgent(s.cfg, s.printer, s.logger)
	if err != nil {
		return err
	}

	if failed := agent.InitialSummary().Failed; failed > 0 {
		return fmt.Errorf("%d item(s) failed to sync", failed)
	}
	return nil
}

// session holds everything a command needs once startup checks have passed
type session struct {
	cfg     *config.Config
	logger  *slog.Logger
	printer *console.Printer
	lock    *lock.Lock
}

// startSession loads the configuration, checks the startup paths, prints the
// banner and takes the per-destination lock.
func startSession(cmd *cobra.Command) (*session, error) {
	logger := setupLogger()
	printer := console.New(os.Stdout, noColor)
	printer.Title()

	cfg, err := loadConfig(cmd, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if err := cfg.CheckPaths(); err != nil {
		return nil, err
	}

	banner := console.Banner{
		PluginID:    cfg.PluginID,
		Source:      cfg.Source,
		Destination: cfg.PluginDir(),
	}
	manifest, manifestErr := plugin.ReadManifest(cfg.Source)
	if manifestErr == nil {
		banner.Version = manifest.Version
	}
	printer.Banner(banner)

	switch {
	case manifestErr == nil:
		if manifest.ID != "" && manifest.ID != cfg.PluginID {
			printer.Warn("manifest id %q does not match plugin id %q", manifest.ID, cfg.PluginID)
		}
	case !errors.Is(manifestErr, os.ErrNotExist):
		printer.Warn("could not read %s: %v", plugin.ManifestFile, manifestErr)
	}

	lk := lock.New(cfg.PluginDir())
	if err := lk.Acquire(); err != nil {
		return nil, err
	}
	logger.Debug("lock acquired", "path", lk.Path())

	return &session{cfg: cfg, logger: logger, printer: printer, lock: lk}, nil
}

func (s *session) close() {
	if err := s.lock.Release(); err != nil {
		s.logger.Warn("failed to release lock", "error", err)
	}
}

func setupLogger() *slog.Logger {
	// Parse log level
	var level slog.Level
	switch logLevel {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	// Status lines own stdout, so diagnostics go to stderr
	var handler slog.Handler
	opts := &slog.HandlerOptions{Level: level}

	if logFormat == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}

	return slog.New(handler)
}

// loadConfig builds the configuration from the optional config file and the
// flags. Flags set on the command line win over the file.
func loadConfig(cmd *cobra.Command, logger *slog.Logger) (*config.Config, error) {
	cfg := config.Default()
	if cfgFile != "" {
		logger.Info("loading configuration", "path", cfgFile)

		loaded, err := config.Load(cfgFile)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	flags := cmd.Flags()
	if flags.Changed("vault") || cfg.Vault == "" {
		cfg.Vault = vaultPath
	}
	if flags.Changed("plugin-id") {
		cfg.PluginID = pluginID
	}
	if flags.Changed("source") {
		cfg.Source = sourceDir
	}
	if flags.Changed("debounce") {
		cfg.Watch.Debounce = debounce
	}

	if err := cfg.Resolve(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	logger.Debug("configuration loaded",
		"vault", cfg.Vault,
		"plugin_id", cfg.PluginID,
		"source", cfg.Source,
		"files", cfg.Sync.Files,
		"folders", cfg.Sync.Folders)

	return cfg, nil
}

// hintFor returns a suggested fix for well-known startup errors
func hintFor(err error) string {
	var pathErr *config.PathError
	if errors.As(err, &pathErr) && pathErr.Kind == config.PathArtifact {
		return "npm run build"
	}
	return ""
}

func setupSignalHandler() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	go func() {
		select {
		case <-sigCh:
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(sigCh)
	}()

	return ctx, cancel
}
