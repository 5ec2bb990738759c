package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"rbxport/src/features/config"
	"rbxport/src/features/export"
	"rbxport/src/features/logging"
	"rbxport/src/infra/database"
	"rbxport/src/infra/tag"
	"rbxport/src/infra/watcher"
)

var exportFlags struct {
	dbPath     string
	output     string
	force      bool
	roman      bool
	bpm        bool
	orderBy    string
	playlists  []string
	bundleDir  string
	requireAll bool
	watch      bool
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the Rekordbox database to an XML file",
	Long: `Export creates an XML file in the same format as the Rekordbox XML
export feature. If no database path is provided, the default Rekordbox
install location is used.`,
	RunE: runExport,
}

func init() {
	f := exportCmd.Flags()
	f.StringVar(&exportFlags.dbPath, "db", "", "path to the Rekordbox database (default: auto-detect)")
	f.StringVarP(&exportFlags.output, "output", "o", "", "path of the XML file to write")
	f.BoolVarP(&exportFlags.force, "force", "f", false, "overwrite the output file if it exists")
	f.BoolVar(&exportFlags.roman, "roman", false, "romanize non-ASCII titles, artists, albums and playlist names")
	f.BoolVar(&exportFlags.bpm, "bpm", false, "prefix track titles with their integer BPM")
	f.StringVar(&exportFlags.orderBy, "orderby", "", "playlist entry ordering (bpm)")
	f.StringArrayVarP(&exportFlags.playlists, "playlist", "p", nil, "playlist to export, by id, name or full path (repeatable, comma-separable)")
	f.StringVar(&exportFlags.bundleDir, "bundle", "", "copy referenced audio files into this directory and point the XML at the copies")
	f.BoolVar(&exportFlags.requireAll, "require-all", false, "fail the export if any bundle copy fails")
	f.BoolVarP(&exportFlags.watch, "watch", "w", false, "keep running and re-export when the database changes")
	rootCmd.AddCommand(exportCmd)
}

func runExport(cmd *cobra.Command, args []string) error {
	cfgManager, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger := logging.SetupLogger(cfgManager)
	slog.SetDefault(logger)

	cfg := cfgManager.Get()
	applyFlagOverrides(cmd, cfg)

	if cfg.Export.Output == "" {
		return fmt.Errorf("no output path: set --output or export.output in %s", configPath)
	}

	dbPath := cfg.Database.Path
	if dbPath == "" {
		dbPath, err = findDefaultDatabase()
		if err != nil {
			return err
		}
		slog.Info("Auto-detected Rekordbox database", "path", dbPath)
	}

	lib, err := database.NewRekordboxLibrary(dbPath)
	if err != nil {
		return fmt.Errorf("failed to open Rekordbox database: %w", err)
	}
	defer lib.Close()

	managedPrefix := cfg.Export.ManagedPrefix
	if managedPrefix == "" {
		managedPrefix = export.DeriveManagedPrefix(dbPath)
	}

	svc := export.NewService(lib, tag.NewWriter(), logProgress)
	opts := export.Options{
		Output:           cfg.Export.Output,
		Force:            cfg.Export.Force,
		Romanize:         cfg.Export.Romanize,
		BpmPrefix:        cfg.Export.BpmPrefix,
		OrderBy:          cfg.Export.OrderBy,
		Playlists:        splitSpecs(cfg.Export.Playlists),
		BundleDir:        cfg.Bundle.Path,
		BundleRequireAll: cfg.Bundle.RequireAll,
		ManagedPrefix:    managedPrefix,
	}

	ctx := cmd.Context()
	if err := svc.Export(ctx, opts); err != nil {
		return fmt.Errorf("export failed: %w", err)
	}

	if !exportFlags.watch {
		return nil
	}

	// Re-exports always overwrite the file the first run produced.
	opts.Force = true
	return watchAndReexport(ctx, svc, opts, dbPath)
}

// watchAndReexport blocks, re-running the export whenever the database
// settles after a change, until interrupted.
func watchAndReexport(ctx context.Context, svc *export.Service, opts export.Options, dbPath string) error {
	w, err := watcher.New(func() {
		if err := svc.Export(ctx, opts); err != nil {
			slog.Error("Re-export failed", "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	if err := w.Start(ctx, dbPath); err != nil {
		return fmt.Errorf("failed to start watcher: %w", err)
	}
	defer w.Stop()

	slog.Info("Watching database for changes. Press Ctrl+C to stop.")
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt)
	select {
	case <-quit:
	case <-ctx.Done():
	}
	return nil
}

// applyFlagOverrides lets flags set on the command line win over the
// config file for this run.
func applyFlagOverrides(cmd *cobra.Command, cfg *config.Config) {
	if cmd.Flags().Changed("db") {
		cfg.Database.Path = exportFlags.dbPath
	}
	if cmd.Flags().Changed("output") {
		cfg.Export.Output = exportFlags.output
	}
	if cmd.Flags().Changed("force") {
		cfg.Export.Force = exportFlags.force
	}
	if cmd.Flags().Changed("roman") {
		cfg.Export.Romanize = exportFlags.roman
	}
	if cmd.Flags().Changed("bpm") {
		cfg.Export.BpmPrefix = exportFlags.bpm
	}
	if cmd.Flags().Changed("orderby") {
		cfg.Export.OrderBy = exportFlags.orderBy
	}
	if cmd.Flags().Changed("playlist") {
		cfg.Export.Playlists = exportFlags.playlists
	}
	if cmd.Flags().Changed("bundle") {
		cfg.Bundle.Path = exportFlags.bundleDir
	}
	if cmd.Flags().Changed("require-all") {
		cfg.Bundle.RequireAll = exportFlags.requireAll
	}
}

// splitSpecs splits comma-separated playlist specs so both repeated flags
// and comma lists work.
func splitSpecs(specs []string) []string {
	var out []string
	for _, s := range specs {
		for _, part := range strings.Split(s, ",") {
			part = strings.TrimSpace(part)
			if part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

// findDefaultDatabase probes the Rekordbox install locations.
func findDefaultDatabase() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to resolve home directory: %w", err)
	}
	candidates := []string{
		filepath.Join(home, "Library", "Pioneer", "rekordbox", "master.db"),
	}
	if appData := os.Getenv("APPDATA"); appData != "" {
		candidates = append(candidates, filepath.Join(appData, "Pioneer", "rekordbox", "master.db"))
	}
	candidates = append(candidates, filepath.Join(home, ".Pioneer", "rekordbox", "master.db"))

	for _, c := range candidates {
		if _, err := os.Stat(c); err == nil {
			return c, nil
		}
	}
	return "", fmt.Errorf("no Rekordbox database found, specify one with --db")
}

// logProgress is the default progress sink: periodic structured logs.
func logProgress(stage string, done, total int) {
	if total == 0 {
		return
	}
	if done == total || done%100 == 0 {
		slog.Info("Progress", "stage", stage, "done", done, "total", total)
	}
}
