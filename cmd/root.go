// Package cmd is the command line of the CMS server.
package cmd

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/lmittmann/tint"
	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/alimasry/go-collab-cms/config"
)

var (
	cfg *config.Config

	addr       string
	backend    string
	sqlitePath string
	logLevel   string
	logFormat  string

	schemaFile      string
	collectionsFile string
)

func init() {
	rootCmd.PersistentFlags().StringVar(&addr, "addr", "", "Listen address (overrides ADDR)")
	rootCmd.PersistentFlags().StringVar(&backend, "store", "", "Store backend: memory, sqlite or firestore (overrides STORE_BACKEND)")
	rootCmd.PersistentFlags().StringVar(&sqlitePath, "sqlite-path", "", "SQLite database file (overrides SQLITE_PATH)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "debug, info, warn or error (overrides LOG_LEVEL)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "text or json (overrides LOG_FORMAT)")
	rootCmd.PersistentFlags().StringVar(&schemaFile, "schema", "", "YAML editor schema for new pages and posts (overrides SCHEMA_FILE)")
	rootCmd.PersistentFlags().StringVar(&collectionsFile, "collections", "", "YAML file of extra collections for new projects (overrides COLLECTIONS_FILE)")
}

var rootCmd = &cobra.Command{
	Use:           "collab-cms",
	Short:         "Collaborative content store for sites and themes",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// A missing .env is fine.
		_ = godotenv.Load()

		c, err := config.Load()
		if err != nil {
			return err
		}
		flags := cmd.Flags()
		override := func(name string, dst *string, v string) {
			if flags.Changed(name) {
				*dst = v
			}
		}
		override("addr", &c.Addr, addr)
		override("store", &c.StoreBackend, backend)
		override("sqlite-path", &c.SQLitePath, sqlitePath)
		override("log-level", &c.LogLevel, logLevel)
		override("log-format", &c.LogFormat, logFormat)
		override("schema", &c.SchemaFile, schemaFile)
		override("collections", &c.CollectionsFile, collectionsFile)
		if err := c.Validate(); err != nil {
			return fmt.Errorf("config: %w", err)
		}
		cfg = c
		slog.SetDefault(newLogger(os.Stderr, c))
		return nil
	},
}

// newLogger returns a JSON logger when asked for one and a tinted text
// logger otherwise. Colour is only used on terminals.
func newLogger(w *os.File, c *config.Config) *slog.Logger {
	if c.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: c.Level()}))
	}
	var out io.Writer = colorable.NewColorable(w)
	return slog.New(tint.NewHandler(out, &tint.Options{
		Level:      c.Level(),
		TimeFormat: "15:04:05.000",
		NoColor:    !isatty.IsTerminal(w.Fd()),
	}))
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
