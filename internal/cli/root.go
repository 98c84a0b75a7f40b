// Package cli implements the doxstrux command line.
package cli

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/poutila/doxstrux-sub002/internal/config"
	"github.com/poutila/doxstrux-sub002/internal/extract"
	"github.com/poutila/doxstrux-sub002/internal/pipeline"
	"github.com/poutila/doxstrux-sub002/internal/timeout"
)

// app carries per-invocation state shared by subcommands.
type app struct {
	v       *viper.Viper
	cfgFile string
}

// NewRootCommand builds the command tree with its own viper instance.
func NewRootCommand() *cobra.Command {
	a := &app{v: viper.New()}

	root := &cobra.Command{
		Use:   "doxstrux",
		Short: "Extract structure from documents",
		Long: `doxstrux tokenizes documents (Markdown, HTML, text, CSV, PDF, DOCX) and
runs a fixed set of collectors over the token stream in a single pass:
headings, links, images, code blocks, tables, HTML, stats and chunks.

Settings come from flags, DOXSTRUX_* environment variables, or a
.doxstrux.yaml file in the working or home directory.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.initConfig()
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.cfgFile, "config", "", "config file (default is ./.doxstrux.yaml or $HOME/.doxstrux.yaml)")
	pf.BoolP("verbose", "v", false, "verbose logging to stderr")
	pf.Int("max-tokens", 500000, "reject documents with more tokens (0 disables)")
	pf.Int64("max-content-bytes", 10<<20, "reject documents with more bytes of text (0 disables)")
	pf.Duration("collector-timeout", 2*time.Second, "per-callback collector budget (0 disables)")
	pf.String("timeout-mode", "auto", "collector timeout guard: auto, preemptive or cooperative")
	pf.Bool("strict", false, "abort on the first collector failure")
	pf.Int("chunk-size", 1500, "target chunk size in estimated tokens")
	pf.Int("chunk-overlap", 200, "chunk overlap in estimated tokens")
	pf.Bool("pdf-fallback", true, "use pdftotext when the native PDF reader fails")
	pf.StringSlice("collectors", nil, "collectors to run (default all)")

	for _, name := range []string{
		"verbose", "max-tokens", "max-content-bytes", "collector-timeout", "timeout-mode",
		"strict", "chunk-size", "chunk-overlap", "pdf-fallback", "collectors",
	} {
		a.v.BindPFlag(name, pf.Lookup(name))
	}

	root.AddCommand(newExtractCommand(a), newWatchCommand(a), newSectionsCommand(a))
	return root
}

// Execute runs the root command. This is called by main.main().
func Execute() {
	if err := NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// initConfig reads in config file and ENV variables if set.
func (a *app) initConfig() error {
	if a.cfgFile != "" {
		a.v.SetConfigFile(a.cfgFile)
	} else {
		a.v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			a.v.AddConfigPath(home)
		}
		a.v.SetConfigType("yaml")
		a.v.SetConfigName(".doxstrux")
	}

	a.v.SetEnvPrefix("DOXSTRUX")
	a.v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	a.v.AutomaticEnv()

	if err := a.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) || a.cfgFile != "" {
			return fmt.Errorf("failed to read config file: %w", err)
		}
	}
	return nil
}

// settings maps the bound viper keys onto service configuration.
func (a *app) settings() config.Config {
	return config.Config{
		MaxTokens:            a.v.GetInt("max-tokens"),
		MaxContentBytes:      a.v.GetInt64("max-content-bytes"),
		CollectorTimeout:     a.v.GetDuration("collector-timeout"),
		TimeoutMode:          timeoutMode(a.v.GetString("timeout-mode")),
		StrictCollectors:     a.v.GetBool("strict"),
		ChunkSize:            a.v.GetInt("chunk-size"),
		ChunkOverlap:         a.v.GetInt("chunk-overlap"),
		PDFFallbackPdftotext: a.v.GetBool("pdf-fallback"),
	}
}

func (a *app) collectorNames() []string {
	return a.v.GetStringSlice("collectors")
}

func (a *app) logger(w io.Writer) *slog.Logger {
	level := slog.LevelWarn
	if a.v.GetBool("verbose") {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level}))
}

// extractor builds an uncached extractor; the CLI never sees a document twice
// except in watch mode, where a changed file must be re-extracted.
func (a *app) extractor(log *slog.Logger) (*pipeline.Extractor, error) {
	cfg := a.settings()
	if cfg.ChunkOverlap >= cfg.ChunkSize {
		return nil, fmt.Errorf("chunk-overlap (%d) must be smaller than chunk-size (%d)", cfg.ChunkOverlap, cfg.ChunkSize)
	}
	opts, err := pipeline.OptionsFromConfig(cfg, log)
	if err != nil {
		return nil, err
	}
	return pipeline.NewExtractor(opts, extract.NewCollectorStats(0), log)
}

func timeoutMode(s string) timeout.Mode {
	return timeout.Mode(strings.ToLower(strings.TrimSpace(s)))
}
