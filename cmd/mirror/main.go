package main

import (
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/use-agent/mirror/api/handler"
	"github.com/use-agent/mirror/config"
)

// Version is set at build time with -ldflags "-X main.Version=...".
var Version = "dev"

var (
	configFile string
	logLevel   string

	cfg       *config.Config
	logCloser io.Closer
)

var rootCmd = &cobra.Command{
	Use:   "mirror",
	Short: "Platform-aware single page crawl service",
	Long: `mirror fetches one page per URL in an isolated headless browser session and
extracts title, author, body, media and publish time with rules for Zhihu,
Xiaohongshu, X/Twitter and WeChat articles, falling back to a generic extractor.

Run without a subcommand to start the HTTP server.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: false,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if configFile != "" {
			if err := config.LoadFile(configFile); err != nil {
				return err
			}
		}
		cfg = config.Load()
		if logLevel != "" {
			cfg.Log.Level = logLevel
		}

		// crawl prints JSON on stdout, so its logs go to stderr.
		var console io.Writer = os.Stdout
		if cmd.Name() == crawlCmd.Name() {
			console = os.Stderr
		}
		logCloser = initLogger(cfg.Log, console)
		handler.Version = Version
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logCloser != nil {
			logCloser.Close()
		}
	},
	RunE: runServe,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "YAML file of MIRROR_* settings (environment wins)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "debug, info, warn or error (overrides MIRROR_LOG_LEVEL)")
	rootCmd.AddCommand(serveCmd, crawlCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
