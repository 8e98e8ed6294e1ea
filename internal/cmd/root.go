package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/yuzeguitarist/text2qr/internal/app"
	"github.com/yuzeguitarist/text2qr/internal/config"
	"github.com/yuzeguitarist/text2qr/internal/logger"
	"github.com/yuzeguitarist/text2qr/internal/web"
)

func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           app.Name,
		Short:         "Text to QR code - web form and command line generator",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().String("config", "", "path to a YAML config file")

	root.AddCommand(newServeCmd())
	root.AddCommand(newEncodeCmd())
	root.AddCommand(newOTPAuthCmd())
	root.AddCommand(newVersionCmd())
	return root
}

func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	return config.Load(path)
}

func newLogger(cfg *config.Config) *slog.Logger {
	opts := []logger.Option{
		logger.WithDebug(cfg.IsDebug()),
		logger.WithAttr(slog.String("service", app.Name)),
		logger.WithContextValue("request_id", web.RequestIDKey),
	}
	if cfg.LogFormat != "" {
		opts = append(opts, logger.WithFormat(logger.Format(cfg.LogFormat)))
	}
	return logger.New(opts...)
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), app.Name, app.Version)
		},
	}
}
