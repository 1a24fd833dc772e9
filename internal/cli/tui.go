package cli

import (
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/profiler/internal/endpoint"
	"github.com/JonMunkholm/profiler/internal/export"
	"github.com/JonMunkholm/profiler/internal/history"
	"github.com/JonMunkholm/profiler/internal/logging"
	"github.com/JonMunkholm/profiler/internal/session"
	"github.com/JonMunkholm/profiler/internal/tui"
)

func newTUICmd(a *app) *cobra.Command {
	var (
		outDir   string
		startDir string
		logFile  string
	)

	cmd := &cobra.Command{
		Use:   "tui",
		Short: "Interactive terminal interface",
		Long: `Pick the PDF and CSV with file browsers, upload them and save the
returned fields as CSV, all from the terminal.

Logs go to --log-file while the interface owns the screen.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
			if err != nil {
				return err
			}
			defer f.Close()
			logging.SetupWriter(f, a.cfg.Logging.Level, a.cfg.Logging.Format)

			hist, closeHistory, err := history.Open(ctx, a.cfg.History)
			if err != nil {
				return err
			}
			defer closeHistory()

			sess := session.New("", &session.Deps{
				Uploader: endpoint.New(a.cfg.Endpoint),
				History:  hist,
				Timeout:  a.cfg.Endpoint.Timeout,
			})

			absOut, err := filepath.Abs(outDir)
			if err != nil {
				return err
			}
			slog.Info("tui started", "endpoint", a.cfg.Endpoint.URL, "out", absOut)

			return tui.Run(ctx, tui.Options{
				Session:     sess,
				Downloader:  export.DirDownloader{Dir: absOut},
				MaxFileSize: a.cfg.Upload.MaxFileSize,
				StartDir:    startDir,
			})
		},
	}

	cmd.Flags().StringVarP(&outDir, "out", "o", ".", "Directory exported CSV files are saved to")
	cmd.Flags().StringVar(&startDir, "dir", "", "Directory the file pickers open in (default: working directory)")
	cmd.Flags().StringVar(&logFile, "log-file", "profiler-tui.log", "File to write logs to")

	return cmd
}
