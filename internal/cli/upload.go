package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/JonMunkholm/profiler/internal/core"
	"github.com/JonMunkholm/profiler/internal/endpoint"
	"github.com/JonMunkholm/profiler/internal/export"
	"github.com/JonMunkholm/profiler/internal/history"
	"github.com/JonMunkholm/profiler/internal/session"
)

func newUploadCmd(a *app) *cobra.Command {
	var (
		pdfPath    string
		csvPath    string
		outDir     string
		noProgress bool
	)

	cmd := &cobra.Command{
		Use:   "upload --pdf FILE --csv FILE",
		Short: "Upload a PDF and a CSV and print the response",
		Long: `Upload a regulations PDF and a dataset CSV in one request and print the
generated rules and validation response.

With --out, every returned field is also saved as CSV into the directory:
rules_generated.csv and validation_results.csv.`,
		Example: `  profiler upload --pdf regulations.pdf --csv dataset.csv
  profiler upload --pdf regulations.pdf --csv dataset.csv --out ./results`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			maxSize := a.cfg.Upload.MaxFileSize

			pdf, err := readFileHandle(session.KindPDF, pdfPath, maxSize)
			if err != nil {
				return err
			}
			csv, err := readFileHandle(session.KindCSV, csvPath, maxSize)
			if err != nil {
				return err
			}

			hist, closeHistory, err := history.Open(ctx, a.cfg.History)
			if err != nil {
				return err
			}
			defer closeHistory()

			client := endpoint.New(a.cfg.Endpoint)
			var progress *uploadProgress
			if !noProgress && term.IsTerminal(int(os.Stderr.Fd())) {
				progress = &uploadProgress{w: os.Stderr}
				client = client.WithProgress(progress.update)
			}

			sess := session.New("", &session.Deps{
				Uploader: client,
				History:  hist,
				Timeout:  a.cfg.Endpoint.Timeout,
			})
			sess.SelectPDF(pdf)
			sess.SelectCSV(csv)

			uploadErr := sess.Upload(ctx)
			progress.finish()

			result := sess.Snapshot().Result
			if uploadErr != nil {
				if result.Kind == core.ResultFailed {
					if core.IsUserFacing(uploadErr) {
						fmt.Fprintln(cmd.ErrOrStderr(), core.FormatUserError(uploadErr))
					}
					return errors.New(result.Message)
				}
				return uploadErr
			}

			out := cmd.OutOrStdout()
			if err := printResult(out, result); err != nil {
				return err
			}
			if outDir != "" {
				return exportAll(out, result, outDir)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&pdfPath, "pdf", "", "Regulations PDF file (required)")
	cmd.Flags().StringVar(&csvPath, "csv", "", "Dataset CSV file (required)")
	cmd.Flags().StringVarP(&outDir, "out", "o", "", "Directory to save the returned fields as CSV")
	cmd.Flags().BoolVar(&noProgress, "no-progress", false, "Do not show the upload progress bar")
	_ = cmd.MarkFlagRequired("pdf")
	_ = cmd.MarkFlagRequired("csv")

	return cmd
}

func readFileHandle(kind session.FileKind, path string, maxSize int64) (*session.FileHandle, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("read %s file: %w", kind, err)
	}
	if maxSize > 0 && info.Size() > maxSize {
		return nil, fmt.Errorf("file too large: %s is %d bytes, limit is %d", path, info.Size(), maxSize)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s file: %w", kind, err)
	}

	contentType := "application/pdf"
	if kind == session.KindCSV {
		contentType = "text/csv"
	}
	return session.NewFileHandle(kind, info.Name(), contentType, data), nil
}

func printResult(w io.Writer, result core.Result) error {
	panels := result.Panels()
	if len(panels) == 0 {
		_, err := fmt.Fprintln(w, "The service returned no rules or validation response.")
		return err
	}

	var b strings.Builder
	for i, p := range panels {
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "%s:\n%s\n", p.Field.Title, p.Text)
	}
	_, err := io.WriteString(w, b.String())
	return err
}

func exportAll(w io.Writer, result core.Result, dir string) error {
	var exporter export.Exporter
	d := export.DirDownloader{
		Dir: dir,
		Saved: func(path string) {
			fmt.Fprintf(w, "Saved %s\n", path)
		},
	}
	for _, p := range result.Panels() {
		if err := exporter.Export(result, p.Field, d); err != nil {
			return err
		}
	}
	return nil
}

// uploadProgress draws a byte progress bar for the request body. A nil
// *uploadProgress is valid and draws nothing.
type uploadProgress struct {
	w   io.Writer
	bar *progressbar.ProgressBar
}

func (p *uploadProgress) update(sent, total int64) {
	if p.bar == nil {
		p.bar = progressbar.NewOptions64(total,
			progressbar.OptionSetDescription("Uploading"),
			progressbar.OptionSetWriter(p.w),
			progressbar.OptionShowBytes(true),
			progressbar.OptionSetWidth(40),
			progressbar.OptionThrottle(100),
			progressbar.OptionOnCompletion(func() {
				fmt.Fprint(p.w, "\n")
			}),
			progressbar.OptionSetRenderBlankState(true),
		)
	}
	_ = p.bar.Set64(sent)
}

func (p *uploadProgress) finish() {
	if p == nil || p.bar == nil {
		return
	}
	_ = p.bar.Finish()
}
