package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/profiler/internal/core"
)

func newConvertCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "convert [file]",
		Short: "Convert response text to CSV",
		Long: `Convert response text to CSV the same way the export buttons do.

A JSON array of objects becomes a table with a header row; any other text is
written one quoted line per row. Reads stdin when no file is given or the
file is "-".`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var in io.Reader = cmd.InOrStdin()
			if len(args) == 1 && args[0] != "-" {
				f, err := os.Open(args[0])
				if err != nil {
					return fmt.Errorf("open input: %w", err)
				}
				defer f.Close()
				in = f
			}

			data, err := io.ReadAll(io.LimitReader(in, a.cfg.Upload.MaxFileSize+1))
			if err != nil {
				return fmt.Errorf("read input: %w", err)
			}
			if int64(len(data)) > a.cfg.Upload.MaxFileSize {
				return fmt.Errorf("request body too large: input exceeds %d bytes", a.cfg.Upload.MaxFileSize)
			}

			_, err = fmt.Fprintln(cmd.OutOrStdout(), core.ConvertToCSV(string(data)))
			return err
		},
	}
}
