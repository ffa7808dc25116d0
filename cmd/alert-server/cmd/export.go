package cmd

import (
	"github.com/spf13/cobra"

	"github.com/oshokin/safety-monitor/internal/service/alertserver"
)

// exportCmd writes the journal to an xlsx report.
var exportCmd = &cobra.Command{
	Use:   "export <output.xlsx>",
	Short: "Export the alert journal as an Excel workbook.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		options := &alertserver.ExportOptions{
			ConfigPath:  configPath,
			JournalFile: journalFile,
			Output:      args[0],
		}

		return alertserver.Export(cmd.Context(), options)
	},
}
