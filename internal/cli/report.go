package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/example/fwdetect/internal/detector"
)

func newReportCmd() *cobra.Command {
	var inputPath string
	var format string

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Render a saved detection report or summary file",
		RunE: func(cmd *cobra.Command, args []string) error {
			if inputPath == "" {
				return errors.New("--input is required")
			}

			data, err := os.ReadFile(inputPath)
			if err != nil {
				return err
			}

			report, err := decodeReport(data)
			if err != nil {
				return fmt.Errorf("%s: %w", inputPath, err)
			}

			switch format {
			case "text", "":
				return renderText(cmd.OutOrStdout(), report)
			case "json":
				return renderJSON(cmd.OutOrStdout(), report)
			default:
				return fmt.Errorf("unsupported format %q (want text or json)", format)
			}
		},
	}

	cmd.Flags().StringVar(&inputPath, "input", "", "Path to a JSON report or --summary-file output")
	cmd.Flags().StringVar(&format, "format", "text", "Output format: text or json")
	if err := cmd.MarkFlagRequired("input"); err != nil {
		panic(err)
	}

	return cmd
}

// decodeReport accepts either a bare report object or a summary file whose
// detections field holds one.
func decodeReport(data []byte) (*detector.Report, error) {
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, err
	}

	if raw, ok := probe["detections"]; ok && !isJSONString(raw) {
		data = raw
	}

	report := detector.NewReport()
	if err := json.Unmarshal(data, report); err != nil {
		return nil, err
	}
	return report, nil
}

func isJSONString(raw json.RawMessage) bool {
	return len(raw) > 0 && raw[0] == '"'
}
