package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/GreatRoyce/GreatRoyce-Portfolio/internal/openapi"
)

func newOpenAPICmd() *cobra.Command {
	var (
		baseURL    string
		outputFile string
	)

	cmd := &cobra.Command{
		Use:   "openapi",
		Short: "Generate the OpenAPI specification",
		Long:  `Generate the OpenAPI 3.1 document describing the portfolio API.`,
		Example: `  portfolio openapi                                  # print to stdout
  portfolio openapi --base-url https://api.example.com -o openapi.json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOpenAPI(baseURL, outputFile, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVar(&baseURL, "base-url", "", "Server URL to advertise in the document")
	cmd.Flags().StringVarP(&outputFile, "output", "o", "", "Write spec to file instead of stdout")

	return cmd
}

func runOpenAPI(baseURL, outputFile string, out io.Writer) error {
	jsonBytes, err := json.MarshalIndent(openapi.Generate(baseURL), "", "  ")
	if err != nil {
		return fmt.Errorf("marshal openapi document: %w", err)
	}

	if outputFile != "" {
		if err := os.WriteFile(outputFile, append(jsonBytes, '\n'), 0644); err != nil {
			return fmt.Errorf("write %s: %w", outputFile, err)
		}
		fmt.Fprintf(out, "Wrote %s\n", outputFile)
		return nil
	}

	_, err = fmt.Fprintln(out, string(jsonBytes))
	return err
}
