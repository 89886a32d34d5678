package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/daryltucker/donut-runner/internal/output"
	"github.com/daryltucker/donut-runner/internal/server"
)

var openapiOut string

var openapiCmd = &cobra.Command{
	Use:   "export-openapi",
	Short: "Write the OpenAPI document for GPT Actions",
	Long: `Writes the same document the server serves at /openapi.json. public_url from
the config (or DONUT_PUBLIC_URL) becomes the server entry.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		doc := server.OpenAPI(Version, cfg.PublicURL)
		if err := doc.Validate(cmd.Context()); err != nil {
			return fmt.Errorf("openapi document is invalid: %w", err)
		}
		data, err := json.MarshalIndent(doc, "", "  ")
		if err != nil {
			return err
		}
		data = append(data, '\n')

		if openapiOut == "" || openapiOut == "-" {
			_, err = stdout().Write(data)
			return err
		}
		if err := os.MkdirAll(filepath.Dir(openapiOut), 0755); err != nil {
			return fmt.Errorf("failed to create target directory %s: %w", filepath.Dir(openapiOut), err)
		}
		if err := os.WriteFile(openapiOut, data, 0644); err != nil {
			return fmt.Errorf("failed to write %s: %w", openapiOut, err)
		}
		output.Logger.Info("Wrote OpenAPI document", "path", openapiOut)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(openapiCmd)
	openapiCmd.Flags().StringVarP(&openapiOut, "output", "o", "", "output file (default stdout)")
}
