package commands

import (
	"fmt"
	"io"

	"github.com/devboard/devboard-api/internal/database"
	"github.com/devboard/devboard-api/internal/models"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// runtimeSettings is the document printed by "list -o yaml"
type runtimeSettings struct {
	CORS      *models.CORSSettings      `yaml:"cors"`
	RateLimit *models.RateLimitSettings `yaml:"ratelimit"`
}

// NewListCmd prints every runtime setting
func NewListCmd() *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List runtime settings",
		Long:  "Print the CORS and rate limit settings stored in the database",
		RunE: func(cmd *cobra.Command, args []string) error {
			if output != "text" && output != "yaml" {
				return fmt.Errorf("unknown output format %q (want text or yaml)", output)
			}

			db, err := openDB()
			if err != nil {
				return err
			}
			defer func() { _ = db.Close() }()

			repo := database.NewSettingsRepository(db)
			var s runtimeSettings
			if s.CORS, err = repo.CORS(cmd.Context()); err != nil {
				return err
			}
			if s.RateLimit, err = repo.RateLimit(cmd.Context()); err != nil {
				return err
			}
			return writeSettings(cmd.OutOrStdout(), output, s)
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "text", "Output format: text or yaml")
	return cmd
}

func writeSettings(w io.Writer, output string, s runtimeSettings) error {
	if output == "yaml" {
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(s); err != nil {
			return fmt.Errorf("encode settings: %w", err)
		}
		return enc.Close()
	}
	printCORS(w, s.CORS)
	_, _ = fmt.Fprintln(w)
	printRateLimit(w, s.RateLimit)
	return nil
}
