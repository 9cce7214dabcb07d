package commands

import (
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/devboard/devboard-api/internal/database"
	"github.com/devboard/devboard-api/internal/models"
	"github.com/spf13/cobra"
)

// NewCorsCmd groups the CORS settings commands
func NewCorsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cors",
		Short: "Manage CORS settings",
		Long:  "Show or update the browser origins the API accepts. Servers reload them every minute.",
	}
	cmd.AddCommand(newCorsShowCmd(), newCorsSetCmd())
	return cmd
}

func newCorsShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show stored CORS settings",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := openDB()
			if err != nil {
				return err
			}
			defer func() { _ = db.Close() }()

			s, err := database.NewSettingsRepository(db).CORS(cmd.Context())
			if err != nil {
				return err
			}
			printCORS(cmd.OutOrStdout(), s)
			return nil
		},
	}
}

func printCORS(w io.Writer, s *models.CORSSettings) {
	if s == nil {
		_, _ = fmt.Fprintln(w, "CORS: not set, servers allow FRONTEND_URL")
		return
	}
	_, _ = fmt.Fprintln(w, "CORS:")
	for _, o := range s.AllowedOrigins {
		_, _ = fmt.Fprintf(w, "  origin      %s\n", o)
	}
	_, _ = fmt.Fprintf(w, "  credentials %v\n", s.AllowCredentials)
	_, _ = fmt.Fprintf(w, "  max-age     %ds\n", s.MaxAge)
	if !s.UpdatedAt.IsZero() {
		_, _ = fmt.Fprintf(w, "  updated     %s\n", s.UpdatedAt.Format("2006-01-02 15:04 MST"))
	}
}

// validateOrigins parses a comma separated list of scheme://host[:port] origins
func validateOrigins(raw string) ([]string, error) {
	origins := database.ParseOrigins(raw)
	if len(origins) == 0 {
		return nil, fmt.Errorf("at least one origin is required")
	}
	for _, o := range origins {
		if o == "*" {
			continue
		}
		u, err := url.Parse(o)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return nil, fmt.Errorf("invalid origin %q: expected scheme://host[:port]", o)
		}
		if u.Path != "" || u.RawQuery != "" {
			return nil, fmt.Errorf("invalid origin %q: origins have no path or query", o)
		}
	}
	return origins, nil
}

func newCorsSetCmd() *cobra.Command {
	var origins string
	var allowCreds bool
	var maxAge int
	cmd := &cobra.Command{
		Use:   "set",
		Short: "Replace the CORS settings",
		RunE: func(cmd *cobra.Command, args []string) error {
			parsed, err := validateOrigins(strings.TrimSpace(origins))
			if err != nil {
				return err
			}
			if maxAge < 0 {
				return fmt.Errorf("--max-age must not be negative")
			}

			db, err := openDB()
			if err != nil {
				return err
			}
			defer func() { _ = db.Close() }()

			s := &models.CORSSettings{
				AllowedOrigins:   parsed,
				AllowCredentials: allowCreds,
				MaxAge:           maxAge,
			}
			if err := database.NewSettingsRepository(db).SetCORS(cmd.Context(), s); err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "CORS updated: %s\n", strings.Join(parsed, ", "))
			return nil
		},
	}
	cmd.Flags().StringVar(&origins, "origins", "", "Comma separated allowed origins")
	cmd.Flags().BoolVar(&allowCreds, "allow-credentials", true, "Allow cookies and Authorization on cross-origin calls")
	cmd.Flags().IntVar(&maxAge, "max-age", 86400, "Preflight cache lifetime in seconds")
	_ = cmd.MarkFlagRequired("origins")
	return cmd
}
