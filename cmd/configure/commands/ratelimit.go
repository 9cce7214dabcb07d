package commands

import (
	"fmt"
	"io"
	"strings"

	"github.com/devboard/devboard-api/internal/database"
	"github.com/devboard/devboard-api/internal/middleware"
	"github.com/devboard/devboard-api/internal/models"
	"github.com/spf13/cobra"
	"github.com/ulule/limiter/v3"
)

// NewRatelimitCmd groups the rate limit settings commands
func NewRatelimitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ratelimit",
		Short: "Manage the per-user API rate",
		Long:  "Show or update the rate each signed-in user may call the API at, e.g. 20-S or 600-M.",
	}
	cmd.AddCommand(newRatelimitShowCmd(), newRatelimitSetCmd())
	return cmd
}

func newRatelimitShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the stored rate",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := openDB()
			if err != nil {
				return err
			}
			defer func() { _ = db.Close() }()

			s, err := database.NewSettingsRepository(db).RateLimit(cmd.Context())
			if err != nil {
				return err
			}
			printRateLimit(cmd.OutOrStdout(), s)
			return nil
		},
	}
}

func printRateLimit(w io.Writer, s *models.RateLimitSettings) {
	if s == nil {
		_, _ = fmt.Fprintf(w, "Rate limit: not set, servers use %s\n", middleware.DefaultRate)
		return
	}
	_, _ = fmt.Fprintf(w, "Rate limit: %s per user\n", s.Rate)
}

// parseRate normalizes a limiter rate such as 5-s to 5-S
func parseRate(raw string) (string, error) {
	rate := strings.ToUpper(strings.TrimSpace(raw))
	if rate == "" {
		return "", fmt.Errorf("--rate is required (e.g. 20-S, 600-M)")
	}
	parsed, err := limiter.NewRateFromFormatted(rate)
	if err != nil {
		return "", fmt.Errorf("invalid rate %q: %w", raw, err)
	}
	if parsed.Limit <= 0 {
		return "", fmt.Errorf("invalid rate %q: limit must be positive", raw)
	}
	return rate, nil
}

func newRatelimitSetCmd() *cobra.Command {
	var rate string
	cmd := &cobra.Command{
		Use:   "set",
		Short: "Replace the per-user rate",
		RunE: func(cmd *cobra.Command, args []string) error {
			parsed, err := parseRate(rate)
			if err != nil {
				return err
			}

			db, err := openDB()
			if err != nil {
				return err
			}
			defer func() { _ = db.Close() }()

			if err := database.NewSettingsRepository(db).SetRateLimit(cmd.Context(), &models.RateLimitSettings{Rate: parsed}); err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Rate limit updated: %s per user\n", parsed)
			return nil
		},
	}
	cmd.Flags().StringVar(&rate, "rate", "", "Rate as <limit>-<S|M|H|D>")
	return cmd
}
