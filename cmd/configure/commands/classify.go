package commands

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/devboard/devboard-api/internal/services/classifier"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// NewClassifyCmd runs the task classifier locally, without a database
func NewClassifyCmd() *cobra.Command {
	var description, due, output string
	var openTasks int
	cmd := &cobra.Command{
		Use:   "classify <title>",
		Short: "Classify a task title",
		Long:  "Print the category, priority, estimate and due date suggestion the API would produce for a task.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var dueDate *time.Time
			if due != "" {
				parsed, err := time.Parse(time.RFC3339, due)
				if err != nil {
					return fmt.Errorf("--due must be RFC3339: %w", err)
				}
				dueDate = &parsed
			}

			analysis := classifier.New().Analyze(strings.Join(args, " "), description, dueDate, openTasks)

			out := cmd.OutOrStdout()
			switch output {
			case "yaml":
				enc := yaml.NewEncoder(out)
				enc.SetIndent(2)
				defer func() { _ = enc.Close() }()
				return enc.Encode(analysis)
			case "json":
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(analysis)
			default:
				return fmt.Errorf("--output must be yaml or json")
			}
		},
	}
	cmd.Flags().StringVar(&description, "description", "", "Task description")
	cmd.Flags().StringVar(&due, "due", "", "Due date (RFC3339)")
	cmd.Flags().IntVar(&openTasks, "open-tasks", 0, "Number of open tasks, used for the due date suggestion")
	cmd.Flags().StringVarP(&output, "output", "o", "yaml", "Output format: yaml or json")
	return cmd
}
