package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/aether-health/focus-engine/pkg/config"
	"github.com/aether-health/focus-engine/pkg/engine"
	"github.com/aether-health/focus-engine/pkg/rules"
)

// NewScoreCmd creates the score command
func NewScoreCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "score <record.json>",
		Short: "Score a patient record",
		Long: `Score a patient intake record against the focus-area rule set and print
the ranked report. The record is a JSON object with optional "age", "sex",
"ancestry", "fields" and "biomarkers" keys.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read record: %w", err)
			}
			var record engine.PatientRecord
			if err := json.Unmarshal(data, &record); err != nil {
				return fmt.Errorf("parse record: %w", err)
			}

			eng, err := engine.New(cfg, rules.MustDefaultRegistry())
			if err != nil {
				return err
			}
			report, err := eng.ScoreFocusAreas(context.Background(), record)
			if err != nil {
				return err
			}

			format, _ := cmd.Flags().GetString("output")
			if format == "json" {
				out, err := json.MarshalIndent(report, "", "  ")
				if err != nil {
					return err
				}
				fmt.Println(string(out))
				return nil
			}
			return printReport(report)
		},
	}
}

func loadConfig(cmd *cobra.Command) (*config.EngineConfig, error) {
	path, _ := cmd.Flags().GetString("config")
	if path == "" {
		return config.Default(), nil
	}
	return config.Load(path)
}

func printReport(report *engine.Report) error {
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintf(w, "RANK\tAREA\tSCORE\n")
	for i, r := range report.Ranked {
		fmt.Fprintf(w, "%d\t%s\t%.2f\n", i+1, r.Name, r.Score)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	if len(report.SafetyFlags) > 0 {
		fmt.Println()
		for _, f := range report.SafetyFlags {
			fmt.Printf("SAFETY [%s]: triggered by %v\n", f.Kind, f.Triggers)
		}
	}
	if len(report.Diagnostics) > 0 {
		fmt.Println()
		for _, d := range report.Diagnostics {
			fmt.Printf("note: %s\n", d)
		}
	}
	return nil
}
