package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"obsgrades/internal/scrapers/obs"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var gradesJson bool

func init() {
	gradesCmd.Flags().BoolVar(&gradesJson, "json", false, "Print the report as JSON instead of a table.")
	rootCmd.AddCommand(gradesCmd)
}

func formatExam(stats obs.ExamStats) string {
	return fmt.Sprintf("%s (avg %s)", stats.Score, stats.ClassAverage)
}

func renderGrades(w io.Writer, report obs.Report) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.AppendHeader(table.Row{"Code", "Course", "Midterm", "Final", "Makeup", "Letter"})

	for _, c := range report.Courses {
		t.AppendRow(table.Row{
			c.Code,
			c.Name,
			formatExam(c.Midterm),
			formatExam(c.Final),
			formatExam(c.Makeup),
			c.LetterGrade,
		})
	}

	caption := fmt.Sprintf("term %s", report.Term.Value)
	if report.Term.Fallback {
		caption += " (fallback)"
	}
	t.SetCaption(caption)
	t.SetStyle(table.StyleRounded)
	t.Render()
}

func renderJson(w io.Writer, report obs.Report) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(report)
}

var gradesCmd = &cobra.Command{
	Use:   "grades [--json]",
	Short: "Logs in and prints the grades and class averages of the active term.",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSession(cmd, func(ctx context.Context, client *obs.Client) error {
			t1 := time.Now()
			report, err := client.Grades(ctx)
			if err != nil {
				return fmt.Errorf("fetch grades: %w", err)
			}
			slog.Debug("grades time", "seconds", time.Since(t1).Seconds())

			if report.Term.Fallback {
				slog.Warn("could not read the selected term, the term id is a guess", "term", report.Term.Value)
			}
			for _, d := range report.Diagnostics {
				if d.Err != nil {
					slog.Warn("class averages unavailable", "course", d.Code, "err", d.Err)
				}
			}

			if gradesJson {
				return renderJson(cmd.OutOrStdout(), report)
			}
			renderGrades(cmd.OutOrStdout(), report)
			return nil
		})
	},
}
