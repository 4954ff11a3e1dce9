package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pmduarte/cadre/internal/report"
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Generate and update daily progress reports",
	Long: `Reports are one markdown file per active persona per day, with
sections for recent progress, next steps, blockers, and notes.

Examples:
  cadre report generate
  cadre report update Alice progress "Shipped the rotation engine"
  cadre report update Alice blockers "Waiting on registry review"`,
}

var reportGenerateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Create today's report for each active persona",
	RunE: func(cmd *cobra.Command, args []string) error {
		coord, closeFn, err := loadCoordinator()
		if err != nil {
			return err
		}
		defer closeFn()

		res, err := coord.GenerateReports()
		if err != nil {
			return err
		}
		for _, a := range res.Created {
			fmt.Printf("Created report for %s (%s)\n", a.Persona, a.Date)
		}
		for _, a := range res.Existing {
			fmt.Printf("Report for %s (%s) already exists, left untouched\n", a.Persona, a.Date)
		}
		if len(res.Created)+len(res.Existing) == 0 {
			fmt.Println("No personas are active; nothing to generate.")
		}
		return nil
	},
}

var reportUpdateCmd = &cobra.Command{
	Use:   "update [persona] [section] [content]",
	Short: "Replace one section of a persona's report for today",
	Long: fmt.Sprintf(`Sections: %s

The section's previous content is replaced; the rest of the report is
left as it is.`, strings.Join(fieldNames(), ", ")),
	Args: cobra.MinimumNArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		coord, closeFn, err := loadCoordinator()
		if err != nil {
			return err
		}
		defer closeFn()

		persona, section := args[0], args[1]
		content := strings.Join(args[2:], " ")
		artifact, err := coord.UpdateReportField(persona, section, content)
		if err != nil {
			return err
		}
		fmt.Printf("Updated %s for %s (%s)\n", section, artifact.Persona, artifact.Date)
		return nil
	},
}

func fieldNames() []string {
	names := make([]string, len(report.Fields))
	for i, f := range report.Fields {
		names[i] = string(f)
	}
	return names
}

func init() {
	reportCmd.AddCommand(reportGenerateCmd)
	reportCmd.AddCommand(reportUpdateCmd)
}
