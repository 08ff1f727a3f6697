package cmd

import (
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check a schema for problems",
	Long: `Load the schema, apply the configured row counts and report every problem:
unknown rules, broken foreign keys, conflicting constraints and dependency
cycles. Nothing is generated.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := loadProject()
		if err != nil {
			return err
		}
		engine, err := p.engine(0)
		if err != nil {
			return err
		}

		order, err := engine.Plan(p.schema)
		if err != nil {
			reportPlanError(err)
			return err
		}

		color.Green("✅ Schema is valid: %d tables, %d relationships", len(order), len(p.schema.Edges()))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}
