package cmd

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Show the order tables will be generated in",
	Args:  cobra.NoArgs,
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

		color.Cyan("📋 Generation order: %s", strings.Join(order, " → "))
		fmt.Println()

		total := 0
		for i, name := range order {
			t := p.schema.Table(name)
			total += t.Rows

			color.New(color.FgWhite, color.Bold).Printf("%2d. %s", i+1, name)
			fmt.Printf(" (%d rows)\n", t.Rows)
			if pk := t.PrimaryKey(); pk != nil {
				fmt.Printf("      key: %s\n", pk.Name)
			}
			for _, f := range t.Fields {
				if f.References != nil {
					fmt.Printf("      %s → %s", f.Name, f.References)
					if f.References.Cardinality > 0 {
						fmt.Printf(" (about %g per parent)", f.References.Cardinality)
					}
					fmt.Println()
				}
			}
		}

		fmt.Println()
		color.Green("📊 %d tables, %d rows in total", len(order), total)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(planCmd)
}
