package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/Lumos-Labs-HQ/tablefaker/template"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	sqliteFlag     bool
	postgresqlFlag bool
	mysqlFlag      bool
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize a new tablefaker project",
	Long:  `Write a starter config, a sample schema and a .env file for the chosen database.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		dbType := template.PostgreSQL
		flagCount := 0

		if sqliteFlag {
			dbType = template.SQLite
			flagCount++
		}
		if postgresqlFlag {
			dbType = template.PostgreSQL
			flagCount++
		}
		if mysqlFlag {
			dbType = template.MySQL
			flagCount++
		}

		if flagCount > 1 {
			return fmt.Errorf("please specify only one database type (--sqlite, --postgresql, or --mysql)")
		}

		force, _ := cmd.Flags().GetBool("force")
		return initializeProject(dbType, force)
	},
}

func init() {
	rootCmd.AddCommand(initCmd)

	initCmd.Flags().BoolVar(&sqliteFlag, "sqlite", false, "Initialize project for SQLite database")
	initCmd.Flags().BoolVar(&postgresqlFlag, "postgresql", false, "Initialize project for PostgreSQL database")
	initCmd.Flags().BoolVar(&mysqlFlag, "mysql", false, "Initialize project for MySQL database")
}

func initializeProject(dbType template.DatabaseType, force bool) error {
	tmpl := template.NewProjectTemplate(dbType)

	for _, dir := range tmpl.GetDirectoryStructure() {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	files := []struct {
		path    string
		content string
	}{
		{template.ConfigFile, tmpl.GetConfig()},
		{template.SchemaFile, tmpl.GetSchema()},
		{template.EnvFile, tmpl.GetEnvTemplate()},
	}

	for _, f := range files {
		if _, err := os.Stat(f.path); err == nil && !force {
			color.Yellow("⚠️  %s already exists, skipping (use --force to overwrite)", f.path)
			continue
		}
		if err := os.MkdirAll(filepath.Dir(f.path), 0755); err != nil {
			return fmt.Errorf("failed to create directory for %s: %w", f.path, err)
		}
		if err := os.WriteFile(f.path, []byte(f.content), 0644); err != nil {
			return fmt.Errorf("failed to write %s: %w", f.path, err)
		}
		color.Green("✅ Created %s", f.path)
	}

	fmt.Println()
	color.Cyan("🚀 Project initialized for %s", dbType)
	color.White("Next steps:")
	color.White("  1. Edit %s to describe your tables", template.SchemaFile)
	color.White("  2. Run: tablefaker plan")
	color.White("  3. Run: tablefaker generate --seed 42")
	return nil
}
