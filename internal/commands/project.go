package commands

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"evalgo.org/portico/internal/migrations"
)

var projectSchemaDir string

var projectCmd = &cobra.Command{
	Use:   "project",
	Short: "Inspect the current project",
}

var projectInfoCmd = &cobra.Command{
	Use:   "info",
	Short: "Show the schema directory and declared server version",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, err := migrations.FromProjectOrConfig(migrations.Options{SchemaDir: projectSchemaDir}, ".")
		if err != nil {
			return err
		}
		printProjectInfo(cmd.OutOrStdout(), ctx)
		return nil
	},
}

func init() {
	projectInfoCmd.Flags().StringVar(&projectSchemaDir, "schema-dir", "", "schema directory (overrides the project file)")
	projectCmd.AddCommand(projectInfoCmd)
}

func printProjectInfo(out io.Writer, ctx *migrations.Context) {
	fmt.Fprintf(out, "Schema directory: %s\n", ctx.SchemaDir)
	if ctx.ServerVersion != nil {
		fmt.Fprintf(out, "Server version:   %s\n", ctx.ServerVersion)
	} else {
		fmt.Fprintf(out, "Server version:   (no project file)\n")
	}
}
