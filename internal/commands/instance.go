package commands

import (
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"evalgo.org/portico/internal/portable"
)

var instanceListFormat string

var instanceCmd = &cobra.Command{
	Use:   "instance",
	Short: "Inspect local instances",
}

var instanceListCmd = &cobra.Command{
	Use:   "list",
	Short: "List local instances",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return listInstances(cmd.OutOrStdout(), portable.NewRegistry(cfg.Portable, logger), instanceListFormat)
	},
}

func init() {
	instanceListCmd.Flags().StringVar(&instanceListFormat, "format", formatText, "output format (text, json, yaml)")
	instanceCmd.AddCommand(instanceListCmd)
}

func listInstances(out io.Writer, registry *portable.Registry, format string) error {
	instances, err := registry.Instances()
	if err != nil {
		return err
	}
	if instances == nil {
		instances = []portable.InstanceInfo{}
	}

	rows := make([][]string, 0, len(instances))
	for _, inst := range instances {
		port := "-"
		if inst.Port != 0 {
			port = strconv.Itoa(inst.Port)
		}
		rows = append(rows, []string{inst.Name, inst.Version, port})
	}
	return render(out, format, instances, []string{"NAME", "VERSION", "PORT"}, rows)
}
