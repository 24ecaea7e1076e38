package commands

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"evalgo.org/portico/internal/portable"
	"evalgo.org/portico/internal/ux"
	"evalgo.org/portico/internal/ver"
)

var (
	uninstallAll     bool
	uninstallNightly bool
	uninstallChannel string
	uninstallVersion string
	uninstallUnused  bool
	uninstallForce   bool

	listVersionsFormat string
)

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Manage installed server versions",
}

var serverUninstallCmd = &cobra.Command{
	Use:   "uninstall",
	Short: "Uninstall server versions",
	Long: `Uninstall server versions matching every given filter.

Versions used by a local instance are kept unless --force is given. When some
matched versions were kept the command exits with status 3.

Examples:
  portico server uninstall --nightly
  portico server uninstall --version 1
  portico server uninstall --channel stable --unused`,
	Args: cobra.NoArgs,
	RunE: runServerUninstall,
}

var serverListVersionsCmd = &cobra.Command{
	Use:   "list-versions",
	Short: "List installed server versions and the instances using them",
	Args:  cobra.NoArgs,
	RunE:  runServerListVersions,
}

func init() {
	f := serverUninstallCmd.Flags()
	f.BoolVar(&uninstallAll, "all", false, "uninstall all versions")
	f.BoolVar(&uninstallNightly, "nightly", false, "uninstall nightly versions")
	f.StringVar(&uninstallChannel, "channel", "", "uninstall versions of a channel (stable, testing, nightly)")
	f.StringVar(&uninstallVersion, "version", "", "uninstall versions matching a filter, specific version or build")
	f.BoolVar(&uninstallUnused, "unused", false, "uninstall only versions not used by any instance")
	f.BoolVar(&uninstallForce, "force", false, "uninstall versions even if they are in use")
	serverUninstallCmd.MarkFlagsMutuallyExclusive("unused", "force")

	serverListVersionsCmd.Flags().StringVar(&listVersionsFormat, "format", formatText, "output format (text, json, yaml)")

	serverCmd.AddCommand(serverUninstallCmd)
	serverCmd.AddCommand(serverListVersionsCmd)
}

func runServerUninstall(cmd *cobra.Command, args []string) error {
	opts := portable.UninstallOptions{
		All:     uninstallAll,
		Nightly: uninstallNightly,
		Version: uninstallVersion,
		Unused:  uninstallUnused,
		Force:   uninstallForce,
	}
	if uninstallChannel != "" {
		ch, err := ver.ParseChannel(uninstallChannel)
		if err != nil {
			return err
		}
		opts.Channel = &ch
	}

	registry := portable.NewRegistry(cfg.Portable, logger)
	return uninstall(cmd.OutOrStdout(), portable.NewUninstaller(registry), opts)
}

// uninstall runs the removal and prints the summary. Skipped versions turn
// the result into a partial success unless only unused versions were asked for;
// the resolver has already logged which instance blocks each of them.
func uninstall(out io.Writer, u *portable.Uninstaller, opts portable.UninstallOptions) error {
	report, err := u.Uninstall(opts)
	if report == nil {
		return err
	}

	printer := ux.NewPrinter(out)

	n := len(report.Uninstalled)
	switch {
	case err != nil:
		if n > 0 {
			printer.Echo(fmt.Sprintf("Uninstalled %d versions.", n))
		}
		return err
	case report.Partial:
		printer.Echo(fmt.Sprintf("Uninstalled %d versions.", n))
		return partialSuccess(errors.New("some instances are used. See messages above."))
	case n == 0:
		printer.Echo("Nothing to uninstall.")
	default:
		printer.Success(fmt.Sprintf("Successfully uninstalled %d versions.", n))
	}
	return nil
}

func runServerListVersions(cmd *cobra.Command, args []string) error {
	registry := portable.NewRegistry(cfg.Portable, logger)
	return listVersions(cmd.OutOrStdout(), registry, listVersionsFormat)
}

type installedVersion struct {
	Version     string `json:"version" yaml:"version"`
	InstalledAt string `json:"installed_at,omitempty" yaml:"installed_at,omitempty"`
	Path        string `json:"path" yaml:"path"`
	UsedBy      string `json:"used_by,omitempty" yaml:"used_by,omitempty"`
}

func listVersions(out io.Writer, registry *portable.Registry, format string) error {
	usage, err := registry.VersionUsage()
	if err != nil {
		return err
	}

	items := make([]installedVersion, 0, len(usage))
	rows := make([][]string, 0, len(usage))
	for _, u := range usage {
		item := installedVersion{Version: u.Install.Version.String(), Path: u.Install.Path, UsedBy: u.UsedBy}
		if !u.Install.InstalledAt.IsZero() {
			item.InstalledAt = u.Install.InstalledAt.Format("2006-01-02")
		}
		items = append(items, item)

		usedBy := u.UsedBy
		if usedBy == "" {
			usedBy = "-"
		}
		installed := item.InstalledAt
		if installed == "" {
			installed = "-"
		}
		rows = append(rows, []string{item.Version, installed, usedBy})
	}
	return render(out, format, items, []string{"VERSION", "INSTALLED", "USED BY"}, rows)
}
