package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"evalgo.org/portico/internal/cloud"
	"evalgo.org/portico/internal/collect"
	"evalgo.org/portico/internal/ux"
	"evalgo.org/portico/internal/validation"
	"evalgo.org/portico/models"
)

var errAborted = errors.New("aborted")

var (
	cloudVersion      string
	cloudForce        bool
	cloudStatusFormat string
)

var cloudCmd = &cobra.Command{
	Use:   "cloud",
	Short: "Manage cloud instances",
}

var cloudCreateCmd = &cobra.Command{
	Use:   "create <org>/<name>",
	Short: "Create a cloud instance",
	Long: `Create a cloud instance and wait until it is available.

Examples:
  portico cloud create acme/db1 --server-version 2.0`,
	Args: cobra.ExactArgs(1),
	RunE: runCloudCreate,
}

var cloudUpgradeCmd = &cobra.Command{
	Use:   "upgrade <org>/<name>",
	Short: "Upgrade a cloud instance to another server version",
	Args:  cobra.ExactArgs(1),
	RunE:  runCloudUpgrade,
}

var cloudDestroyCmd = &cobra.Command{
	Use:   "destroy <org>/<name>",
	Short: "Destroy a cloud instance",
	Args:  cobra.ExactArgs(1),
	RunE:  runCloudDestroy,
}

var cloudStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the live status of every cloud instance",
	Args:  cobra.NoArgs,
	RunE:  runCloudStatus,
}

var cloudLoginCmd = &cobra.Command{
	Use:   "login",
	Short: "Store a secret key for the cloud",
	Args:  cobra.NoArgs,
	RunE:  runCloudLogin,
}

func init() {
	cloudCreateCmd.Flags().StringVar(&cloudVersion, "server-version", "", "server version of the new instance")
	cloudUpgradeCmd.Flags().StringVar(&cloudVersion, "server-version", "", "server version to upgrade to")
	_ = cloudCreateCmd.MarkFlagRequired("server-version")
	_ = cloudUpgradeCmd.MarkFlagRequired("server-version")
	cloudDestroyCmd.Flags().BoolVar(&cloudForce, "force", false, "do not ask for confirmation")
	cloudStatusCmd.Flags().StringVar(&cloudStatusFormat, "format", formatText, "output format (text, json, yaml)")

	cloudCmd.AddCommand(cloudCreateCmd)
	cloudCmd.AddCommand(cloudUpgradeCmd)
	cloudCmd.AddCommand(cloudDestroyCmd)
	cloudCmd.AddCommand(cloudStatusCmd)
	cloudCmd.AddCommand(cloudLoginCmd)
}

// parseInstanceRef splits "org/name".
func parseInstanceRef(ref string) (org, name string, err error) {
	org, name, ok := strings.Cut(ref, "/")
	if !ok || org == "" || name == "" {
		return "", "", fmt.Errorf("invalid instance %q: expected <org>/<name>", ref)
	}
	if !validation.IsValidOrgSlug(org) {
		return "", "", fmt.Errorf("invalid organization %q", org)
	}
	if !validation.IsValidInstanceName(name) {
		return "", "", fmt.Errorf("invalid instance name %q", name)
	}
	return org, name, nil
}

// instanceError names the instance when the control plane does not know it.
func instanceError(ref string, err error) error {
	if cloud.IsNotFound(err) {
		return fmt.Errorf("cloud instance %s does not exist: %w", ref, err)
	}
	return err
}

// cloudSession is the client and prompter shared by one cloud command.
type cloudSession struct {
	client   *cloud.Client
	prompter ux.Prompter
	errOut   io.Writer
}

// openCloudSession builds a client that reads its secret key from the loaded
// configuration, so a key stored by login is seen on Reinit.
func openCloudSession(cmd *cobra.Command) (*cloudSession, error) {
	client, err := cloud.NewClient(cfg.Cloud, cloud.WithLogger(logger), cloud.WithKeySource(cfg.Cloud.ReadSecretKey))
	if err != nil {
		return nil, err
	}
	return &cloudSession{client: client, prompter: newPrompter(), errOut: cmd.ErrOrStderr()}, nil
}

// newCloudSession opens a session and runs the authentication guard.
func newCloudSession(cmd *cobra.Command) (*cloudSession, error) {
	s, err := openCloudSession(cmd)
	if err != nil {
		return nil, err
	}
	if err := cloud.PromptLogin(cmd.Context(), s.client, s.prompter, s.login); err != nil {
		if errors.Is(err, cloud.ErrAborted) {
			return nil, errAborted
		}
		return nil, err
	}
	return s, nil
}

func (s *cloudSession) login(ctx context.Context) error {
	key, err := s.prompter.Secret(ctx, "Secret key")
	if err != nil {
		return err
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return fmt.Errorf("%w: empty secret key", cloud.ErrNotAuthenticated)
	}
	shadowed := cfg.Cloud.SecretKey != ""
	if err := cfg.Cloud.WriteSecretKey(key); err != nil {
		return err
	}
	if shadowed {
		ux.NewPrinter(s.errOut).Warning(fmt.Sprintf("cloud.secret_key (PORTICO_CLOUD_SECRET_KEY) overrides %s; unset it to use the stored key in later runs", cfg.Cloud.SecretKeyFile))
	}
	return nil
}

func (s *cloudSession) lifecycle() *cloud.Lifecycle {
	poller := cloud.NewPoller(s.client, logger)
	poller.NewProgress = func(message string) cloud.Progress {
		return ux.NewSpinner(os.Stderr, message)
	}
	return cloud.NewLifecycle(s.client, poller, logger)
}

func runCloudCreate(cmd *cobra.Command, args []string) error {
	org, name, err := parseInstanceRef(args[0])
	if err != nil {
		return err
	}
	session, err := newCloudSession(cmd)
	if err != nil {
		return err
	}

	req := models.CreateInstanceRequest{Name: name, Org: org, Version: cloudVersion}
	if err := session.lifecycle().Create(cmd.Context(), req); err != nil {
		return err
	}
	ux.NewPrinter(cmd.OutOrStdout()).Success(fmt.Sprintf("Cloud instance %s is up and running.", models.InstanceRef(org, name)))
	return nil
}

func runCloudUpgrade(cmd *cobra.Command, args []string) error {
	org, name, err := parseInstanceRef(args[0])
	if err != nil {
		return err
	}
	session, err := newCloudSession(cmd)
	if err != nil {
		return err
	}

	req := models.UpgradeInstanceRequest{Name: name, Org: org, Version: cloudVersion}
	if err := session.lifecycle().Upgrade(cmd.Context(), req); err != nil {
		return instanceError(models.InstanceRef(org, name), err)
	}
	ux.NewPrinter(cmd.OutOrStdout()).Success(fmt.Sprintf("Cloud instance %s upgraded to %s.", models.InstanceRef(org, name), cloudVersion))
	return nil
}

func runCloudDestroy(cmd *cobra.Command, args []string) error {
	org, name, err := parseInstanceRef(args[0])
	if err != nil {
		return err
	}
	session, err := newCloudSession(cmd)
	if err != nil {
		return err
	}

	ref := models.InstanceRef(org, name)
	if !cloudForce {
		ok, err := session.prompter.Confirm(cmd.Context(), fmt.Sprintf("Do you really want to delete cloud instance %s?", ref), false)
		if err != nil {
			return err
		}
		if !ok {
			return errAborted
		}
	}

	if err := session.lifecycle().TryDestroy(org, name); err != nil {
		return instanceError(ref, err)
	}
	ux.NewPrinter(cmd.OutOrStdout()).Success(fmt.Sprintf("Cloud instance %s destroyed.", ref))
	return nil
}

func runCloudStatus(cmd *cobra.Command, args []string) error {
	session, err := newCloudSession(cmd)
	if err != nil {
		return err
	}

	errs := collect.New()
	agg := cloud.NewAggregator(session.client, cloud.NewHTTPProber(), cfg.Cloud.ProbeConcurrency, logger)
	statuses, err := agg.List(cmd.Context(), errs)
	if err != nil {
		return err
	}
	return reportStatuses(cmd, statuses, errs)
}

func reportStatuses(cmd *cobra.Command, statuses []models.RemoteStatus, errs *collect.Collector) error {
	rows := make([][]string, 0, len(statuses))
	for _, s := range statuses {
		version := s.Probe.Version
		if version == "" {
			version = "-"
		}
		rows = append(rows, []string{s.Name, s.InstanceStatus, string(s.Probe.Connection), version, fmt.Sprintf("%s:%d", s.Host, s.Port)})
	}
	if err := render(cmd.OutOrStdout(), cloudStatusFormat, statuses, []string{"INSTANCE", "STATUS", "CONNECTION", "VERSION", "ADDRESS"}, rows); err != nil {
		return err
	}

	failed := errs.Err()
	if failed == nil {
		return nil
	}
	n := errs.Len()
	return partialSuccess(fmt.Errorf("%d of %d instances could not be probed: %w", n, n+len(statuses), failed))
}

func runCloudLogin(cmd *cobra.Command, args []string) error {
	session, err := openCloudSession(cmd)
	if err != nil {
		return err
	}
	if err := session.login(cmd.Context()); err != nil {
		return err
	}
	if err := session.client.Reinit(); err != nil {
		return err
	}
	if err := session.client.EnsureAuthenticated(); err != nil {
		return err
	}
	ux.NewPrinter(cmd.OutOrStdout()).Success("Logged in to the cloud.")
	return nil
}
