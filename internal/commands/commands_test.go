package commands

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"evalgo.org/portico/internal/cloud"
	"evalgo.org/portico/internal/cloud/cloudtest"
	"evalgo.org/portico/internal/collect"
	"evalgo.org/portico/internal/config"
	"evalgo.org/portico/internal/portable"
	"evalgo.org/portico/internal/ux"
	"evalgo.org/portico/internal/ver"
	"evalgo.org/portico/models"
)

func TestParseInstanceRef(t *testing.T) {
	tests := []struct {
		ref     string
		org     string
		name    string
		wantErr bool
	}{
		{ref: "acme/db1", org: "acme", name: "db1"},
		{ref: "acme", wantErr: true},
		{ref: "/db1", wantErr: true},
		{ref: "acme/", wantErr: true},
		{ref: "acme/-db1", wantErr: true},
		{ref: "acme_corp/db1", wantErr: true},
		{ref: "acme/db--x", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.ref, func(t *testing.T) {
			org, name, err := parseInstanceRef(tt.ref)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.org, org)
			assert.Equal(t, tt.name, name)
		})
	}
}

func TestExitCode(t *testing.T) {
	assert.Equal(t, 0, ExitCode(nil))
	assert.Equal(t, ExitFailure, ExitCode(errors.New("boom")))
	assert.Equal(t, ExitPartialSuccess, ExitCode(partialSuccess(errors.New("some skipped"))))
	assert.Equal(t, ExitPartialSuccess, ExitCode(fmt.Errorf("wrapped: %w", partialSuccess(errors.New("x")))))
	assert.Equal(t, 3, ExitPartialSuccess)
}

type portableFixture struct {
	cfg      config.PortableConfig
	registry *portable.Registry
	logs     *observer.ObservedLogs
}

func newPortableFixture(t *testing.T) *portableFixture {
	t.Helper()
	root := t.TempDir()
	cfg := config.PortableConfig{
		InstallsDir: filepath.Join(root, "portable"),
		DataDir:     filepath.Join(root, "data"),
	}
	core, logs := observer.New(zap.WarnLevel)
	return &portableFixture{cfg: cfg, registry: portable.NewRegistry(cfg, zap.New(core)), logs: logs}
}

func (f *portableFixture) install(t *testing.T, version string) {
	t.Helper()
	v := ver.MustParseVersion(version)
	dir := filepath.Join(f.cfg.InstallsDir, v.Specific().String())
	require.NoError(t, os.MkdirAll(dir, 0o755))
	data, _ := json.Marshal(map[string]string{"version": version})
	require.NoError(t, os.WriteFile(filepath.Join(dir, "install_info.json"), data, 0o644))
}

func (f *portableFixture) instance(t *testing.T, name, version string) {
	t.Helper()
	dir := filepath.Join(f.cfg.DataDir, name)
	require.NoError(t, os.MkdirAll(dir, 0o755))
	data, _ := json.Marshal(portable.InstanceInfo{Name: name, Version: version, Port: 10701})
	require.NoError(t, os.WriteFile(filepath.Join(dir, "instance_info.json"), data, 0o644))
}

func TestUninstall_Summary(t *testing.T) {
	stable := ver.ChannelStable

	tests := []struct {
		name      string
		opts      portable.UninstallOptions
		wantCode  int
		wantOut   string
		wantWarn  bool
		remaining []string
	}{
		{
			name:      "blocked version is partial success",
			opts:      portable.UninstallOptions{Channel: &stable},
			wantCode:  ExitPartialSuccess,
			wantOut:   "Uninstalled 1 versions.",
			wantWarn:  true,
			remaining: []string{"1.0", "2.0-dev.7000"},
		},
		{
			name:      "unused only is full success",
			opts:      portable.UninstallOptions{Unused: true},
			wantCode:  0,
			wantOut:   "Successfully uninstalled 2 versions.",
			remaining: []string{"1.0"},
		},
		{
			name:     "forced",
			opts:     portable.UninstallOptions{All: true, Force: true},
			wantCode: 0,
			wantOut:  "Successfully uninstalled 3 versions.",
		},
		{
			name:      "nothing matched",
			opts:      portable.UninstallOptions{Version: "7"},
			wantCode:  0,
			wantOut:   "Nothing to uninstall.",
			remaining: []string{"1.0", "1.1", "2.0-dev.7000"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newPortableFixture(t)
			f.install(t, "1.0+aaa")
			f.install(t, "1.1+bbb")
			f.install(t, "2.0-dev.7000+ccc")
			f.instance(t, "inst1", "1.0+aaa")

			var out bytes.Buffer
			err := uninstall(&out, portable.NewUninstaller(f.registry), tt.opts)
			assert.Equal(t, tt.wantCode, ExitCode(err))
			assert.Contains(t, out.String(), tt.wantOut)
			assert.NotContains(t, out.String(), "inst1")

			blocked := f.logs.FilterMessage("Version is used by an instance").AllUntimed()
			if tt.wantWarn {
				require.Len(t, blocked, 1)
				assert.Equal(t, "inst1", blocked[0].ContextMap()["instance"])
				assert.Equal(t, "1.0+aaa", blocked[0].ContextMap()["version"])
			} else {
				assert.Empty(t, blocked)
			}

			installed, err := f.registry.Installed()
			require.NoError(t, err)
			var got []string
			for _, in := range installed {
				got = append(got, in.Version.Specific().String())
			}
			assert.Equal(t, tt.remaining, got)
		})
	}
}

func TestUninstall_NoFilter(t *testing.T) {
	f := newPortableFixture(t)
	var out bytes.Buffer
	err := uninstall(&out, portable.NewUninstaller(f.registry), portable.UninstallOptions{})
	assert.True(t, errors.Is(err, portable.ErrNoFilter))
	assert.Equal(t, ExitFailure, ExitCode(err))
}

func TestListVersions(t *testing.T) {
	f := newPortableFixture(t)
	f.install(t, "1.0+aaa")
	f.install(t, "1.1+bbb")
	f.instance(t, "inst1", "1.1+bbb")

	var out bytes.Buffer
	require.NoError(t, listVersions(&out, f.registry, formatJSON))

	var items []installedVersion
	require.NoError(t, json.Unmarshal(out.Bytes(), &items))
	require.Len(t, items, 2)
	assert.Equal(t, "1.0+aaa", items[0].Version)
	assert.Empty(t, items[0].UsedBy)
	assert.Equal(t, "inst1", items[1].UsedBy)

	out.Reset()
	require.NoError(t, listVersions(&out, f.registry, formatText))
	assert.Contains(t, out.String(), "USED BY")
	assert.Contains(t, out.String(), "inst1")

	assert.Error(t, listVersions(&out, f.registry, "xml"))
}

func TestListInstances(t *testing.T) {
	f := newPortableFixture(t)

	var out bytes.Buffer
	require.NoError(t, listInstances(&out, f.registry, formatJSON))
	assert.JSONEq(t, "[]", out.String())

	f.instance(t, "inst1", "1.1+bbb")
	out.Reset()
	require.NoError(t, listInstances(&out, f.registry, formatYAML))
	assert.Contains(t, out.String(), "name: inst1")
}

func TestReportStatuses_PartialFailure(t *testing.T) {
	old := cloudStatusFormat
	cloudStatusFormat = formatJSON
	t.Cleanup(func() { cloudStatusFormat = old })

	cmd := &cobra.Command{}
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)

	errBadCA := errors.New("probing acme/a: invalid TLS CA certificate")
	errRefused := errors.New("probing acme/c: connection reset")
	errs := collect.New()
	errs.Add(errBadCA)
	errs.Add(errRefused)
	statuses := []models.RemoteStatus{{Name: "acme/b", Kind: models.RemoteKindCloud, Probe: models.ProbeResult{Connection: models.ConnectionOK}}}

	err := reportStatuses(cmd, statuses, errs)
	assert.Equal(t, ExitPartialSuccess, ExitCode(err))
	assert.Contains(t, err.Error(), "2 of 3 instances could not be probed: ")
	assert.ErrorIs(t, err, errBadCA)
	assert.ErrorIs(t, err, errRefused)
	assert.Len(t, multierr.Errors(errors.Unwrap(errors.Unwrap(err))), 2)
	assert.Contains(t, out.String(), "acme/b")
	assert.Empty(t, errOut.String())

	require.NoError(t, reportStatuses(cmd, statuses, collect.New()))
}

func TestShowConfig_RedactsSecret(t *testing.T) {
	data, err := showConfig(&config.Config{Cloud: config.CloudConfig{SecretKey: "super-secret"}})
	require.NoError(t, err)
	assert.NotContains(t, string(data), "super-secret")
	assert.Contains(t, string(data), "********")
}

func TestWriteDefaultConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, writeDefaultConfig(path, false))
	assert.Error(t, writeDefaultConfig(path, false))
	require.NoError(t, writeDefaultConfig(path, true))

	loaded, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, "https://api.portico.cloud/v1/", loaded.Cloud.APIURL)
	assert.Equal(t, 4, loaded.Cloud.ProbeConcurrency)
}

func TestCloudCreate_EndToEnd(t *testing.T) {
	srv := cloudtest.New(t)
	srv.SetScript(models.OperationCompleted)
	t.Setenv("PORTICO_CLOUD_API_URL", srv.URL)
	t.Setenv("PORTICO_CLOUD_SECRET_KEY", srv.Token(time.Hour))

	oldPrompter := newPrompter
	newPrompter = func() ux.Prompter { return ux.NewReaderPrompter(bytes.NewReader(nil), &bytes.Buffer{}) }
	t.Cleanup(func() { newPrompter = oldPrompter })

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs([]string{
		"--config", filepath.Join(t.TempDir(), "missing.yaml"),
		"cloud", "create", "acme/db1", "--server-version", "2.0",
	})
	t.Cleanup(func() {
		rootCmd.SetArgs(nil)
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
	})

	require.NoError(t, rootCmd.Execute())
	assert.Contains(t, out.String(), "Cloud instance acme/db1 is up and running.")

	inst, ok := srv.Instance("acme", "db1")
	require.True(t, ok)
	assert.True(t, inst.IsAvailable())
}

func TestInstanceError(t *testing.T) {
	notFound := &models.APIError{Code: http.StatusNotFound, Message: "instance not found"}
	err := instanceError("acme/db1", fmt.Errorf("destroying acme/db1: %w", notFound))
	assert.Contains(t, err.Error(), "cloud instance acme/db1 does not exist")
	assert.True(t, cloud.IsNotFound(err))

	other := errors.New("connection refused")
	assert.Same(t, other, instanceError("acme/db1", other))
}

func TestCloudStatus_LoginReplacesExpiredEnvKey(t *testing.T) {
	srv := cloudtest.New(t)
	keyFile := filepath.Join(t.TempDir(), "secret_key")
	fresh := srv.Token(time.Hour)
	t.Setenv("PORTICO_CLOUD_API_URL", srv.URL)
	t.Setenv("PORTICO_CLOUD_SECRET_KEY", srv.Token(-time.Hour))
	t.Setenv("PORTICO_CLOUD_SECRET_KEY_FILE", keyFile)

	oldPrompter := newPrompter
	newPrompter = func() ux.Prompter {
		return ux.NewReaderPrompter(bytes.NewBufferString("y\n"+fresh+"\n"), &bytes.Buffer{})
	}
	t.Cleanup(func() { newPrompter = oldPrompter })

	var out, errOut bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)
	rootCmd.SetArgs([]string{
		"--config", filepath.Join(t.TempDir(), "missing.yaml"),
		"cloud", "status", "--format", formatJSON,
	})
	t.Cleanup(func() {
		rootCmd.SetArgs(nil)
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
	})

	require.NoError(t, rootCmd.Execute())
	assert.JSONEq(t, "[]", out.String())
	assert.Contains(t, errOut.String(), "overrides "+keyFile)

	stored, err := os.ReadFile(keyFile)
	require.NoError(t, err)
	assert.Equal(t, fresh+"\n", string(stored))
}
