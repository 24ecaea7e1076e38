package portable

import (
	"errors"
	"fmt"
	"os"

	"go.uber.org/zap"
)

// ExitPartialSuccess is the process exit status for commands that completed
// some of the requested work and deliberately skipped the rest.
const ExitPartialSuccess = 3

// ErrNoFilter is returned when an uninstall names no selection at all.
var ErrNoFilter = errors.New("specify --all, --nightly, --channel, --version or --unused")

// UninstallReport summarizes an uninstall run.
type UninstallReport struct {
	Uninstalled []InstallInfo
	Blocked     []BlockedCandidate

	// Partial is set when matched versions were skipped because they are in
	// use and the caller did not ask for unused versions only.
	Partial bool
}

// Uninstaller removes installed versions.
type Uninstaller struct {
	registry *Registry
	logger   *zap.Logger

	rename    func(oldpath, newpath string) error
	removeAll func(path string) error
}

// NewUninstaller creates an uninstaller over registry.
func NewUninstaller(registry *Registry) *Uninstaller {
	return &Uninstaller{
		registry:  registry,
		logger:    registry.logger,
		rename:    os.Rename,
		removeAll: os.RemoveAll,
	}
}

// Uninstall selects candidates and removes them one by one. The first
// filesystem error aborts the remaining removals; versions removed before it
// stay removed.
func (u *Uninstaller) Uninstall(opts UninstallOptions) (*UninstallReport, error) {
	if !opts.HasFilter() {
		return nil, ErrNoFilter
	}

	installed, err := u.registry.Installed()
	if err != nil {
		return nil, err
	}
	used, err := u.registry.UsedVersions()
	if err != nil {
		return nil, err
	}
	res, err := Resolve(installed, opts, used, u.logger)
	if err != nil {
		return nil, err
	}

	report := &UninstallReport{
		Blocked: res.Blocked,
		Partial: !res.AllRemovable && !opts.Unused,
	}
	for _, c := range res.Removable {
		u.logger.Info("Uninstalling", zap.Stringer("version", c.Version))
		if err := u.remove(c); err != nil {
			return report, err
		}
		report.Uninstalled = append(report.Uninstalled, c)
	}
	return report, nil
}

// remove moves the install directory aside and deletes it. A stale temporary
// directory left by an earlier crash is deleted first.
func (u *Uninstaller) remove(c InstallInfo) error {
	path := u.registry.InstallPath(c.Version.Specific())
	tmp := tempPath(path)

	if _, err := os.Lstat(tmp); err == nil {
		if err := u.removeAll(tmp); err != nil {
			return fmt.Errorf("removing stale %s: %w", tmp, err)
		}
	}
	if err := u.rename(path, tmp); err != nil {
		return fmt.Errorf("uninstalling %s: %w", c.Version, err)
	}
	if err := u.removeAll(tmp); err != nil {
		return fmt.Errorf("uninstalling %s: %w", c.Version, err)
	}
	return nil
}
