// Package portable manages server versions installed on the local machine
// and the local instances that run them.
//
// Layout on disk:
//
//	<installs_dir>/<specific version>/install_info.json
//	<data_dir>/<instance name>/instance_info.json
package portable

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"go.uber.org/zap"

	"evalgo.org/portico/internal/config"
	"evalgo.org/portico/internal/logging"
	"evalgo.org/portico/internal/validation"
	"evalgo.org/portico/internal/ver"
)

const (
	installInfoFile  = "install_info.json"
	instanceInfoFile = "instance_info.json"
)

// InstallInfo describes one installed server version.
type InstallInfo struct {
	Version     ver.Version `json:"-"`
	RawVersion  string      `json:"version"`
	InstalledAt time.Time   `json:"installed_at,omitempty"`
	Path        string      `json:"-"`
}

// InstanceInfo is the metadata of a local instance.
type InstanceInfo struct {
	Name    string `json:"name" validate:"required,instname"`
	Version string `json:"version" validate:"required"`
	Port    int    `json:"port" validate:"omitempty,min=1,max=65535"`
}

// ParsedVersion parses the version the instance runs.
func (i *InstanceInfo) ParsedVersion() (ver.Version, error) {
	v, err := ver.ParseVersion(i.Version)
	if err != nil {
		return ver.Version{}, fmt.Errorf("instance %q: %w", i.Name, err)
	}
	return v, nil
}

// UsedVersions maps the specific projection of a version to the name of an
// instance running it.
type UsedVersions map[ver.Specific]string

// Registry reads the local installs and data directories.
type Registry struct {
	installsDir string
	dataDir     string
	validator   *validation.Validator
	logger      *zap.Logger
}

// NewRegistry creates a registry over the configured directories.
func NewRegistry(cfg config.PortableConfig, logger *zap.Logger) *Registry {
	return &Registry{
		installsDir: cfg.InstallsDir,
		dataDir:     cfg.DataDir,
		validator:   validation.New(),
		logger:      logging.OrNop(logger),
	}
}

// InstallPath is the directory holding an installed specific version.
func (r *Registry) InstallPath(s ver.Specific) string {
	return filepath.Join(r.installsDir, s.String())
}

// Installed lists installed versions. A missing installs directory means
// nothing is installed.
func (r *Registry) Installed() ([]InstallInfo, error) {
	entries, err := os.ReadDir(r.installsDir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading installs directory: %w", err)
	}

	var out []InstallInfo
	for _, entry := range entries {
		if !entry.IsDir() || isTempName(entry.Name()) {
			continue
		}
		info, err := r.readInstallInfo(entry.Name())
		if err != nil {
			r.logger.Debug("skipping install directory", zap.String("dir", entry.Name()), zap.Error(err))
			continue
		}
		out = append(out, *info)
	}

	sortInstalls(out)
	return out, nil
}

func (r *Registry) readInstallInfo(dirName string) (*InstallInfo, error) {
	path := filepath.Join(r.installsDir, dirName)
	info := &InstallInfo{Path: path}

	data, err := os.ReadFile(filepath.Join(path, installInfoFile))
	switch {
	case err == nil:
		if err := json.Unmarshal(data, info); err != nil {
			return nil, fmt.Errorf("decoding %s: %w", installInfoFile, err)
		}
	case errors.Is(err, os.ErrNotExist):
		info.RawVersion = dirName
	default:
		return nil, err
	}

	v, err := ver.ParseVersion(info.RawVersion)
	if err != nil {
		return nil, err
	}
	if v.Specific().String() != dirName {
		return nil, fmt.Errorf("version %s does not belong in directory %s", v, dirName)
	}
	info.Version = v
	return info, nil
}

// Instances lists local instances. A missing data directory means there are none.
func (r *Registry) Instances() ([]InstanceInfo, error) {
	entries, err := os.ReadDir(r.dataDir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading data directory: %w", err)
	}

	var out []InstanceInfo
	for _, entry := range entries {
		if !entry.IsDir() || isTempName(entry.Name()) {
			continue
		}
		info, err := r.readInstanceInfo(entry.Name())
		if err != nil {
			return nil, err
		}
		if info != nil {
			out = append(out, *info)
		}
	}
	return out, nil
}

// readInstanceInfo returns nil without error for directories that are not
// instances.
func (r *Registry) readInstanceInfo(name string) (*InstanceInfo, error) {
	data, err := os.ReadFile(filepath.Join(r.dataDir, name, instanceInfoFile))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading instance %q: %w", name, err)
	}

	var info InstanceInfo
	if err := json.Unmarshal(data, &info); err != nil {
		return nil, fmt.Errorf("decoding instance %q: %w", name, err)
	}
	if err := r.validator.Validate(&info).Err(); err != nil {
		return nil, fmt.Errorf("instance %q: %w", name, err)
	}
	return &info, nil
}

// UsedVersions scans every local instance once and records which specific
// version each one runs.
func (r *Registry) UsedVersions() (UsedVersions, error) {
	instances, err := r.Instances()
	if err != nil {
		return nil, err
	}
	used := make(UsedVersions, len(instances))
	for i := range instances {
		v, err := instances[i].ParsedVersion()
		if err != nil {
			return nil, err
		}
		used[v.Specific()] = instances[i].Name
	}
	return used, nil
}

// VersionUsage pairs an installed version with the instance using it, if any.
type VersionUsage struct {
	Install InstallInfo
	UsedBy  string
}

// VersionUsage lists installed versions with their users.
func (r *Registry) VersionUsage() ([]VersionUsage, error) {
	installed, err := r.Installed()
	if err != nil {
		return nil, err
	}
	used, err := r.UsedVersions()
	if err != nil {
		return nil, err
	}
	out := make([]VersionUsage, 0, len(installed))
	for _, in := range installed {
		out = append(out, VersionUsage{Install: in, UsedBy: used[in.Version.Specific()]})
	}
	return out, nil
}

// tempPath is the sibling path a directory is moved to before deletion.
func tempPath(path string) string {
	return filepath.Join(filepath.Dir(path), ".~"+filepath.Base(path)+".tmp")
}

func sortInstalls(xs []InstallInfo) {
	slices.SortFunc(xs, func(a, b InstallInfo) int {
		return ver.Compare(a.Version, b.Version)
	})
}

func isTempName(name string) bool {
	return strings.HasPrefix(name, ".~")
}
