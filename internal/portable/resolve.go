package portable

import (
	"slices"

	"go.uber.org/zap"

	"evalgo.org/portico/internal/logging"
	"evalgo.org/portico/internal/ver"
)

// UninstallOptions selects which installed versions to remove. Filters are
// combined with AND semantics.
type UninstallOptions struct {
	// All selects every installed version when no other filter is given.
	All bool

	// Nightly keeps only nightly builds.
	Nightly bool

	// Channel keeps only versions published on the channel.
	Channel *ver.Channel

	// Version is parsed as a Filter, Specific or Build spec.
	Version string

	// Unused restricts removal to unused versions without reporting the
	// skipped ones as a partial failure.
	Unused bool

	// Force removes versions even when a local instance uses them.
	Force bool
}

// HasFilter reports whether any selection was requested.
func (o *UninstallOptions) HasFilter() bool {
	return o.All || o.Nightly || o.Channel != nil || o.Version != "" || o.Unused
}

// BlockedCandidate is a matched version kept because an instance uses it.
type BlockedCandidate struct {
	Install  InstallInfo
	Instance string
}

// Resolution is the outcome of candidate selection.
type Resolution struct {
	// Matched are the candidates that passed every filter.
	Matched []InstallInfo

	// Removable is Matched minus the versions blocked by usage.
	Removable []InstallInfo

	// Blocked lists the matched candidates excluded because they are in use.
	Blocked []BlockedCandidate

	// AllRemovable is false when any matched candidate was blocked.
	AllRemovable bool
}

// FilterCandidates keeps the installed versions satisfying every filter in opts.
func FilterCandidates(installed []InstallInfo, opts UninstallOptions) ([]InstallInfo, error) {
	var specs []ver.Spec
	if opts.Version != "" {
		spec, err := ver.Parse(opts.Version)
		if err != nil {
			return nil, err
		}
		specs = append(specs, spec)
	}
	if opts.Channel != nil {
		specs = append(specs, ver.QueryFromChannel(*opts.Channel))
	}

	out := slices.Clone(installed)
	return slices.DeleteFunc(out, func(c InstallInfo) bool {
		if opts.Nightly && !c.Version.IsNightly() {
			return true
		}
		for _, s := range specs {
			if !s.Matches(c.Version) {
				return true
			}
		}
		return false
	}), nil
}

// Resolve computes which installed versions may be removed. Versions in used
// are excluded unless opts.Force is set.
func Resolve(installed []InstallInfo, opts UninstallOptions, used UsedVersions, logger *zap.Logger) (*Resolution, error) {
	logger = logging.OrNop(logger)
	matched, err := FilterCandidates(installed, opts)
	if err != nil {
		return nil, err
	}

	res := &Resolution{Matched: matched, AllRemovable: true}
	for _, c := range matched {
		inst, inUse := used[c.Version.Specific()]
		switch {
		case !inUse:
			res.Removable = append(res.Removable, c)
		case opts.Force:
			logger.Warn("Removing version that is in use",
				zap.Stringer("version", c.Version), zap.String("instance", inst))
			res.Removable = append(res.Removable, c)
		default:
			if !opts.Unused {
				logger.Warn("Version is used by an instance",
					zap.Stringer("version", c.Version), zap.String("instance", inst))
			}
			res.Blocked = append(res.Blocked, BlockedCandidate{Install: c, Instance: inst})
			res.AllRemovable = false
		}
	}
	return res, nil
}
