package resolver

import "context"

// Resolver is what the CLI depends on to turn a set of root requirements
// into a flat, environment-projected install plan.
type Resolver interface {
	Resolve(ctx context.Context, requirements []string, requiresPython string, env Environment, rootExtras []string) ([]ResolvedPackage, error)
}

// ResolvedPackage is one package of a resolution, flattened for printing
// and installation.
type ResolvedPackage struct {
	Name         string
	Version      string
	Dependencies []string
	Files        []FileRecord
}

// Service adapts the incremental Engine (engine.go) to the flat shape the
// installer wants: run the full queue-driven resolution, then project the
// result onto one concrete environment and set of root extras so only the
// packages actually live there are returned.
type Service struct {
	registry RegistryClient
	cache    Cache
	opts     []Option
}

// NewService creates a Service around a registry client and cache. opts are
// passed through to Resolve on every call, so any Engine option
// (WithLogger, WithBuildDriver, WithFetchConcurrency, WithDownloadWheels,
// WithMaximumVersions) may be supplied here.
func NewService(registry RegistryClient, cache Cache, opts ...Option) *Service {
	return &Service{registry: registry, cache: cache, opts: opts}
}

// Resolve runs the incremental resolution for requirements under
// requiresPython, then narrows the result to the packages reachable from
// env and rootExtras.
func (s *Service) Resolve(ctx context.Context, requirements []string, requiresPython string, env Environment, rootExtras []string) ([]ResolvedPackage, error) {
	opts := make([]Option, 0, len(s.opts)+1)
	opts = append(opts, WithRegistryClient(s.registry))
	opts = append(opts, s.opts...)

	res, err := Resolve(ctx, requirements, requiresPython, s.cache, opts...)
	if err != nil {
		return nil, err
	}

	return flatten(res.ForEnvironment(env, rootExtras)), nil
}

var _ Resolver = (*Service)(nil)

func flatten(res *Resolution) []ResolvedPackage {
	out := make([]ResolvedPackage, 0, len(res.Packages))

	for key, data := range res.Packages {
		deps := make([]string, 0, len(data.Requirements))
		for _, r := range data.Requirements {
			deps = append(deps, r.Name)
		}

		out = append(out, ResolvedPackage{
			Name:         data.UnnormalizedName,
			Version:      key.Version,
			Dependencies: deps,
			Files:        data.Files,
		})
	}

	return out
}
