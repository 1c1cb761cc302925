package resolver

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"

	pep440 "github.com/aquasecurity/go-pep440-version"
)

// Engine drives the incremental, delay-tolerant resolution loop described
// in the package's design notes: a queue-driven candidate selection
// interleaved with three deferred fetch stages (release/metadata fetch,
// wheel metadata validation, sdist build coordination).
type Engine struct {
	logger *slog.Logger

	registry RegistryClient
	builder  BuildDriver
	cache    Cache

	fetchConcurrency int
	downloadWheels   bool
	maximumVersions  bool

	pythonVersions []string

	state *state
}

// Option configures an Engine. Following the teacher's convention, every
// tunable is a functional option rather than a config struct.
type Option func(*Engine)

// WithLogger injects a structured logger. The default discards all output.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) { e.logger = logger }
}

// WithRegistryClient sets the registry collaborator. Required: Resolve
// returns an error if none is supplied.
func WithRegistryClient(c RegistryClient) Option {
	return func(e *Engine) { e.registry = c }
}

// WithBuildDriver sets the sdist build collaborator. Defaults to
// NullBuildDriver, which fails every build.
func WithBuildDriver(b BuildDriver) Option {
	return func(e *Engine) { e.builder = b }
}

// WithFetchConcurrency bounds the parallel fan-out width of the fetch
// coordinator and the wheel metadata validator's worker pool. Defaults to
// runtime.GOMAXPROCS(0), mirroring the teacher's download manager default.
func WithFetchConcurrency(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.fetchConcurrency = n
		}
	}
}

// WithDownloadWheels enables the wheel metadata validator (§4.4): a second
// pass that re-derives requirements from each candidate's wheel METADATA,
// since index-side requires_dist is sometimes missing or platform-narrow.
func WithDownloadWheels(enabled bool) Option {
	return func(e *Engine) { e.downloadWheels = enabled }
}

// WithMaximumVersions controls traversal order when picking a candidate
// version: true (the default) prefers the newest compatible version,
// false the oldest. Not surfaced as a CLI flag.
func WithMaximumVersions(enabled bool) Option {
	return func(e *Engine) { e.maximumVersions = enabled }
}

// Resolve computes a locked set of (package, version) candidates
// satisfying roots under requiresPython, fetching releases and metadata
// through the collaborators configured by opts. cache is the persistent
// blob store the wheel validator reads and writes wheel metadata through.
func Resolve(ctx context.Context, roots []string, requiresPython string, cache Cache, opts ...Option) (*Resolution, error) {
	e := &Engine{
		logger:          slog.New(slog.DiscardHandler),
		cache:           cache,
		builder:         NullBuildDriver{},
		maximumVersions: true,
		state:           newState(),
	}

	for _, opt := range opts {
		opt(e)
	}

	if e.registry == nil {
		return nil, fmt.Errorf("resolver: WithRegistryClient is required")
	}

	if e.fetchConcurrency == 0 {
		e.fetchConcurrency = runtime.GOMAXPROCS(0)
	}

	pythonVersions, err := TargetPythonVersions(requiresPython)
	if err != nil {
		return nil, err
	}

	e.pythonVersions = pythonVersions

	var rootReqs []Requirement

	for _, raw := range roots {
		req, warning, perr := ParseRequirementFixup(raw, "")
		if perr != nil {
			return nil, &ParseError{Input: raw, Err: perr}
		}

		if warning != "" {
			e.logger.Warn(warning)
		}

		rootReqs = append(rootReqs, req)
		e.state.addIncomingEdge(req, PackageKey{})
		e.state.enqueue(req.Name)
	}

	if err := e.runLoop(ctx); err != nil {
		return nil, err
	}

	return e.buildResolution(rootReqs), nil
}

// runLoop drains the queue, then consults the three deferred work sets in
// strict order; any one producing new queue entries restarts the inner
// pass. The loop terminates when a full pass through all three produces
// nothing.
func (e *Engine) runLoop(ctx context.Context) error {
	for {
		if err := e.drainQueue(ctx); err != nil {
			return err
		}

		if len(e.state.fetchVersions) > 0 || len(e.state.fetchMetadata) > 0 {
			if err := e.fetchRound(ctx); err != nil {
				return err
			}

			continue
		}

		if e.downloadWheels {
			progressed, err := e.validateWheelsRound(ctx)
			if err != nil {
				return err
			}

			if progressed {
				continue
			}
		}

		progressed, err := e.sdistRound(ctx)
		if err != nil {
			return err
		}

		if progressed {
			continue
		}

		return nil
	}
}

func (e *Engine) drainQueue(ctx context.Context) error {
	for len(e.state.queue) > 0 {
		if err := ctx.Err(); err != nil {
			return err
		}

		name := e.state.popFront()
		if err := e.updateSinglePackage(name); err != nil {
			return err
		}
	}

	return nil
}

// updateSinglePackage implements the nine numbered steps of the resolver
// loop's per-package candidate update.
func (e *Engine) updateSinglePackage(name string) error {
	s := e.state

	if s.fetchVersions[name] {
		return nil // step 1: already requested its release list
	}

	versions, known := s.versionsCache[name]
	if !known {
		s.fetchVersions[name] = true

		return nil // step 2
	}

	edges := s.requirementsPerPackage[name]

	allowed := allowedPrereleases(edges, versions)

	candidateVersions := versions
	if !e.maximumVersions {
		candidateVersions = reverseStrings(versions)
	}

	var (
		chosenVersion string
		chosenExtras  []string
		found         bool
	)

	for _, v := range candidateVersions {
		pv, err := pep440.Parse(v)
		if err != nil {
			continue
		}

		if pv.IsPreRelease() && !allowed[releaseTuple(v)] {
			continue
		}

		ok := true

		var extras []string

		for _, edge := range edges {
			if !versionSatisfiesSpecifier(v, edge.Requirement.Specifier) {
				ok = false

				break
			}

			extras = extrasUnion(extras, edge.Requirement.Extras)
		}

		if ok {
			chosenVersion = v
			chosenExtras = extras
			found = true

			break
		}
	}

	if !found {
		return &NoCompatibleVersionError{Name: name, Edges: edges, KnownVersions: versions}
	}

	key := PackageKey{Name: name, Version: chosenVersion}

	old, hadOld := s.candidates[name]
	_, metadataChanged := s.changedMetadata[key]

	if hadOld && old.Version == chosenVersion && extrasEqual(old.Extras, chosenExtras) && !metadataChanged {
		return nil // step 6: nothing to do
	}

	if _, reqsKnown := s.requirements[key]; !reqsKnown {
		s.fetchMetadata[name] = chosenVersion

		return nil // step 7
	}

	var oldKey PackageKey

	oldExtras := []string(nil)

	if hadOld {
		oldKey = PackageKey{Name: name, Version: old.Version}
		oldExtras = old.Extras
	}

	// A metadata refresh overwrote requirements[key] in place; the previous
	// set survives only in changedMetadata.
	oldReqs := s.requirements[oldKey]
	if prev, ok := s.changedMetadata[key]; ok && hadOld && oldKey == key {
		oldReqs = prev
	}

	liveOld := liveEdges(oldReqs, oldExtras, e.pythonVersions)
	liveNew := liveEdges(s.requirements[key], chosenExtras, e.pythonVersions)

	for _, r := range liveOld {
		s.removeIncomingEdge(r, oldKey)
	}

	for _, r := range liveNew {
		s.addIncomingEdge(r, key)
	}

	for _, r := range symmetricDifferenceReqs(liveOld, liveNew) {
		s.enqueueIfEligible(r.Name)
	}

	s.candidates[name] = Candidate{Version: chosenVersion, Extras: chosenExtras}
	delete(s.changedMetadata, key)

	return nil
}

func (e *Engine) buildResolution(rootReqs []Requirement) *Resolution {
	packages := make(map[PackageKey]ReleaseData, len(e.state.candidates))

	for name, cand := range e.state.candidates {
		key := PackageKey{Name: name, Version: cand.Version}
		packages[key] = ReleaseData{
			UnnormalizedName: e.state.displayName(name),
			Requirements:     e.state.requirements[key],
			Files:            e.state.filesCache[name][cand.Version],
			Extras:           cand.Extras,
		}
	}

	return &Resolution{Root: rootReqs, Packages: packages}
}
