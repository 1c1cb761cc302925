package resolver

import "sort"

// IncomingEdge is a requirement together with the candidate it came from.
// Source is the zero PackageKey for root (user-specified) requirements.
type IncomingEdge struct {
	Requirement Requirement
	Source      PackageKey
}

// state is the resolver's aggregate working set, created fresh per
// invocation of Resolve and never shared or concurrently mutated (the
// resolver loop is single-threaded; see engine.go's runLoop). Field names
// mirror the eleven-entry table driving the resolution algorithm: the queue
// of possibly-stale names, the two deferred fetch sets, completed sdist
// builds, the release/requirement caches, the reverse edge index, and the
// current candidate assignment.
type state struct {
	queue  []string
	queued map[string]bool

	fetchVersions map[string]bool
	fetchMetadata map[string]string

	resolvedSdists map[PackageKey]bool

	versionsCache map[string][]string
	filesCache    map[string]map[string][]FileRecord

	requirements          map[PackageKey][]Requirement
	requirementsCredible  map[PackageKey]bool
	changedMetadata       map[PackageKey][]Requirement
	requirementsPerPackage map[string][]IncomingEdge

	candidates map[string]Candidate

	displayNames map[string]string
}

func newState() *state {
	return &state{
		queued:                 make(map[string]bool),
		fetchVersions:          make(map[string]bool),
		fetchMetadata:          make(map[string]string),
		resolvedSdists:         make(map[PackageKey]bool),
		versionsCache:          make(map[string][]string),
		filesCache:             make(map[string]map[string][]FileRecord),
		requirements:           make(map[PackageKey][]Requirement),
		requirementsCredible:   make(map[PackageKey]bool),
		changedMetadata:        make(map[PackageKey][]Requirement),
		requirementsPerPackage: make(map[string][]IncomingEdge),
		candidates:             make(map[string]Candidate),
		displayNames:           make(map[string]string),
	}
}

// enqueue appends name to the FIFO queue unless it is already present.
func (s *state) enqueue(name string) {
	if s.queued[name] {
		return
	}

	s.queue = append(s.queue, name)
	s.queued[name] = true
}

// enqueueIfEligible enqueues name unless it is already queued or pending
// a release-list fetch (step 8 of update_single_package).
func (s *state) enqueueIfEligible(name string) {
	if s.queued[name] || s.fetchVersions[name] {
		return
	}

	s.enqueue(name)
}

// popFront removes and returns the first queued name.
func (s *state) popFront() string {
	name := s.queue[0]
	s.queue = s.queue[1:]
	s.queued[name] = false

	return name
}

// sortQueue orders the queue for deterministic resolution order across
// runs, as required after each fetch round.
func (s *state) sortQueue() {
	sort.Strings(s.queue)
}

// addIncomingEdge records that req, attributed to source, targets
// req.Name, and remembers req's display name for the given package the
// first time it is seen.
func (s *state) addIncomingEdge(req Requirement, source PackageKey) {
	s.requirementsPerPackage[req.Name] = append(s.requirementsPerPackage[req.Name], IncomingEdge{
		Requirement: req,
		Source:      source,
	})

	if _, ok := s.displayNames[req.Name]; !ok {
		name := req.DisplayName
		if name == "" {
			name = req.Name
		}

		s.displayNames[req.Name] = name
	}
}

// removeIncomingEdge removes one (req, source) edge, matched by the
// requirement's string form, from the reverse index.
func (s *state) removeIncomingEdge(req Requirement, source PackageKey) {
	edges := s.requirementsPerPackage[req.Name]

	for i, e := range edges {
		if e.Source == source && e.Requirement.String() == req.String() {
			s.requirementsPerPackage[req.Name] = append(edges[:i], edges[i+1:]...)

			return
		}
	}
}

func (s *state) displayName(normalized string) string {
	if name, ok := s.displayNames[normalized]; ok {
		return name
	}

	return normalized
}
