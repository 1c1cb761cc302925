package resolver

import (
	"fmt"
	"strings"

	"golang.org/x/xerrors"
)

// ParseError wraps a syntactically invalid requirement, version, or marker
// string. A per-version parse error is recovered locally (the version is
// dropped and the package re-enqueued); a root-level parse error, surfaced
// by Resolve before any candidate exists, is fatal.
type ParseError struct {
	Input string
	Err   error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parsing %q: %v", e.Input, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// NoCompatibleVersionError reports that no known version of a package
// satisfies every incoming requirement. Fatal; no backtracking is
// attempted.
type NoCompatibleVersionError struct {
	Name          string
	Edges         []IncomingEdge
	KnownVersions []string
}

func (e *NoCompatibleVersionError) Error() string {
	var clauses []string
	for _, edge := range e.Edges {
		clauses = append(clauses, edge.Requirement.String())
	}

	return xerrors.Errorf(
		"no version of %s satisfies all of [%s]; versions inspected: [%s]",
		e.Name, strings.Join(clauses, ", "), strings.Join(e.KnownVersions, ", "),
	).Error()
}

// AmbiguousSdistError reports that a candidate has no wheel and its file
// list does not contain exactly one source distribution.
type AmbiguousSdistError struct {
	Name    string
	Version string
	Files   []string
}

func (e *AmbiguousSdistError) Error() string {
	return xerrors.Errorf(
		"%s %s has no wheel and an ambiguous sdist file list: [%s]",
		e.Name, e.Version, strings.Join(e.Files, ", "),
	).Error()
}

// MetadataFetchError reports a persistent (non-retryable) failure to fetch
// a package's release list or a release's per-version metadata. Metadata
// parse failures on a single version, and failed wheel metadata reads, are
// handled by dropping that version and looping; this error is for fetch
// failures that survive the transport-level retries.
type MetadataFetchError struct {
	Name    string
	Version string
	Err     error
}

func (e *MetadataFetchError) Error() string {
	return fmt.Sprintf("fetching metadata for %s %s: %v", e.Name, e.Version, e.Err)
}

func (e *MetadataFetchError) Unwrap() error { return e.Err }

// BuildError reports that the injected sdist build driver failed. Fatal
// for the resolution attempt.
type BuildError struct {
	Name    string
	Version string
	Err     error
}

func (e *BuildError) Error() string {
	return fmt.Sprintf("building sdist for %s %s: %v", e.Name, e.Version, e.Err)
}

func (e *BuildError) Unwrap() error { return e.Err }
