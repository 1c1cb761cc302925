package resolver

import "strings"

// PackageKey identifies one resolved release: a normalized package name and
// the exact version chosen for it.
type PackageKey struct {
	Name    string
	Version string
}

// FileRecord is one distribution artifact belonging to a release: a wheel
// or a source distribution.
type FileRecord struct {
	Filename   string
	URL        string
	Size       int64
	Yanked     bool
	HashAlgo   string
	HashDigest string
}

// IsWheel reports whether the artifact is a prebuilt wheel rather than a
// source distribution.
func (f FileRecord) IsWheel() bool {
	return strings.HasSuffix(f.Filename, ".whl")
}

// Metadata is the parsed Python core-metadata for one release: currently
// only the field the resolver consumes, the outgoing requirement strings.
type Metadata struct {
	RequiresDist []string
}

// Candidate is the resolver's current choice of version and active extras
// for one package.
type Candidate struct {
	Version string
	Extras  []string
}

// ReleaseData is the resolved information the engine retains for one
// (name, version) pair that ended up in the final candidate set.
type ReleaseData struct {
	UnnormalizedName string
	Requirements     []Requirement
	Files            []FileRecord
	Extras           []string
}

// Resolution is the immutable result of a successful Resolve call: the
// root requirements plus every resolved package keyed by name and version.
type Resolution struct {
	Root     []Requirement
	Packages map[PackageKey]ReleaseData
}
