package resolver

import (
	"context"
	"fmt"
)

// RegistryClient is the registry collaborator the engine consumes: the
// release listing, per-version JSON metadata, and an
// authoritative byte-range read of a wheel's own METADATA member. The
// default implementation lives in internal/pypi.
type RegistryClient interface {
	// GetReleases returns every known release of name, keyed by version,
	// each with its file (artifact) list.
	GetReleases(ctx context.Context, name string) (map[string][]FileRecord, error)
	// GetMetadata returns the index-reported core metadata for one
	// release. This is the fast, occasionally unreliable source.
	GetMetadata(ctx context.Context, name, version string) (Metadata, error)
	// GetWheelMetadata reads the METADATA member directly out of the
	// wheel archive named by file, using byte-range requests. This is
	// the slow, authoritative source used by the wheel validator.
	GetWheelMetadata(ctx context.Context, file FileRecord) (Metadata, error)
}

// BuildDriver invokes an out-of-process build backend against a source
// distribution to recover its metadata. Building is explicitly out of
// scope for this module; NullBuildDriver is the default, failing every
// build with BuildError so resolutions that need it fail loudly instead
// of silently.
type BuildDriver interface {
	BuildSdist(ctx context.Context, file FileRecord) (Metadata, error)
}

// Cache is the bucketed, string-keyed blob store the engine's wheel
// validator uses for persistent caching of wheel metadata. Puts are atomic: internal/cache.Manager implements this via a
// temp-file-then-rename.
type Cache interface {
	GetBlob(bucket, key string) ([]byte, bool, error)
	PutBlob(bucket, key string, data []byte) error
}

// NullBuildDriver rejects every build request. It is the engine's default
// BuildDriver, since invoking PEP 517 build backends is out of scope here;
// callers that need sdist support inject their own driver.
type NullBuildDriver struct{}

func (NullBuildDriver) BuildSdist(_ context.Context, file FileRecord) (Metadata, error) {
	return Metadata{}, fmt.Errorf("no build driver configured for %s", file.Filename)
}

var _ BuildDriver = NullBuildDriver{}
