package resolver

import (
	"context"
	"fmt"
	"sort"

	"golang.org/x/sync/errgroup"
)

// fetchRound performs the two parallel fan-outs of §4.3: release listings
// for everything in fetchVersions, and per-version metadata for
// everything in fetchMetadata. Both fan-outs run concurrently over a
// shared bounded worker pool; responses are joined before the state store
// is updated, so updateSinglePackage never observes a partial round.
func (e *Engine) fetchRound(ctx context.Context) error {
	s := e.state

	versionNames := make([]string, 0, len(s.fetchVersions))
	for name := range s.fetchVersions {
		versionNames = append(versionNames, name)
	}

	sort.Strings(versionNames)

	metadataTargets := make([]PackageKey, 0, len(s.fetchMetadata))
	for name, version := range s.fetchMetadata {
		metadataTargets = append(metadataTargets, PackageKey{Name: name, Version: version})
	}

	sort.Slice(metadataTargets, func(i, j int) bool {
		if metadataTargets[i].Name != metadataTargets[j].Name {
			return metadataTargets[i].Name < metadataTargets[j].Name
		}

		return metadataTargets[i].Version < metadataTargets[j].Version
	})

	e.logger.Info("fetch round", "versions", len(versionNames), "metadata", len(metadataTargets))

	releaseResults := make([]map[string][]FileRecord, len(versionNames))
	metadataResults := make([]Metadata, len(metadataTargets))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.fetchConcurrency)

	for i, name := range versionNames {
		i, name := i, name

		g.Go(func() error {
			releases, err := e.registry.GetReleases(gctx, name)
			if err != nil {
				return &MetadataFetchError{Name: name, Err: err}
			}

			releaseResults[i] = releases

			return nil
		})
	}

	for i, key := range metadataTargets {
		i, key := i, key

		g.Go(func() error {
			md, err := e.registry.GetMetadata(gctx, key.Name, key.Version)
			if err != nil {
				return &MetadataFetchError{Name: key.Name, Version: key.Version, Err: err}
			}

			metadataResults[i] = md

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}

	for i, name := range versionNames {
		releases := releaseResults[i]

		versions := make([]string, 0, len(releases))
		for v := range releases {
			versions = append(versions, v)
		}

		sorted, err := SortVersionsDesc(versions)
		if err != nil {
			return err
		}

		s.versionsCache[name] = sorted
		s.filesCache[name] = releases
		s.enqueue(name)
	}

	s.fetchVersions = make(map[string]bool)

	for i, key := range metadataTargets {
		md := metadataResults[i]

		reqs, ok := e.parseReleaseRequirements(md.RequiresDist, key)
		if !ok {
			s.versionsCache[key.Name] = removeVersion(s.versionsCache[key.Name], key.Version)
			s.enqueue(key.Name)

			continue
		}

		s.requirements[key] = reqs
	}

	for _, key := range metadataTargets {
		s.enqueue(key.Name)
	}

	s.fetchMetadata = make(map[string]string)
	s.sortQueue()

	return nil
}

// parseReleaseRequirements parses every raw requirement string of one
// release's requires_dist, applying the fixup in §4.7. A single
// unparseable requirement drops the whole release, per §4.3's "remove the
// offending version ... forces reselection against a smaller version
// set".
func (e *Engine) parseReleaseRequirements(raw []string, key PackageKey) ([]Requirement, bool) {
	reqs := make([]Requirement, 0, len(raw))
	source := fmt.Sprintf("%s %s", key.Name, key.Version)

	for _, r := range raw {
		req, warning, err := ParseRequirementFixup(r, source)
		if err != nil {
			e.logger.Warn("invalid requirement, dropping release",
				"package", key.Name, "version", key.Version, "requirement", r, "error", err)

			return nil, false
		}

		if warning != "" {
			e.logger.Warn(warning)
		}

		reqs = append(reqs, req)
	}

	return reqs, true
}

func removeVersion(versions []string, target string) []string {
	out := make([]string, 0, len(versions))

	for _, v := range versions {
		if v != target {
			out = append(out, v)
		}
	}

	return out
}
