package resolver

import (
	"context"
	"encoding/json"
	"sort"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

// validateWheelsRound implements §4.4: for each candidate whose
// requirements aren't yet credible, fetch the wheel's own METADATA member
// by byte range and reconcile it against the index-derived requirements,
// which are sometimes missing or platform-narrow. Returns whether it
// enqueued any new work.
func (e *Engine) validateWheelsRound(ctx context.Context) (bool, error) {
	s := e.state

	type target struct {
		key  PackageKey
		file FileRecord
	}

	names := make([]string, 0, len(s.candidates))
	for name := range s.candidates {
		names = append(names, name)
	}

	sort.Strings(names)

	var targets []target

	for _, name := range names {
		cand := s.candidates[name]
		key := PackageKey{Name: name, Version: cand.Version}

		if s.requirementsCredible[key] {
			continue
		}

		var wheel FileRecord

		found := false

		for _, f := range s.filesCache[name][cand.Version] {
			if f.IsWheel() {
				wheel = f
				found = true

				break
			}
		}

		if !found {
			continue
		}

		targets = append(targets, target{key: key, file: wheel})
	}

	if len(targets) == 0 {
		return false, nil
	}

	e.logger.Debug("validating wheel metadata", "count", len(targets))

	results := make([]Metadata, len(targets))
	errs := make([]error, len(targets))
	cached := make([]bool, len(targets))

	allCached := true

	for i, t := range targets {
		data, ok, _ := e.cache.GetBlob("wheel_metadata", t.file.Filename)
		if !ok {
			allCached = false

			continue
		}

		var md Metadata
		if err := json.Unmarshal(data, &md); err != nil {
			allCached = false

			continue
		}

		results[i] = md
		cached[i] = true
	}

	if !allCached {
		// At least one wheel's metadata isn't cached; fetch the missing
		// ones concurrently and leave the rest as already resolved above.
		sem := semaphore.NewWeighted(int64(e.fetchConcurrency))
		g, gctx := errgroup.WithContext(ctx)

		for i, t := range targets {
			if cached[i] {
				continue
			}

			i, t := i, t

			g.Go(func() error {
				if err := sem.Acquire(gctx, 1); err != nil {
					return err
				}
				defer sem.Release(1)

				md, err := e.registry.GetWheelMetadata(gctx, t.file)
				results[i] = md
				errs[i] = err

				if err == nil {
					if data, merr := json.Marshal(md); merr == nil {
						if err := e.cache.PutBlob("wheel_metadata", t.file.Filename, data); err != nil {
							e.logger.Debug("caching wheel metadata failed",
								"package", t.key.Name, "version", t.key.Version, "error", err)
						}
					}
				}

				return nil
			})
		}

		if err := g.Wait(); err != nil {
			return false, err
		}
	}

	progressed := false

	for i, t := range targets {
		if errs[i] != nil {
			e.logger.Warn("wheel metadata fetch failed, dropping version",
				"package", t.key.Name, "version", t.key.Version, "error", errs[i])
			s.versionsCache[t.key.Name] = removeVersion(s.versionsCache[t.key.Name], t.key.Version)
			s.enqueue(t.key.Name)

			progressed = true

			continue
		}

		newReqs, ok := e.parseReleaseRequirements(results[i].RequiresDist, t.key)
		if !ok {
			s.versionsCache[t.key.Name] = removeVersion(s.versionsCache[t.key.Name], t.key.Version)
			s.enqueue(t.key.Name)

			progressed = true

			continue
		}

		oldReqs := s.requirements[t.key]

		if reqsEqual(oldReqs, newReqs) {
			s.requirementsCredible[t.key] = true

			continue
		}

		e.logger.Warn("wheel metadata diverges from index metadata",
			"package", t.key.Name, "version", t.key.Version)

		s.requirements[t.key] = newReqs
		s.requirementsCredible[t.key] = true
		s.changedMetadata[t.key] = oldReqs

		s.enqueue(t.key.Name)

		for _, r := range symmetricDifferenceReqs(oldReqs, newReqs) {
			s.enqueueIfEligible(r.Name)
		}

		progressed = true
	}

	if progressed {
		s.sortQueue()
	}

	return progressed, nil
}

func reqsEqual(a, b []Requirement) bool {
	if len(a) != len(b) {
		return false
	}

	aset := make(map[string]bool, len(a))
	for _, r := range a {
		aset[r.String()] = true
	}

	for _, r := range b {
		if !aset[r.String()] {
			return false
		}
	}

	return true
}
