package resolver

import (
	"context"
	"fmt"
	"sort"

	"golang.org/x/sync/errgroup"
)

// sdistRound implements §4.5: any candidate with no wheel in its file
// list must have exactly one sdist, which is handed to the injected
// BuildDriver in parallel. Runs only once the inner queue and wheel
// validation have both converged.
func (e *Engine) sdistRound(ctx context.Context) (bool, error) {
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

		if s.resolvedSdists[key] {
			continue
		}

		files := s.filesCache[name][cand.Version]

		hasWheel := false

		var sdists []FileRecord

		for _, f := range files {
			if f.IsWheel() {
				hasWheel = true

				break
			}

			sdists = append(sdists, f)
		}

		if hasWheel {
			continue
		}

		if len(sdists) != 1 {
			filenames := make([]string, len(files))
			for i, f := range files {
				filenames[i] = f.Filename
			}

			return false, &AmbiguousSdistError{Name: name, Version: cand.Version, Files: filenames}
		}

		targets = append(targets, target{key: key, file: sdists[0]})
	}

	if len(targets) == 0 {
		return false, nil
	}

	e.logger.Debug("building sdists", "count", len(targets))

	results := make([]Metadata, len(targets))
	errs := make([]error, len(targets))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.fetchConcurrency)

	for i, t := range targets {
		i, t := i, t

		g.Go(func() error {
			md, err := e.builder.BuildSdist(gctx, t.file)
			results[i] = md
			errs[i] = err

			return nil
		})
	}

	_ = g.Wait()

	for i, t := range targets {
		if errs[i] != nil {
			return false, &BuildError{Name: t.key.Name, Version: t.key.Version, Err: errs[i]}
		}
	}

	for i, t := range targets {
		newReqs, ok := e.parseReleaseRequirements(results[i].RequiresDist, t.key)
		if !ok {
			return false, &BuildError{
				Name: t.key.Name, Version: t.key.Version,
				Err: fmt.Errorf("invalid requirement in sdist metadata for %s", t.file.Filename),
			}
		}

		oldReqs := s.requirements[t.key]
		s.requirements[t.key] = newReqs
		s.requirementsCredible[t.key] = true
		s.changedMetadata[t.key] = oldReqs
		s.resolvedSdists[t.key] = true

		s.enqueue(t.key.Name)

		for _, r := range newReqs {
			s.enqueueIfEligible(r.Name)
		}
	}

	s.sortQueue()

	return true, nil
}
