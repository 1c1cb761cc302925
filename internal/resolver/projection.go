package resolver

import "log/slog"

// ForEnvironment returns a new Resolution containing only the packages
// reachable from the root requirements under a concrete environment and a
// set of active root extras: an iterative BFS that evaluates each
// outgoing requirement's marker against env and the current package's
// active extras, propagating newly activated extras to a fixed point
// exactly as §4.6 describes. The receiver is never mutated.
func (r *Resolution) ForEnvironment(env Environment, rootExtras []string) *Resolution {
	selected := make(map[string]bool)
	activeExtras := make(map[string][]string)
	warned := make(map[string]bool)

	var queue []string

	queued := make(map[string]bool)

	enqueue := func(name string) {
		if queued[name] {
			return
		}

		queue = append(queue, name)
		queued[name] = true
	}

	byName := make(map[string]PackageKey, len(r.Packages))
	for key := range r.Packages {
		byName[key.Name] = key
	}

	for _, req := range r.Root {
		if req.Marker != nil {
			ok, warnings := req.Marker.EvaluateAndReport(env, rootExtras)
			reportMarkerWarnings(warned, "(root)", req, warnings)

			if !ok {
				continue
			}
		}

		selected[req.Name] = true
		activeExtras[req.Name] = extrasUnion(activeExtras[req.Name], req.Extras)
		enqueue(req.Name)
	}

	for len(queue) > 0 {
		name := queue[0]
		queue = queue[1:]
		queued[name] = false

		key, ok := byName[name]
		if !ok {
			continue
		}

		for _, req := range r.Packages[key].Requirements {
			live := true

			var warnings []Warning

			if req.Marker != nil {
				live, warnings = req.Marker.EvaluateAndReport(env, activeExtras[name])
			}

			reportMarkerWarnings(warned, name, req, warnings)

			if !live {
				continue
			}

			changed := false

			if !selected[req.Name] {
				selected[req.Name] = true
				changed = true
			}

			merged := extrasUnion(activeExtras[req.Name], req.Extras)
			if !extrasEqual(merged, activeExtras[req.Name]) {
				activeExtras[req.Name] = merged
				changed = true
			}

			if changed {
				enqueue(req.Name)
			}
		}
	}

	packages := make(map[PackageKey]ReleaseData, len(selected))

	for name := range selected {
		if key, ok := byName[name]; ok {
			packages[key] = r.Packages[key]
		}
	}

	return &Resolution{Root: r.Root, Packages: packages}
}

// reportMarkerWarnings surfaces each distinct (package, requirement,
// warning) triple at most once, as §4.6 requires.
func reportMarkerWarnings(warned map[string]bool, pkg string, req Requirement, warnings []Warning) {
	for _, w := range warnings {
		key := pkg + "\x00" + req.String() + "\x00" + w.Message
		if warned[key] {
			continue
		}

		warned[key] = true

		slog.Default().Warn("unevaluable marker during projection",
			"package", pkg, "requirement", req.String(), "warning", w.Message)
	}
}
