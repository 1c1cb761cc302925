package resolver

import (
	"regexp"
	"strings"

	pep440 "github.com/aquasecurity/go-pep440-version"
)

// liveEdges filters reqs to those whose marker is satisfiable under the
// given active extras and candidate Python versions — the edges that are
// actually live from a candidate bearing those extras.
func liveEdges(reqs []Requirement, extras []string, pythonVersions []string) []Requirement {
	var live []Requirement

	for _, r := range reqs {
		if r.Marker == nil || r.Marker.EvaluateExtrasAndPythonVersions(extras, pythonVersions) {
			live = append(live, r)
		}
	}

	return live
}

// symmetricDifferenceReqs returns the requirements present in exactly one
// of oldReqs and newReqs, compared by their canonical string form.
func symmetricDifferenceReqs(oldReqs, newReqs []Requirement) []Requirement {
	oldSet := make(map[string]bool, len(oldReqs))
	for _, r := range oldReqs {
		oldSet[r.String()] = true
	}

	newSet := make(map[string]bool, len(newReqs))
	for _, r := range newReqs {
		newSet[r.String()] = true
	}

	var diff []Requirement

	for _, r := range oldReqs {
		if !newSet[r.String()] {
			diff = append(diff, r)
		}
	}

	for _, r := range newReqs {
		if !oldSet[r.String()] {
			diff = append(diff, r)
		}
	}

	return diff
}

// versionSatisfiesSpecifier reports whether version satisfies specifier,
// a conjunction of PEP 440 comparison clauses. An empty specifier always
// matches.
func versionSatisfiesSpecifier(version, specifier string) bool {
	if strings.TrimSpace(specifier) == "" {
		return true
	}

	ok, err := MatchesAll(version, []string{specifier})

	return err == nil && ok
}

var clauseOperatorRe = regexp.MustCompile(`^[><=!~^]+`)

var releaseTupleRe = regexp.MustCompile(`^(?:\d+!)?(\d+(?:\.\d+)*)`)

// releaseTuple extracts the release segment of a PEP 440 version string
// (the dotted numeric run, ignoring any epoch prefix and any pre/post/dev/
// local segment), the unit prerelease gating operates on.
func releaseTuple(raw string) string {
	raw = strings.TrimSpace(raw)
	if m := releaseTupleRe.FindStringSubmatch(raw); m != nil {
		return m[1]
	}

	return raw
}

// allowedPrereleases computes the set of release tuples for which a
// prerelease version of a package may be selected, from its incoming
// requirements and its full known version list.
func allowedPrereleases(edges []IncomingEdge, knownVersions []string) map[string]bool {
	var allowed map[string]bool

	started := false

loop:
	for _, edge := range edges {
		spec := edge.Requirement.Specifier
		if spec == "" {
			allowed = map[string]bool{}

			break loop
		}

		var releases []string

		anyPrerelease := false

		for _, clause := range strings.Split(spec, ",") {
			v := clauseOperatorRe.ReplaceAllString(strings.TrimSpace(clause), "")

			pv, err := pep440.Parse(v)
			if err != nil {
				continue
			}

			if pv.IsPreRelease() {
				anyPrerelease = true

				releases = append(releases, releaseTuple(v))
			}
		}

		if !anyPrerelease {
			allowed = map[string]bool{}

			break loop
		}

		set := make(map[string]bool, len(releases))
		for _, r := range releases {
			set[r] = true
		}

		if !started {
			allowed = set
			started = true
		} else {
			allowed = intersectSets(allowed, set)
		}
	}

	if allowed == nil {
		allowed = map[string]bool{}
	}

	if allVersionsArePrerelease(knownVersions) {
		promoted := make(map[string]bool, len(knownVersions))
		for _, v := range knownVersions {
			promoted[releaseTuple(v)] = true
		}

		allowed = promoted
	}

	return allowed
}

func intersectSets(a, b map[string]bool) map[string]bool {
	out := make(map[string]bool)

	for k := range a {
		if b[k] {
			out[k] = true
		}
	}

	return out
}

func allVersionsArePrerelease(versions []string) bool {
	if len(versions) == 0 {
		return false
	}

	for _, v := range versions {
		pv, err := pep440.Parse(v)
		if err != nil || !pv.IsPreRelease() {
			return false
		}
	}

	return true
}

func reverseStrings(s []string) []string {
	out := make([]string, len(s))
	for i, v := range s {
		out[len(s)-1-i] = v
	}

	return out
}
