package resolver

import (
	"fmt"

	pep440 "github.com/aquasecurity/go-pep440-version"
)

// maxPythonMinor bounds the enumeration of candidate 3.x minor versions.
// 100 comfortably exceeds any plausible CPython 3 release and matches the
// upstream resolver's own choice of enumeration bound.
const maxPythonMinor = 100

// TargetPythonVersions enumerates the minor Python versions a resolution
// should consider: every "3.0".."3.100", plus "4.0", retained only if
// contained by requiresPython. An empty requiresPython retains all of
// them (no constraint).
func TargetPythonVersions(requiresPython string) ([]string, error) {
	var (
		specs  pep440.Specifiers
		hasReq bool
	)

	if requiresPython != "" {
		s, err := pep440.NewSpecifiers(requiresPython)
		if err != nil {
			return nil, fmt.Errorf("parsing requires_python %q: %w", requiresPython, err)
		}

		specs = s
		hasReq = true
	}

	var out []string

	for minor := 0; minor <= maxPythonMinor; minor++ {
		v := fmt.Sprintf("3.%d", minor)
		if !hasReq {
			out = append(out, v)

			continue
		}

		pv, err := pep440.Parse(v)
		if err != nil {
			continue
		}

		if specs.Check(pv) {
			out = append(out, v)
		}
	}

	const four = "4.0"

	if !hasReq {
		out = append(out, four)
	} else if pv, err := pep440.Parse(four); err == nil && specs.Check(pv) {
		out = append(out, four)
	}

	return out, nil
}
