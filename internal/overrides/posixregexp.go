package overrides

import "regexp"

// posixRegexp wraps regexp.Regexp compiled in POSIX mode, matching spec.md
// §4.3's "POSIX extended, case-sensitive, no-submatch mode" requirement.
type posixRegexp struct {
	re *regexp.Regexp
}

func compilePOSIX(pattern string) (*posixRegexp, error) {
	re, err := regexp.CompilePOSIX(pattern)
	if err != nil {
		return nil, err
	}
	return &posixRegexp{re: re}, nil
}

// MatchString reports whether s contains any match of the pattern, per the
// override ruleset's partial-match (not full-anchor) semantics.
func (p *posixRegexp) MatchString(s string) bool {
	return p.re.MatchString(s)
}
