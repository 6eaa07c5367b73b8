package exec

import (
	"regexp"

	"rush.sh/rush/pattern"
)

// globMatch reports whether subject matches the case/==/!= style glob
// pattern pat (spec §4.3's case-pattern and [[ ]] == rules share one
// pattern language, pattern.Regexp with EntireString).
func globMatch(pat, subject string) bool {
	re, err := pattern.Regexp(pat, pattern.EntireString)
	if err != nil {
		return pat == subject
	}
	r, err := regexp.Compile(re)
	if err != nil {
		return pat == subject
	}
	return r.MatchString(subject)
}
