package expand

import (
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"rush.sh/rush/pattern"
)

// globFields applies pathname expansion (spec §4.3 step 6) to each
// accumulated field. A field that never saw unprotected text, or whose
// unprotected text carries no glob metacharacter, passes through
// unchanged. Otherwise the field's glob-pattern rendering (quoted runs
// already escaped by quoteMeta) is matched against the filesystem; a
// pattern with zero matches expands to itself literally (spec §8).
func (e *Expander) globFields(fields []fieldAcc) []string {
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		lit := f.literal.String()
		pat := f.glob.String()
		if !f.hasUnprotected || !pattern.HasMeta(pat) {
			out = append(out, lit)
			continue
		}
		matches, err := globPattern(pat)
		if err != nil || len(matches) == 0 {
			out = append(out, lit)
			continue
		}
		out = append(out, matches...)
	}
	return out
}

// globPattern walks pat component by component, matching literal
// segments against the filesystem directly and metacharacter segments
// via pattern.Regexp, exactly the way a shell resolves a multi-segment
// glob like "dir/*.go".
func globPattern(pat string) ([]string, error) {
	if pat == "" {
		return nil, nil
	}
	abs := strings.HasPrefix(pat, "/")
	comps := strings.Split(pat, "/")
	dirs := []string{"."}
	if abs {
		dirs = []string{"/"}
		comps = comps[1:]
	}
	for _, comp := range comps {
		if comp == "" {
			continue
		}
		var next []string
		if !pattern.HasMeta(comp) {
			for _, d := range dirs {
				p := filepath.Join(d, comp)
				if _, err := os.Lstat(p); err == nil {
					next = append(next, p)
				}
			}
		} else {
			reSrc, err := pattern.Regexp(comp, pattern.EntireString)
			if err != nil {
				return nil, err
			}
			re, err := regexp.Compile(reSrc)
			if err != nil {
				return nil, err
			}
			for _, d := range dirs {
				entries, err := os.ReadDir(d)
				if err != nil {
					continue
				}
				var names []string
				for _, ent := range entries {
					name := ent.Name()
					if !strings.HasPrefix(comp, ".") && strings.HasPrefix(name, ".") {
						continue
					}
					if re.MatchString(name) {
						names = append(names, name)
					}
				}
				sort.Strings(names)
				for _, name := range names {
					next = append(next, filepath.Join(d, name))
				}
			}
		}
		dirs = next
		if len(dirs) == 0 {
			return nil, nil
		}
	}
	return dirs, nil
}
