package completion

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// NewCommandSource returns a Source that lists names (typically a
// Shell's builtins + declared functions + everything on PATH) matching
// partial as a prefix. names is called fresh on every completion
// request rather than cached, since functions/aliases can change
// between prompts.
func NewCommandSource(names func() []string) Source {
	return commandSource{names: names}
}

type commandSource struct{ names func() []string }

func (c commandSource) Complete(_ []string, wordIndex int, partial string) []string {
	if wordIndex != 0 {
		return nil
	}
	var out []string
	for _, n := range c.names() {
		if strings.HasPrefix(n, partial) {
			out = append(out, n)
		}
	}
	sort.Strings(out)
	return out
}

// NewPathSource returns a Source that lists directory entries under
// cwd() matching partial as a path prefix, appending a trailing slash
// to directory candidates (the readline convention for "keep tabbing
// through this directory").
func NewPathSource(cwd func() string) Source {
	return pathSource{cwd: cwd}
}

type pathSource struct{ cwd func() string }

func (p pathSource) Complete(_ []string, _ int, partial string) []string {
	dir, prefix := filepath.Split(partial)
	base := dir
	if !filepath.IsAbs(base) {
		base = filepath.Join(p.cwd(), dir)
	}
	entries, err := os.ReadDir(base)
	if err != nil {
		return nil
	}
	var out []string
	for _, e := range entries {
		if !strings.HasPrefix(e.Name(), prefix) {
			continue
		}
		cand := dir + e.Name()
		if e.IsDir() {
			cand += "/"
		}
		out = append(out, cand)
	}
	sort.Strings(out)
	return out
}

// NewFlagSource returns a Source that looks up line's command word
// (word 0) in flags and lists whichever of its entries start with
// partial, for completing "-" / "--" options of known builtins.
func NewFlagSource(flags map[string][]string) Source {
	return flagSource{flags: flags}
}

type flagSource struct{ flags map[string][]string }

func (f flagSource) Complete(line []string, _ int, partial string) []string {
	if len(line) == 0 {
		return nil
	}
	var out []string
	for _, fl := range f.flags[line[0]] {
		if strings.HasPrefix(fl, partial) {
			out = append(out, fl)
		}
	}
	sort.Strings(out)
	return out
}
