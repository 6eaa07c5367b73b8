// Copyright (c) 2017, Daniel Martí <mvdan@mvdan.cc>
// See LICENSE for licensing information

package pattern

import (
	"regexp"
	"testing"

	qt "github.com/frankban/quicktest"
)

var regexpTests = []struct {
	pat     string
	mode    Mode
	want    string
	wantErr bool

	mustMatch    []string
	mustNotMatch []string
}{
	{pat: ``, want: ``},
	{pat: `foo`, want: `foo`},
	{pat: `.`, want: `\.`},
	{pat: `foo*`, want: `(?s)foo.*`},
	{pat: `foo?`, want: `(?s)foo.`},
	{
		pat: `foo*`, mode: EntireString, want: `(?s)^foo.*$`,
		mustMatch:    []string{"foo", "foobar"},
		mustNotMatch: []string{"barfoo"},
	},
	{
		pat: `[abc]`, mode: EntireString, want: `(?s)^[abc]$`,
		mustMatch:    []string{"a", "b", "c"},
		mustNotMatch: []string{"d", "ab"},
	},
	{
		pat: `[!abc]`, mode: EntireString, want: `(?s)^[^abc]$`,
		mustMatch:    []string{"d"},
		mustNotMatch: []string{"a"},
	},
	{
		pat: `[a-c]x`, mode: EntireString, want: `(?s)^[a-c]x$`,
		mustMatch:    []string{"ax", "bx", "cx"},
		mustNotMatch: []string{"dx"},
	},
	{pat: `\*`, want: `\*`},
	{pat: `[[:digit:]]`, want: `(?s)[[:digit:]]`, mustMatch: []string{"5"}, mustNotMatch: []string{"a"}},
	{pat: `[`, wantErr: true},
	{pat: `[z-a]`, wantErr: true},
}

func TestRegexp(t *testing.T) {
	c := qt.New(t)
	for _, tc := range regexpTests {
		got, err := Regexp(tc.pat, tc.mode)
		if tc.wantErr {
			c.Assert(err, qt.IsNotNil, qt.Commentf("pattern %q", tc.pat))
			continue
		}
		c.Assert(err, qt.IsNil, qt.Commentf("pattern %q", tc.pat))
		c.Assert(got, qt.Equals, tc.want, qt.Commentf("pattern %q", tc.pat))
		if len(tc.mustMatch) == 0 && len(tc.mustNotMatch) == 0 {
			continue
		}
		rx := regexp.MustCompile(got)
		for _, s := range tc.mustMatch {
			c.Assert(rx.MatchString(s), qt.IsTrue, qt.Commentf("pattern %q vs %q", tc.pat, s))
		}
		for _, s := range tc.mustNotMatch {
			c.Assert(rx.MatchString(s), qt.IsFalse, qt.Commentf("pattern %q vs %q", tc.pat, s))
		}
	}
}

func TestHasMeta(t *testing.T) {
	c := qt.New(t)
	c.Assert(HasMeta("foo"), qt.IsFalse)
	c.Assert(HasMeta(`foo\*bar`), qt.IsFalse)
	c.Assert(HasMeta("foo*bar"), qt.IsTrue)
	c.Assert(HasMeta("foo?bar"), qt.IsTrue)
	c.Assert(HasMeta("[abc]"), qt.IsTrue)
}
