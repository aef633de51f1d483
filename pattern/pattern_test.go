// Copyright (c) 2017, Daniel Martí <mvdan@mvdan.cc>
// See LICENSE for licensing information

package pattern

import (
	"os"
	"path/filepath"
	"sort"
	"testing"

	qt "github.com/frankban/quicktest"
)

func TestRegexp(t *testing.T) {
	t.Parallel()
	tests := []struct {
		pat, want string
	}{
		{``, `^$`},
		{`foo`, `^foo$`},
		{`foo*`, `^foo.*$`},
		{`*foo`, `^.*foo$`},
		{`f?o`, `^f.o$`},
		{`a.b`, `^a\.b$`},
		{`a\*b`, `^a\\.*b$`},
		{`a\?b`, `^a\\.b$`},
		{`[abc]`, `^\[abc\]$`},
	}
	for _, test := range tests {
		test := test
		t.Run(test.pat, func(t *testing.T) {
			t.Parallel()
			c := qt.New(t)
			c.Assert(Regexp(test.pat), qt.Equals, test.want)
		})
	}
}

func TestHasMeta(t *testing.T) {
	t.Parallel()
	c := qt.New(t)
	c.Assert(HasMeta("foo"), qt.IsFalse)
	c.Assert(HasMeta("f\\*oo"), qt.IsFalse)
	c.Assert(HasMeta("foo*"), qt.IsTrue)
	c.Assert(HasMeta("f?o"), qt.IsTrue)
}

func TestQuoteMeta(t *testing.T) {
	t.Parallel()
	c := qt.New(t)
	c.Assert(QuoteMeta("a*b?c"), qt.Equals, `a\*b\?c`)
	c.Assert(QuoteMeta("plain"), qt.Equals, "plain")
}

func TestExpand(t *testing.T) {
	t.Parallel()
	c := qt.New(t)
	dir := t.TempDir()
	names := []string{"alpha.txt", "beta.txt", "gamma.log"}
	for _, n := range names {
		c.Assert(os.WriteFile(filepath.Join(dir, n), nil, 0o644), qt.IsNil)
	}

	got, err := Expand(dir, "*.txt")
	c.Assert(err, qt.IsNil)
	sort.Strings(got)
	c.Assert(got, qt.DeepEquals, []string{"alpha.txt", "beta.txt"})

	got, err = Expand(dir, "g?mma.log")
	c.Assert(err, qt.IsNil)
	c.Assert(got, qt.DeepEquals, []string{"gamma.log"})

	got, err = Expand(dir, "nomatch*")
	c.Assert(err, qt.IsNil)
	c.Assert(got, qt.HasLen, 0)
}
