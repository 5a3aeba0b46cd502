package fsmonitor

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	cases := []struct {
		rel  string
		want PathClass
	}{
		{"src/main.go", Worktree},
		{".git", DotGit},
		{".git/index", InsideDotGit},
		{".git/fsmonitor-cookie/1234-1", InsideDotGitWithCookiePrefix},
	}
	for _, c := range cases {
		got := Classify(c.rel, ".git", "fsmonitor-cookie/")
		assert.Equal(t, c.want, got, "path %q", c.rel)
	}
}

func TestCookieName(t *testing.T) {
	assert.Equal(t, "fsmonitor-cookie/1234-1", CookieName(".git/fsmonitor-cookie/1234-1", ".git"))
}
