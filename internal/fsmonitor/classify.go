package fsmonitor

import "strings"

// PathClass is one of the four buckets every watched-root-relative path
// falls into.
type PathClass int

const (
	Worktree PathClass = iota
	DotGit
	InsideDotGit
	InsideDotGitWithCookiePrefix
)

// Classify determines which bucket rel (a path relative to the watched
// root) falls into. dotGitName is usually ".git"; cookiePrefix is the
// configured prefix clients use for synchronization cookie files,
// documented in parafsconfig.
func Classify(rel, dotGitName, cookiePrefix string) PathClass {
	rel = strings.TrimPrefix(rel, "./")
	if rel == dotGitName {
		return DotGit
	}
	prefix := dotGitName + "/"
	if !strings.HasPrefix(rel, prefix) {
		return Worktree
	}
	inner := strings.TrimPrefix(rel, prefix)
	if cookiePrefix != "" && strings.HasPrefix(inner, cookiePrefix) {
		return InsideDotGitWithCookiePrefix
	}
	return InsideDotGit
}

// CookieName extracts the bare cookie name from a path already classified
// as InsideDotGitWithCookiePrefix.
func CookieName(rel, dotGitName string) string {
	return strings.TrimPrefix(rel, dotGitName+"/")
}
