package shell

import "strings"

// safeCommands are read-only invocations that never need per-call approval.
// Entries with a space are prefix matches on the normalized command.
var safeCommands = []string{
	// Core utils
	"basename",
	"cal",
	"cat",
	"date",
	"df",
	"dirname",
	"du",
	"echo",
	"env",
	"file",
	"find",
	"free",
	"grep",
	"groups",
	"head",
	"hostname",
	"id",
	"ls",
	"printenv",
	"ps",
	"pwd",
	"sort",
	"stat",
	"tail",
	"time",
	"top",
	"tree",
	"type",
	"uname",
	"uniq",
	"uptime",
	"wc",
	"whatis",
	"whereis",
	"which",
	"whoami",

	// Git
	"git blame",
	"git branch",
	"git config --get",
	"git config --list",
	"git describe",
	"git diff",
	"git grep",
	"git log",
	"git ls-files",
	"git ls-remote",
	"git remote",
	"git rev-parse",
	"git shortlog",
	"git show",
	"git status",
	"git tag",

	// Go
	"go build",
	"go doc",
	"go env",
	"go fmt",
	"go help",
	"go list",
	"go test",
	"go version",
	"go vet",
}

// bannedCommands always require explicit confirmation and are rejected by the
// hard override in the bash tool's risk predicate: shell interpreters,
// network fetchers, eval-style commands, destructive removal, and browser
// launchers.
var bannedCommands = []string{
	// Shell interpreters
	"bash",
	"csh",
	"dash",
	"fish",
	"ksh",
	"sh",
	"tcsh",
	"zsh",

	// Network/Download tools
	"aria2c",
	"axel",
	"curl",
	"curlie",
	"http-prompt",
	"httpie",
	"nc",
	"scp",
	"wget",
	"xh",

	// Eval-style
	"eval",
	"exec",
	"source",

	// Destructive removal
	"rm",
	"rmdir",
	"shred",

	// Browser launchers
	"chrome",
	"firefox",
	"open",
	"safari",
	"xdg-open",
}

var bannedCommandSet = func() map[string]struct{} {
	set := make(map[string]struct{}, len(bannedCommands))
	for _, cmd := range bannedCommands {
		set[cmd] = struct{}{}
	}
	return set
}()

// IsSafeReadOnly reports whether the command matches the safe read-only list.
// Compound commands qualify only when every quote-aware segment does.
func IsSafeReadOnly(command string) bool {
	segments := splitSegments(command)
	if len(segments) == 0 {
		return false
	}
	for _, segment := range segments {
		if !segmentIsSafeReadOnly(segment) {
			return false
		}
	}
	return true
}

func segmentIsSafeReadOnly(segment string) bool {
	normalized := strings.Join(strings.Fields(segment), " ")
	for _, safe := range safeCommands {
		if strings.Contains(safe, " ") {
			if normalized == safe || strings.HasPrefix(normalized, safe+" ") {
				return true
			}
		} else if RootCommand(segment) == safe {
			return true
		}
	}
	return false
}
