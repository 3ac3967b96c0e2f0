package shell

import (
	"regexp"
	"strings"
)

// CommandRisk is the static classification of a command string. It is derived
// per call and never cached.
type CommandRisk struct {
	RootCommand     string
	HasSubstitution bool
	IsBanned        bool
	IsHighRisk      bool
}

// dangerousPatterns match command segments that always require explicit
// confirmation. Matching runs on the raw segment text, so a quoted
// dangerous-looking substring still flags its segment.
var dangerousPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\brm\s+(-[a-zA-Z]*[rf][a-zA-Z]*\s+)+`), // recursive/force remove
	regexp.MustCompile(`\b(sudo|su|doas)\b`),                   // privilege escalation
	regexp.MustCompile(`\bdd\s+[^|]*of=\s*/dev/`),              // raw disk write
	regexp.MustCompile(`\bmkfs(\.[a-z0-9]+)?\b`),               // disk formatting
}

// pipeToInterpreterPatterns span the pipe, so they are checked before the
// command is split into segments.
var pipeToInterpreterPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\b(curl|wget)\b[^|]*\|\s*(ba|z|fi|da)?sh\b`),
	regexp.MustCompile(`\b(curl|wget)\b[^|]*\|\s*(sudo\s+)?(python|perl|ruby|node)\b`),
}

// RootCommand extracts the first executable name from a command string:
// grouping punctuation is stripped, the string is split on whitespace and
// separators, and the first token is reduced to its last path segment.
// Returns "" for empty or whitespace-only input.
func RootCommand(command string) string {
	trimmed := strings.TrimSpace(command)
	if trimmed == "" {
		return ""
	}
	stripped := strings.Map(func(r rune) rune {
		switch r {
		case '(', ')', '{', '}':
			return -1
		}
		return r
	}, trimmed)
	fields := strings.FieldsFunc(stripped, func(r rune) bool {
		switch r {
		case ' ', '\t', '\n', ';', '&', '|':
			return true
		}
		return false
	})
	if len(fields) == 0 {
		return ""
	}
	root := fields[0]
	if i := strings.LastIndexByte(root, '/'); i >= 0 {
		root = root[i+1:]
	}
	return root
}

// HasCommandSubstitution detects backticks and $( outside single quotes in a
// single left-to-right scan. Substitution literally inside single quotes does
// not count, and an escaped backtick inside double quotes does not count.
func HasCommandSubstitution(command string) bool {
	var inSingle, inDouble, escaped bool
	for i := 0; i < len(command); i++ {
		c := command[i]
		if escaped {
			escaped = false
			continue
		}
		switch c {
		case '\\':
			if !inSingle {
				escaped = true
			}
		case '\'':
			if !inDouble {
				inSingle = !inSingle
			}
		case '"':
			if !inSingle {
				inDouble = !inDouble
			}
		case '`':
			if !inSingle {
				return true
			}
		case '$':
			if !inSingle && i+1 < len(command) && command[i+1] == '(' {
				return true
			}
		}
	}
	return false
}

// splitSegments splits a command on unquoted separators (|, ;, &) using the
// same quote-aware scan as substitution detection. Whitespace-only segments,
// as produced by && or a trailing &, are dropped.
func splitSegments(command string) []string {
	var raw []string
	var inSingle, inDouble, escaped bool
	start := 0
	for i := 0; i < len(command); i++ {
		c := command[i]
		if escaped {
			escaped = false
			continue
		}
		switch c {
		case '\\':
			if !inSingle {
				escaped = true
			}
		case '\'':
			if !inDouble {
				inSingle = !inSingle
			}
		case '"':
			if !inSingle {
				inDouble = !inDouble
			}
		case '|', ';', '&':
			if !inSingle && !inDouble {
				raw = append(raw, command[start:i])
				start = i + 1
			}
		}
	}
	raw = append(raw, command[start:])

	segments := raw[:0]
	for _, seg := range raw {
		if strings.TrimSpace(seg) != "" {
			segments = append(segments, seg)
		}
	}
	return segments
}

// IsBannedCommand reports whether the root of the command is on the banned
// list. Matching is a case-insensitive exact match.
func IsBannedCommand(command string) bool {
	root := strings.ToLower(RootCommand(command))
	if root == "" {
		return false
	}
	_, ok := bannedCommandSet[root]
	return ok
}

// IsHighRiskCommand reports whether the command requires explicit
// confirmation regardless of the ambient approval mode. A compound command is
// high-risk if any quote-aware segment is.
func IsHighRiskCommand(command string) bool {
	for _, re := range pipeToInterpreterPatterns {
		if re.MatchString(command) {
			return true
		}
	}
	for _, segment := range splitSegments(command) {
		if segmentIsHighRisk(segment) {
			return true
		}
	}
	return false
}

func segmentIsHighRisk(segment string) bool {
	if HasCommandSubstitution(segment) {
		return true
	}
	if RootCommand(segment) == "" {
		return true
	}
	for _, re := range dangerousPatterns {
		if re.MatchString(segment) {
			return true
		}
	}
	return IsBannedCommand(segment)
}

// Classify computes the full risk classification for a command.
func Classify(command string) CommandRisk {
	return CommandRisk{
		RootCommand:     RootCommand(command),
		HasSubstitution: HasCommandSubstitution(command),
		IsBanned:        IsBannedCommand(command),
		IsHighRisk:      IsHighRiskCommand(command),
	}
}

// ValidateCommand is the mandatory pre-execution gate. It returns an empty
// string if the command may be executed, or a message describing why not.
// It is independent of, and additional to, approval-layer risk scoring.
func ValidateCommand(command string) string {
	if strings.TrimSpace(command) == "" {
		return "Command cannot be empty."
	}
	if RootCommand(command) == "" {
		return "Could not identify command root to obtain permission from user."
	}
	if HasCommandSubstitution(command) {
		construct := "$("
		if strings.Contains(command, "`") {
			construct = "`"
		}
		return "Command substitution using " + construct + " is not allowed for security reasons."
	}
	return ""
}
