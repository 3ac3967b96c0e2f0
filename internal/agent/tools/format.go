package tools

import (
	"fmt"
	"strings"

	"github.com/quartzlabs/shellbox/internal/shell"
)

// trimEmptyLines strips leading and trailing blank lines. Interior blank
// lines and indentation are preserved exactly.
func trimEmptyLines(content string) string {
	lines := strings.Split(content, "\n")
	start := 0
	for start < len(lines) && strings.TrimSpace(lines[start]) == "" {
		start++
	}
	end := len(lines)
	for end > start && strings.TrimSpace(lines[end-1]) == "" {
		end--
	}
	return strings.Join(lines[start:end], "\n")
}

// truncateOutput trims the content and, if it exceeds limit, keeps the first
// limit characters and appends a notice with the number of dropped lines.
func truncateOutput(content string, limit int) string {
	content = trimEmptyLines(content)
	if len(content) <= limit {
		return content
	}
	kept := content[:limit]
	dropped := countLines(content[limit:])
	return fmt.Sprintf("%s\n... [%d lines truncated] ...", kept, dropped)
}

func countLines(s string) int {
	if s == "" {
		return 0
	}
	return len(strings.Split(s, "\n"))
}

func orNone(s string) string {
	if s == "" {
		return "(none)"
	}
	return s
}

// formatDiagnostics renders the verbose diagnostic block for a completed
// execution.
func formatDiagnostics(command, dir string, res *shell.Result) string {
	var b strings.Builder
	errText := ""
	if res.Err != nil {
		errText = res.Err.Error()
	}
	pids := "(none)"
	if len(res.BackgroundPIDs) > 0 {
		parts := make([]string, len(res.BackgroundPIDs))
		for i, pid := range res.BackgroundPIDs {
			parts[i] = fmt.Sprintf("%d", pid)
		}
		pids = strings.Join(parts, ", ")
	}
	pgid := "(none)"
	if res.PGID != 0 {
		pgid = fmt.Sprintf("%d", res.PGID)
	}

	fmt.Fprintf(&b, "Command: %s\n", command)
	fmt.Fprintf(&b, "Directory: %s\n", orNone(dir))
	fmt.Fprintf(&b, "Stdout: %s\n", orNone(trimEmptyLines(res.Stdout)))
	fmt.Fprintf(&b, "Stderr: %s\n", orNone(trimEmptyLines(res.Stderr)))
	fmt.Fprintf(&b, "Error: %s\n", orNone(errText))
	fmt.Fprintf(&b, "Exit Code: %d\n", res.ExitCode)
	fmt.Fprintf(&b, "Signal: %s\n", orNone(res.Signal))
	fmt.Fprintf(&b, "Background PIDs: %s\n", pids)
	fmt.Fprintf(&b, "Process Group PGID: %s", pgid)
	return b.String()
}

// formatDisplay renders the short human-facing projection: the truncated
// output when there is any, otherwise a fixed message describing how the
// command ended.
func formatDisplay(res *shell.Result, limit int) string {
	// Trim each stream before joining so stdout's trailing newline does not
	// stack with the separator.
	combined := trimEmptyLines(res.Stdout)
	if stderr := trimEmptyLines(res.Stderr); stderr != "" {
		if combined != "" {
			combined += "\n"
		}
		combined += stderr
	}
	if combined != "" {
		return truncateOutput(combined, limit)
	}
	switch {
	case res.Cancelled:
		return "Command was cancelled before it completed."
	case res.Signal != "":
		return fmt.Sprintf("Command terminated by signal %s.", res.Signal)
	case res.ExitCode == 0:
		return "Command completed with no output."
	default:
		return fmt.Sprintf("Command exited with code %d and no output.", res.ExitCode)
	}
}
