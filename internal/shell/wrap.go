package shell

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/google/uuid"
)

// Flavor selects the command-wrapping strategy. It is decided once when the
// runner is constructed, keyed on the detected shell.
type Flavor int

const (
	// FlavorPOSIX wraps with sh-style grouping and $? status capture.
	FlavorPOSIX Flavor = iota
	// FlavorFish wraps with begin/end blocks and $status.
	FlavorFish
	// FlavorPortable runs through the embedded interpreter, without a
	// wrapper or process-group enumeration. Used on Windows.
	FlavorPortable
)

func (f Flavor) String() string {
	switch f {
	case FlavorPOSIX:
		return "posix"
	case FlavorFish:
		return "fish"
	case FlavorPortable:
		return "portable"
	default:
		return "unknown"
	}
}

type wrapper struct {
	flavor    Flavor
	shellPath string
}

func detectWrapper() wrapper {
	if runtime.GOOS == "windows" {
		return wrapper{flavor: FlavorPortable}
	}
	shellPath := os.Getenv("SHELL")
	if shellPath == "" {
		shellPath = "/bin/bash"
	}
	if strings.Contains(filepath.Base(shellPath), "fish") {
		return wrapper{flavor: FlavorFish, shellPath: shellPath}
	}
	return wrapper{flavor: FlavorPOSIX, shellPath: shellPath}
}

// pidFilePath returns a uniquely named temp file for the process-group
// enumeration handshake. One file per invocation, never shared.
func pidFilePath() string {
	return filepath.Join(os.TempDir(), fmt.Sprintf("shellbox_pgrep_%s.tmp", uuid.NewString()))
}

// Wrap builds the command line that runs the original command, captures its
// exit code, writes every PID sharing the process group to pidFile, then
// re-exits with the original code. Newlines keep trailing separators in the
// user command from colliding with the grouping syntax.
func (w wrapper) Wrap(command, pidFile string) string {
	switch w.flavor {
	case FlavorFish:
		return fmt.Sprintf("begin\n%s\nend\nset __code $status\npgrep -g 0 >%q 2>/dev/null\nexit $__code", command, pidFile)
	default:
		return fmt.Sprintf("{\n%s\n}\n__code=$?\npgrep -g 0 >%q 2>/dev/null\nexit $__code", command, pidFile)
	}
}

// Unwrap substitutes wrapper artifacts in s back to the original command
// text, so surfaced errors never leak the handshake plumbing.
func (w wrapper) Unwrap(s, command, pidFile string) string {
	s = strings.ReplaceAll(s, w.Wrap(command, pidFile), command)
	s = strings.ReplaceAll(s, pidFile, "")
	return s
}
