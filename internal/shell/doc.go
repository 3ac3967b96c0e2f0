// Package shell provides safe shell execution for agent tool calls.
//
// It has three layers:
//
//  1. Static classification: Classify and ValidateCommand judge a command
//     string before anything runs (root command extraction, command
//     substitution detection, banned-list membership, high-risk patterns).
//
//  2. A wrapped host-shell runner: on POSIX systems commands are wrapped so
//     the exit code is captured and every PID in the spawned process group
//     is written to a uniquely named temp file before the wrapper re-exits
//     with the original code. The fish shell gets its own wrapping form.
//
//  3. A portable fallback: on Windows commands run through the embedded
//     POSIX interpreter (mvdan.cc/sh/v3). Commands should use forward
//     slashes (/) as path separators to work, even on Windows.
//
// The stateful Shell type maintains cwd and environment across commands:
//
//	sh := shell.NewShell(shell.Options{WorkingDir: "/tmp"})
//	sh.Exec(ctx, "export FOO=bar")
//	sh.Exec(ctx, "echo $FOO")  // Will print "bar"
package shell
