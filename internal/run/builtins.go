package run

import (
	"fmt"
	"io"
	"os"
	"strconv"
)

// Builtin executes a built-in command and returns an exit status.
type Builtin func(stdin io.Reader, stdout, stderr io.Writer, args []string, r *Runner) int

func defaultBuiltins() map[string]Builtin {
	return map[string]Builtin{
		"cd":   builtinCD,
		"exit": builtinExit,
		"jobs": builtinJobs,
		"pwd":  builtinPWD,
	}
}

func builtinJobs(stdin io.Reader, stdout, stderr io.Writer, args []string, r *Runner) int {
	_ = stdin
	_ = stderr
	_ = args
	entries := r.Jobs.List()
	if len(entries) == 0 {
		fmt.Fprintln(stdout, "(no background jobs)")
		return 0
	}
	for _, e := range entries {
		cmd := e.Cmdline
		if cmd == "" {
			cmd = "(unknown)"
		}
		fmt.Fprintf(stdout, "[%d] Running  %s\n", e.PID, cmd)
	}
	return 0
}

func builtinCD(stdin io.Reader, stdout, stderr io.Writer, args []string, r *Runner) int {
	_ = stdin
	_ = stdout
	_ = r
	var dir string
	if len(args) > 1 {
		dir = args[1]
	} else {
		h, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintln(stderr, err)
			return 1
		}
		dir = h
	}
	if err := os.Chdir(dir); err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	return 0
}

func builtinPWD(stdin io.Reader, stdout, stderr io.Writer, args []string, r *Runner) int {
	_ = stdin
	_ = args
	_ = r
	cwd, err := os.Getwd()
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	fmt.Fprintln(stdout, cwd)
	return 0
}

func builtinExit(stdin io.Reader, stdout, stderr io.Writer, args []string, r *Runner) int {
	_ = stdin
	_ = stdout
	_ = stderr
	code := 0
	if len(args) > 1 {
		if n, err := strconv.Atoi(args[1]); err == nil {
			code = n
		}
	}
	if r != nil {
		r.exitRequested = true
		r.exitCode = code
	}
	return code
}
