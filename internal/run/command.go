package run

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"syscall"

	"gsh/internal/parse"
)

// Shell status codes for commands that never ran.
const (
	// StatusNotFound is reported when the program cannot be resolved.
	StatusNotFound = 127
	// StatusLaunchFailed is reported for any other launch failure.
	StatusLaunchFailed = 126
)

// LaunchError reports that a stage never became its program. It is returned
// to the caller directly instead of surfacing as a child exit code.
type LaunchError struct {
	Name string
	Err  error
}

func (e *LaunchError) Error() string {
	return fmt.Sprintf("%s: %v", e.Name, e.Err)
}

func (e *LaunchError) Unwrap() error {
	return e.Err
}

func launchStatus(err error) int {
	if errors.Is(err, exec.ErrNotFound) || errors.Is(err, os.ErrNotExist) {
		return StatusNotFound
	}
	return StatusLaunchFailed
}

// ExecuteCommand runs exactly one program. A nil in or out inherits the
// runner's own stream; a non-nil descriptor is owned by this call and is
// closed in the parent whether or not the spawn succeeds. In background
// mode the pid is handed to the job table under cmdline.
func (r *Runner) ExecuteCommand(argv []string, in, out *os.File, background bool, cmdline string) error {
	if len(argv) == 0 {
		closeEndpoints(in, out)
		return fmt.Errorf("empty command")
	}
	proc, err := r.spawn(argv, in, out)
	closeEndpoints(in, out)
	if err != nil {
		r.lastStatus = launchStatus(err)
		return err
	}
	if background {
		r.registerJob(proc.Pid, cmdline)
		r.lastStatus = 0
		return nil
	}
	state, err := proc.Wait()
	if err != nil {
		r.lastStatus = 1
		return nil
	}
	r.lastStatus = exitCode(state)
	return nil
}

// spawn starts argv with the given streams. The child receives exactly
// stdin, stdout, stderr; no other descriptor is inherited.
func (r *Runner) spawn(argv []string, in, out *os.File) (*os.Process, error) {
	path, err := exec.LookPath(argv[0])
	if err != nil {
		return nil, &LaunchError{Name: argv[0], Err: err}
	}
	if in == nil {
		in = r.stdin()
	}
	if out == nil {
		out = r.stdout()
	}
	proc, err := os.StartProcess(path, argv, &os.ProcAttr{
		Files: []*os.File{in, out, r.stderr()},
		Env:   os.Environ(),
	})
	if err != nil {
		return nil, &LaunchError{Name: argv[0], Err: err}
	}
	return proc, nil
}

// openEndpoints resolves the command line's redirections. Input must
// pre-exist; output is created or truncated, mode 0644. On failure nothing
// stays open.
func openEndpoints(cl *parse.Cmdline) (in, out *os.File, err error) {
	if cl.In != "" {
		in, err = os.Open(cl.In)
		if err != nil {
			return nil, nil, fmt.Errorf("open %s: %w", cl.In, err)
		}
	}
	if cl.Out != "" {
		out, err = os.OpenFile(cl.Out, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
		if err != nil {
			if in != nil {
				in.Close()
			}
			return nil, nil, fmt.Errorf("open %s: %w", cl.Out, err)
		}
	}
	return in, out, nil
}

func closeEndpoints(in, out *os.File) {
	if in != nil {
		in.Close()
	}
	if out != nil {
		out.Close()
	}
}

func exitCode(state *os.ProcessState) int {
	if state == nil {
		return 0
	}
	if code := state.ExitCode(); code >= 0 {
		return code
	}
	if ws, ok := state.Sys().(syscall.WaitStatus); ok && ws.Signaled() {
		return 128 + int(ws.Signal())
	}
	return 1
}
