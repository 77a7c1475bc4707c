// Package run executes parsed command lines: it spawns one process per
// pipeline stage, wires the standard streams, and either waits or hands the
// job to the background table.
package run

import (
	"fmt"
	"os"

	"gsh/internal/jobs"
	"gsh/internal/parse"
)

// Runner executes command lines against a job table.
type Runner struct {
	Jobs     *jobs.Table
	Stdin    *os.File
	Stdout   *os.File
	Stderr   *os.File
	Builtins map[string]Builtin

	lastStatus    int
	exitRequested bool
	exitCode      int
}

// ExitRequested reports whether the exit builtin has been invoked.
func (r *Runner) ExitRequested() bool {
	if r == nil {
		return false
	}
	return r.exitRequested
}

// ExitCode returns the requested exit code.
func (r *Runner) ExitCode() int {
	if r == nil {
		return 0
	}
	return r.exitCode
}

// Status returns the status of the last executed command line.
func (r *Runner) Status() int {
	if r == nil {
		return 0
	}
	return r.lastStatus
}

// Execute runs one parsed command line. Previously finished background jobs
// are reaped first, unconditionally. A nil or empty command line is a no-op.
func (r *Runner) Execute(cl *parse.Cmdline) error {
	if r.Jobs == nil {
		r.Jobs = jobs.New(0)
	}
	if r.Builtins == nil {
		r.Builtins = defaultBuiltins()
	}
	r.Jobs.ReapFinished()

	if cl == nil || len(cl.Stages) == 0 {
		return nil
	}
	if len(cl.Stages) == 1 {
		argv := cl.Stages[0]
		if len(argv) == 0 {
			return fmt.Errorf("empty command")
		}
		if builtin, ok := r.Builtins[argv[0]]; ok {
			r.lastStatus = builtin(r.stdin(), r.stdout(), r.stderr(), argv, r)
			return nil
		}
		in, out, err := openEndpoints(cl)
		if err != nil {
			r.lastStatus = 1
			return err
		}
		return r.ExecuteCommand(argv, in, out, cl.Background, cl.Raw)
	}
	return r.runPipeline(cl)
}

// pipePair holds one pipe; either end is nil once closed or handed off.
type pipePair struct {
	r, w *os.File
}

// pipeline carries every descriptor and pid the run owns at a given moment,
// so one rollback can release them all.
type pipeline struct {
	run   *Runner
	pipes []pipePair
	in    *os.File // input endpoint; nil = inherit or already closed
	out   *os.File // output endpoint; nil = inherit or already closed
	procs []*os.Process
}

func (r *Runner) runPipeline(cl *parse.Cmdline) error {
	n := len(cl.Stages)
	p := &pipeline{run: r}

	// All pipes exist before any stage is spawned.
	for i := 0; i < n-1; i++ {
		pr, pw, err := os.Pipe()
		if err != nil {
			p.rollback()
			r.lastStatus = 1
			return fmt.Errorf("pipe: %w", err)
		}
		p.pipes = append(p.pipes, pipePair{r: pr, w: pw})
	}

	// Endpoint redirections are opened exactly once, before any spawn.
	var err error
	p.in, p.out, err = openEndpoints(cl)
	if err != nil {
		p.rollback()
		r.lastStatus = 1
		return err
	}

	for i, argv := range cl.Stages {
		if len(argv) == 0 {
			p.rollback()
			r.lastStatus = 1
			return fmt.Errorf("empty command in pipeline at stage %d", i)
		}
		in := p.in
		if i > 0 {
			in = p.pipes[i-1].r
		}
		out := p.out
		if i < n-1 {
			out = p.pipes[i].w
		}
		proc, err := r.spawn(argv, in, out)
		if err != nil {
			p.rollback()
			r.lastStatus = launchStatus(err)
			return err
		}
		p.procs = append(p.procs, proc)

		// The parent no longer needs what stage i consumed. Closing write
		// ends promptly is what gives downstream readers end-of-stream.
		if i == 0 && p.in != nil {
			p.in.Close()
			p.in = nil
		}
		if i > 0 {
			p.pipes[i-1].r.Close()
			p.pipes[i-1].r = nil
			p.pipes[i-1].w.Close()
			p.pipes[i-1].w = nil
		}
	}

	// Only the output endpoint can still be open here.
	p.closeAll()

	if cl.Background {
		// Only the first stage is tracked; the rest run unmanaged.
		r.registerJob(p.procs[0].Pid, cl.Raw)
		r.lastStatus = 0
		return nil
	}
	for _, proc := range p.procs {
		state, err := proc.Wait()
		if err != nil {
			r.lastStatus = 1
			continue
		}
		r.lastStatus = exitCode(state)
	}
	return nil
}

// closeAll releases every descriptor the pipeline still owns. Fields are
// nil'd so repeated calls are harmless.
func (p *pipeline) closeAll() {
	for i := range p.pipes {
		if p.pipes[i].r != nil {
			p.pipes[i].r.Close()
			p.pipes[i].r = nil
		}
		if p.pipes[i].w != nil {
			p.pipes[i].w.Close()
			p.pipes[i].w = nil
		}
	}
	if p.in != nil {
		p.in.Close()
		p.in = nil
	}
	if p.out != nil {
		p.out.Close()
		p.out = nil
	}
}

// rollback is the single failure path: close everything still open, then
// reap every stage already spawned so no child is orphaned.
func (p *pipeline) rollback() {
	p.closeAll()
	for _, proc := range p.procs {
		_, _ = proc.Wait()
	}
	p.procs = nil
}

func (r *Runner) registerJob(pid int, cmdline string) {
	if _, err := r.Jobs.Add(pid, cmdline); err != nil {
		fmt.Fprintf(r.stderr(), "jobs: %v\n", err)
	}
}

func (r *Runner) stdin() *os.File {
	if r.Stdin != nil {
		return r.Stdin
	}
	return os.Stdin
}

func (r *Runner) stdout() *os.File {
	if r.Stdout != nil {
		return r.Stdout
	}
	return os.Stdout
}

func (r *Runner) stderr() *os.File {
	if r.Stderr != nil {
		return r.Stderr
	}
	return os.Stderr
}
