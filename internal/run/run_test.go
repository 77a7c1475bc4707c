package run

import (
	"bytes"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	"golang.org/x/sys/unix"

	"gsh/internal/jobs"
	"gsh/internal/parse"
)

func haveCmd(t *testing.T, name string) bool {
	t.Helper()
	_, err := exec.LookPath(name)
	return err == nil
}

func newRunner() *Runner {
	return &Runner{Jobs: jobs.New(8)}
}

func TestPipelineIdentity(t *testing.T) {
	if !haveCmd(t, "printf") || !haveCmd(t, "cat") {
		t.Skip("printf or cat not available")
	}
	dir := t.TempDir()
	outPath := filepath.Join(dir, "out")
	cl := &parse.Cmdline{
		Stages: [][]string{{"printf", "hello"}, {"cat"}, {"cat"}},
		Out:    outPath,
		Raw:    "printf hello | cat | cat > out",
	}
	if err := newRunner().Execute(cl); err != nil {
		t.Fatalf("Execute returned error: %v", err)
	}
	data, err := os.ReadFile(outPath)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	if string(data) != "hello" {
		t.Fatalf("unexpected output: %q", string(data))
	}
}

func TestRedirectionRoundTrip(t *testing.T) {
	if !haveCmd(t, "cat") {
		t.Skip("cat not available")
	}
	dir := t.TempDir()
	src := filepath.Join(dir, "src")
	dst := filepath.Join(dir, "dst")
	content := []byte("line one\nline two\n")
	if err := os.WriteFile(src, content, 0o644); err != nil {
		t.Fatalf("write source: %v", err)
	}
	cl := &parse.Cmdline{
		Stages: [][]string{{"cat"}},
		In:     src,
		Out:    dst,
		Raw:    "cat < src > dst",
	}
	if err := newRunner().Execute(cl); err != nil {
		t.Fatalf("Execute returned error: %v", err)
	}
	data, err := os.ReadFile(dst)
	if err != nil {
		t.Fatalf("read destination: %v", err)
	}
	if !bytes.Equal(data, content) {
		t.Fatalf("round trip mismatch: %q", string(data))
	}
}

func TestOutputTruncatesExisting(t *testing.T) {
	if !haveCmd(t, "printf") {
		t.Skip("printf not available")
	}
	dir := t.TempDir()
	out := filepath.Join(dir, "out")
	if err := os.WriteFile(out, []byte("previous contents that are long"), 0o644); err != nil {
		t.Fatalf("seed output: %v", err)
	}
	cl := &parse.Cmdline{Stages: [][]string{{"printf", "new"}}, Out: out}
	if err := newRunner().Execute(cl); err != nil {
		t.Fatalf("Execute returned error: %v", err)
	}
	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	if string(data) != "new" {
		t.Fatalf("expected truncation, got %q", string(data))
	}
}

func TestMissingInputFile(t *testing.T) {
	if !haveCmd(t, "cat") {
		t.Skip("cat not available")
	}
	r := newRunner()
	cl := &parse.Cmdline{
		Stages: [][]string{{"cat"}},
		In:     filepath.Join(t.TempDir(), "nope"),
	}
	if err := r.Execute(cl); err == nil {
		t.Fatalf("expected error for missing input file")
	}
}

func TestCommandNotFound(t *testing.T) {
	r := newRunner()
	cl := &parse.Cmdline{Stages: [][]string{{"gsh-no-such-command"}}}
	if err := r.Execute(cl); err == nil {
		t.Fatalf("expected error for unknown command")
	}
	if r.Status() != StatusNotFound {
		t.Fatalf("expected status %d, got %d", StatusNotFound, r.Status())
	}
}

func TestPipelineSpawnFailureReapsChildren(t *testing.T) {
	if !haveCmd(t, "printf") || !haveCmd(t, "cat") {
		t.Skip("printf or cat not available")
	}
	before := openFDs(t)
	r := newRunner()
	cl := &parse.Cmdline{
		Stages: [][]string{{"printf", "x"}, {"gsh-no-such-command"}, {"cat"}},
		Raw:    "printf x | gsh-no-such-command | cat",
	}
	if err := r.Execute(cl); err == nil {
		t.Fatalf("expected error for unknown pipeline stage")
	}
	if r.Status() != StatusNotFound {
		t.Fatalf("expected status %d, got %d", StatusNotFound, r.Status())
	}
	if after := openFDs(t); after != before {
		t.Fatalf("descriptor leak: %d before, %d after", before, after)
	}
}

func TestEmptyStageAborts(t *testing.T) {
	if !haveCmd(t, "printf") {
		t.Skip("printf not available")
	}
	before := openFDs(t)
	r := newRunner()
	cl := &parse.Cmdline{Stages: [][]string{{"printf", "x"}, {}}}
	if err := r.Execute(cl); err == nil {
		t.Fatalf("expected error for empty stage")
	}
	if after := openFDs(t); after != before {
		t.Fatalf("descriptor leak: %d before, %d after", before, after)
	}
}

func TestNoDescriptorLeakOnSuccess(t *testing.T) {
	if !haveCmd(t, "printf") || !haveCmd(t, "cat") {
		t.Skip("printf or cat not available")
	}
	dir := t.TempDir()
	out := filepath.Join(dir, "out")
	before := openFDs(t)
	cl := &parse.Cmdline{
		Stages: [][]string{{"printf", "x"}, {"cat"}},
		Out:    out,
	}
	if err := newRunner().Execute(cl); err != nil {
		t.Fatalf("Execute returned error: %v", err)
	}
	if after := openFDs(t); after != before {
		t.Fatalf("descriptor leak: %d before, %d after", before, after)
	}
}

func TestBackgroundCommand(t *testing.T) {
	if !haveCmd(t, "sleep") {
		t.Skip("sleep not available")
	}
	r := newRunner()
	cl := &parse.Cmdline{
		Stages:     [][]string{{"sleep", "60"}},
		Background: true,
		Raw:        "sleep 60 &",
	}
	start := time.Now()
	if err := r.Execute(cl); err != nil {
		t.Fatalf("Execute returned error: %v", err)
	}
	if time.Since(start) > 5*time.Second {
		t.Fatalf("background execution blocked")
	}

	entries := r.Jobs.List()
	if len(entries) != 1 {
		t.Fatalf("expected one tracked job, got %d", len(entries))
	}
	if entries[0].Cmdline != "sleep 60 &" {
		t.Fatalf("unexpected job text: %q", entries[0].Cmdline)
	}

	pid := entries[0].PID
	_ = unix.Kill(pid, unix.SIGKILL)
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if len(r.Jobs.List()) == 0 {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("job never left the listing after exit")
}

func TestBackgroundPipelineTracksFirstStage(t *testing.T) {
	if !haveCmd(t, "sleep") || !haveCmd(t, "cat") {
		t.Skip("sleep or cat not available")
	}
	r := newRunner()
	cl := &parse.Cmdline{
		Stages:     [][]string{{"sleep", "60"}, {"cat"}},
		Background: true,
		Raw:        "sleep 60 | cat &",
	}
	if err := r.Execute(cl); err != nil {
		t.Fatalf("Execute returned error: %v", err)
	}
	entries := r.Jobs.List()
	if len(entries) != 1 {
		t.Fatalf("expected one tracked job, got %d", len(entries))
	}
	_ = unix.Kill(entries[0].PID, unix.SIGKILL)
}

func TestEmptyCmdlineIsNoop(t *testing.T) {
	r := newRunner()
	if err := r.Execute(nil); err != nil {
		t.Fatalf("Execute(nil) returned error: %v", err)
	}
	if err := r.Execute(&parse.Cmdline{}); err != nil {
		t.Fatalf("Execute(empty) returned error: %v", err)
	}
}

// openFDs counts this process's open descriptors via /proc.
func openFDs(t *testing.T) int {
	t.Helper()
	entries, err := os.ReadDir("/proc/self/fd")
	if err != nil {
		t.Skip("/proc/self/fd not available")
	}
	return len(entries)
}
