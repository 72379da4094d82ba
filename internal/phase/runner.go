package phase

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	"golang.org/x/sync/errgroup"
	"golang.org/x/xerrors"

	paxbuilder "github.com/oreonproject/paxbuilder"
)

// BuildLog accumulates phase narration and captured subprocess output,
// attached verbatim to every BuiltPackage descriptor (spec.md §3).
type BuildLog struct {
	buf bytes.Buffer
}

func (l *BuildLog) Write(p []byte) (int, error) { return l.buf.Write(p) }
func (l *BuildLog) String() string              { return l.buf.String() }

func (l *BuildLog) narrate(format string, args ...any) {
	fmt.Fprintf(&l.buf, format+"\n", args...)
}

// envSlice converts an env map into a deterministically ordered KEY=VALUE
// slice suitable for exec.Cmd.Env.
func envSlice(env map[string]string) []string {
	keys := sortedKeys(env)
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		out = append(out, k+"="+env[k])
	}
	return out
}

// Run executes command via "bash -lc" in dir with env, streaming stdout
// and stderr concurrently into the console and into per-stream buffers,
// then appending them to log under "stdout:"/"stderr:" labels if non-empty
// once the command exits (spec.md
// §4.5). Concurrent draining (rather than reading only after the child
// exits) avoids the pipe back-pressure deadlock spec.md §9 calls out.
func Run(command, dir string, env map[string]string, log *BuildLog) error {
	cmd := exec.Command("bash", "-lc", command)
	cmd.Dir = dir
	cmd.Env = envSlice(env)

	stdoutPipe, err := cmd.StdoutPipe()
	if err != nil {
		return xerrors.Errorf("failed to open stdout pipe for %q: %w", command, err)
	}
	stderrPipe, err := cmd.StderrPipe()
	if err != nil {
		return xerrors.Errorf("failed to open stderr pipe for %q: %w", command, err)
	}

	if err := cmd.Start(); err != nil {
		return xerrors.Errorf("failed to spawn command %q: %w", command, err)
	}

	var stdout, stderr bytes.Buffer
	var g errgroup.Group
	g.Go(func() error {
		_, err := io.Copy(io.MultiWriter(os.Stdout, &stdout), stdoutPipe)
		return err
	})
	g.Go(func() error {
		_, err := io.Copy(io.MultiWriter(os.Stderr, &stderr), stderrPipe)
		return err
	})

	drainErr := g.Wait()
	waitErr := cmd.Wait()

	if drainErr != nil && waitErr == nil {
		waitErr = drainErr
	}

	if strings.TrimSpace(stdout.String()) != "" {
		log.narrate("stdout:\n%s", stdout.String())
	}
	if strings.TrimSpace(stderr.String()) != "" {
		log.narrate("stderr:\n%s", stderr.String())
	}

	if waitErr != nil {
		return &paxbuilder.ShellPhaseFailedError{
			Command: command,
			Stdout:  stdout.String(),
			Stderr:  stderr.String(),
			Cause:   waitErr,
		}
	}
	return nil
}

// RunNarrated is Run, preceded by a "Running <label> command: <command>"
// log line (spec.md §8 scenario 1 checks for exactly this narration for
// build and install commands).
func RunNarrated(label, command, dir string, env map[string]string, log *BuildLog) error {
	log.narrate("Running %s command: %s", label, command)
	return Run(command, dir, env, log)
}

// RunScript runs a lifecycle script fragment (pre_install, post_install,
// ...) under its label (spec.md §4.5).
func RunScript(label, script, dir string, env map[string]string, log *BuildLog) error {
	log.narrate("Running script %s: %s", label, script)
	return Run(script, dir, env, log)
}
