// Copyright (c) Contributors to the sandboxrt project.
// This software is licensed under a 3-clause BSD license. Please consult the
// LICENSE.md file distributed with the sources of this project regarding your
// rights to use or distribute this software.

package sandbox

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/exec"
	"os/signal"
	"syscall"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"

	"github.com/sandboxrt/sandboxrt/pkg/sylog"
)

// ReexecEnv, when present in a process's environment, tells main() to skip
// CLI parsing and jump straight to RunNamespaceInit: this is the re-exec
// sentinel that stands in for continuing after clone(2) in a single-image
// design where cloning is instead done by starting a fresh process image.
const ReexecEnv = "SANDBOXRT_REEXEC"

// configEnv carries the JSON-encoded Config across the re-exec, since the
// child is a fresh process image rather than a forked copy of this one.
const configEnv = "SANDBOXRT_CONFIG"

// resolvedModeEnv carries the mode the outside process already decided,
// distinct from ReexecEnv's ForceModeEnv: that one is pinned to
// "unprivileged" for the user command's own environment so a nested
// sandboxrt invocation never re-elevates, which would otherwise mask the
// mode namespace-init itself must still follow.
const resolvedModeEnv = "SANDBOXRT_RESOLVED_MODE"

// namespace-init's two ends of the handshake pipes are passed as inherited
// file descriptors, laid out by ExtraFiles at these fixed positions.
const (
	childPipeReadFD   = 3 // namespace-init reads its go-ahead here
	parentPipeWriteFD = 4 // namespace-init writes readiness/exit code here
)

// cloneFlags are the namespaces created for both the launcher's child and
// the overlay probe's disposable namespace.
const cloneFlags = unix.CLONE_NEWPID | unix.CLONE_NEWNS | unix.CLONE_NEWUSER | unix.CLONE_NEWUTS

// Run drives the outside half of the launcher state machine and returns
// the process exit status to report to the OS.
func Run(cfg *Config) int {
	mode := DetermineMode()
	host := ResolveHostIdentity()
	sylog.Debugf("execution mode: %s", mode)

	if mode == Privileged {
		Checkf(unix.Unshare(unix.CLONE_NEWNS), "unshare mount namespace")
		Checkf(unix.Mount("", "/", "", unix.MS_PRIVATE|unix.MS_REC, ""), "mark / private")
		Checkf(MountTheWorld(cfg.RootFS, cfg.Mounts, host.UID, host.GID, cfg.PersistDir, cfg.TmpfsSize, cfg.UserXattr),
			"compose root filesystem (privileged)")
	}

	childPipeRead, childPipeWrite, err := os.Pipe()
	Checkf(err, "create child_pipe")
	parentPipeRead, parentPipeWrite, err := os.Pipe()
	Checkf(err, "create parent_pipe")

	encoded, err := json.Marshal(cfg)
	Checkf(err, "encode configuration for re-exec")

	self, err := os.Executable()
	Checkf(err, "resolve own executable path")

	cmd := &exec.Cmd{
		Path: self,
		Args: []string{self},
		Env: append(ChildEnviron(os.Environ()),
			ReexecEnv+"=1", configEnv+"="+string(encoded), resolvedModeEnv+"="+mode.String(), sylog.GetEnvVar()),
		Stdin:      os.Stdin,
		Stdout:     os.Stdout,
		Stderr:     os.Stderr,
		ExtraFiles: []*os.File{childPipeRead, parentPipeWrite},
		SysProcAttr: &syscall.SysProcAttr{
			Cloneflags: cloneFlags,
		},
	}

	Checkf(cmd.Start(), "clone namespace-init")
	childPipeRead.Close()
	parentPipeWrite.Close()

	var ready [1]byte
	Checkf(readFull(parentPipeRead, ready[:]), "await namespace-init readiness")

	Checkf(ConfigureUserNamespace(cmd.Process.Pid, host.UID, host.GID, cfg.UID, cfg.GID), "configure user namespace")
	Checkf(writeFull(childPipeWrite, []byte{1}), "signal namespace-init to proceed")

	stop := make(chan struct{})
	SetForwardTarget(cmd.Process.Pid)
	go ForwardSignals(stop)
	defer close(stop)

	waitErr := cmd.Wait()
	if waitErr != nil {
		if _, ok := waitErr.(*exec.ExitError); !ok {
			Checkf(waitErr, "wait for namespace-init")
		}
	}

	var codeBuf [4]byte
	Checkf(readFull(parentPipeRead, codeBuf[:]), "collect inner exit code")
	code := binary.LittleEndian.Uint32(codeBuf[:])

	restoreControllingTerminal()

	if code >= 256 {
		sig := syscall.Signal(code - 256)
		signalSelf(sig)
		return 1 // unreachable if the signal is fatal, kept for non-fatal stops
	}
	return int(code)
}

// RunNamespaceInit drives the namespace-init side of the state machine
// and never returns: it always terminates the process via os.Exit.
func RunNamespaceInit() {
	cfg := new(Config)
	Checkf(json.Unmarshal([]byte(os.Getenv(configEnv)), cfg), "decode re-exec configuration")

	childPipeRead := os.NewFile(childPipeReadFD, "child_pipe_read")
	parentPipeWrite := os.NewFile(parentPipeWriteFD, "parent_pipe_write")

	Checkf(unix.Prctl(unix.PR_SET_DUMPABLE, 1, 0, 0, 0), "set dumpable")

	Checkf(writeFull(parentPipeWrite, []byte{1}), "signal readiness to outside")
	var proceed [1]byte
	Checkf(readFull(childPipeRead, proceed[:]), "await ID-map installation")

	mode := Unprivileged
	if os.Getenv(resolvedModeEnv) == Privileged.String() {
		mode = Privileged
	}
	switch mode {
	case Privileged:
		Checkf(syscall.Setgid(cfg.GID), "setgid")
		Checkf(syscall.Setuid(cfg.UID), "setuid")
		Checkf(MountProcfs(cfg.RootFS, cfg.UID, cfg.GID), "remount proc in new PID namespace")
	default:
		Checkf(MountTheWorld(cfg.RootFS, cfg.Mounts, cfg.UID, cfg.GID, cfg.PersistDir, cfg.TmpfsSize, cfg.UserXattr),
			"compose root filesystem (unprivileged)")
	}

	if cfg.Hostname != "" {
		if err := unix.Sethostname([]byte(cfg.Hostname)); err != nil {
			sylog.Debugf("sethostname %q failed (ignored): %s", cfg.Hostname, err)
		}
	}

	pivotOrChroot(cfg.RootFS)

	workdir := cfg.Workdir
	if workdir == "" {
		workdir = "/"
	}
	Checkf(Mkpath(workdir), "create working directory")
	Checkf(os.Chdir(workdir), "chdir into working directory")

	argv := cfg.FullCommand()
	childEnv := ChildEnviron(os.Environ())

	path, err := exec.LookPath(argv[0])
	Checkf(err, "resolve command %q", argv[0])

	userCmd := &exec.Cmd{
		Path:   path,
		Args:   argv,
		Env:    childEnv,
		Stdin:  os.Stdin,
		Stdout: os.Stdout,
		Stderr: os.Stderr,
	}
	if err := userCmd.Start(); err != nil {
		fmt.Fprintf(os.Stderr, "sandboxrt: exec %s: %s\n", argv[0], err)
		os.Exit(1)
	}

	stop := make(chan struct{})
	SetForwardTarget(userCmd.Process.Pid)
	go ForwardSignals(stop)

	code := reapUntil(userCmd.Process.Pid)
	close(stop)

	var codeBuf [4]byte
	binary.LittleEndian.PutUint32(codeBuf[:], code)
	Checkf(writeFull(parentPipeWrite, codeBuf[:]), "report inner exit code")
	os.Exit(0)
}

// reapUntil acts as the namespace's init reaper: it drains every exited
// child (as PID 1 in the new PID namespace must, to avoid leaking
// zombies) and returns the encoded exit status once targetPID itself has
// been reaped.
func reapUntil(targetPID int) uint32 {
	for {
		var status syscall.WaitStatus
		pid, err := syscall.Wait4(-1, &status, 0, nil)
		if err != nil {
			if errors.Is(err, syscall.EINTR) {
				continue
			}
			if errors.Is(err, syscall.ECHILD) {
				return 1
			}
			continue
		}
		if pid != targetPID {
			continue
		}
		switch {
		case status.Exited():
			return uint32(status.ExitStatus())
		case status.Signaled():
			return uint32(256 + int(status.Signal()))
		default:
			continue
		}
	}
}

// pivotOrChroot relocates the process into rootDir via pivot_root,
// falling back to chroot when pivot_root is unavailable (e.g. rootDir is
// not a mount point in some restricted environments). This is the only
// recoverable setup failure in the relocation step.
func pivotOrChroot(rootDir string) {
	Checkf(os.Chdir(rootDir), "chdir into root filesystem")

	if err := unix.PivotRoot(".", "."); err != nil {
		sylog.Debugf("pivot_root failed (%s), falling back to chroot", err)
		Checkf(syscall.Chroot(rootDir), "chroot fallback")
		Checkf(os.Chdir("/"), "chdir after chroot")
		return
	}

	Checkf(unix.Unmount(".", unix.MNT_DETACH), "detach old root")
	Checkf(os.Chdir("/"), "chdir after pivot_root")
}

// restoreControllingTerminal returns foreground process group control to
// the outside process's own group after the inner command exits, best
// effort (some environments have no controlling terminal at all).
func restoreControllingTerminal() {
	pgrp, err := unix.Getpgid(os.Getpid())
	if err != nil {
		return
	}
	for _, fd := range []int{int(os.Stdin.Fd()), int(os.Stdout.Fd()), int(os.Stderr.Fd())} {
		if err := unix.IoctlSetPointerInt(fd, unix.TIOCSPGRP, pgrp); err == nil {
			return
		}
	}
}

// signalSelf re-raises sig on the current process with default
// disposition, so the launcher's own death mirrors the inner command's
// signal death.
func signalSelf(sig syscall.Signal) {
	signal.Reset(sig)
	_ = syscall.Kill(os.Getpid(), sig)
}

func readFull(r io.Reader, buf []byte) error {
	n, err := io.ReadFull(r, buf)
	if err != nil {
		return err
	}
	if n != len(buf) {
		return fmt.Errorf("short read: got %d of %d bytes", n, len(buf))
	}
	return nil
}

func writeFull(w io.Writer, buf []byte) error {
	n, err := w.Write(buf)
	if err != nil {
		return err
	}
	if n != len(buf) {
		return fmt.Errorf("short write: wrote %d of %d bytes", n, len(buf))
	}
	return nil
}
