// Copyright (c) Contributors to the sandboxrt project.
// This software is licensed under a 3-clause BSD license. Please consult the
// LICENSE.md file distributed with the sources of this project regarding your
// rights to use or distribute this software.

package sandbox

import (
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"syscall"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

const probeOptsEnv = "SANDBOXRT_PROBE_OPTS"

// probeReexecEnv is the re-exec sentinel for the probe binary, analogous
// to ReexecEnv for the launcher: the actual overlay attempt must run
// inside a disposable namespace, which in Go means a fresh process image.
const probeReexecEnv = "SANDBOXRT_PROBE_REEXEC"

// ProbeOptions configures one overlay capability probe attempt.
type ProbeOptions struct {
	RootFS      string
	ScratchDir  string
	Tmpfs       bool
	UserXattr   bool
	UID         int
	GID         int
	TmpfsSize   string
	Verbose     bool
}

// RunProbe re-execs itself into a disposable user+mount+PID+UTS
// namespace and reports whether the overlay-and-rename liveness check
// succeeds there. It is the entry point for cmd/sandboxrt-probe.
func RunProbe(opts ProbeOptions) bool {
	if os.Getenv(probeReexecEnv) == "1" {
		var reexecOpts ProbeOptions
		if err := json.Unmarshal([]byte(os.Getenv(probeOptsEnv)), &reexecOpts); err != nil {
			fmt.Fprintf(os.Stderr, "sandboxrt-probe: decode re-exec options: %s\n", err)
			return false
		}
		return runProbeInNamespace(reexecOpts)
	}

	self, err := os.Executable()
	if err != nil {
		fmt.Fprintf(os.Stderr, "sandboxrt-probe: resolve executable: %s\n", err)
		return false
	}

	encoded, err := json.Marshal(opts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "sandboxrt-probe: encode options: %s\n", err)
		return false
	}
	cmd := &exec.Cmd{
		Path:   self,
		Args:   []string{self},
		Env:    append(os.Environ(), probeReexecEnv+"=1", probeOptsEnv+"="+string(encoded)),
		Stdin:  os.Stdin,
		Stdout: os.Stdout,
		Stderr: os.Stderr,
		SysProcAttr: &syscall.SysProcAttr{
			Cloneflags: cloneFlags,
		},
	}
	if err := cmd.Run(); err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			return exitErr.ExitCode() == 0
		}
		return false
	}
	return true
}

// runProbeInNamespace performs the actual overlay attempt; it is called
// only from within the freshly cloned disposable namespace.
func runProbeInNamespace(opts ProbeOptions) bool {
	if opts.Tmpfs {
		probeDir := filepath.Join(opts.ScratchDir, ".probe")
		if err := Mkpath(probeDir); err != nil {
			fmt.Fprintf(os.Stderr, "sandboxrt-probe: mkdir %s: %s\n", probeDir, err)
			return false
		}
		if err := unix.Mount("tmpfs", probeDir, "tmpfs", 0, fmt.Sprintf("size=%s", opts.TmpfsSize)); err != nil {
			fmt.Fprintf(os.Stderr, "sandboxrt-probe: mount tmpfs at %s: %s\n", probeDir, err)
			return false
		}
		opts.ScratchDir = probeDir
	}

	dest := filepath.Join(opts.ScratchDir, "merged")
	if err := Mkpath(dest); err != nil {
		fmt.Fprintf(os.Stderr, "sandboxrt-probe: mkdir %s: %s\n", dest, err)
		return false
	}

	if !MountOverlay(opts.RootFS, dest, "probe", opts.ScratchDir, opts.UserXattr) {
		return false
	}
	defer unix.Unmount(dest, unix.MNT_DETACH)

	if err := os.Chown(dest, opts.UID, opts.GID); err != nil {
		fmt.Fprintf(os.Stderr, "sandboxrt-probe: chown %s: %s\n", dest, err)
	}

	if err := renameLivenessCheck(dest); err != nil {
		fmt.Fprintf(os.Stderr, "sandboxrt-probe: rename liveness check failed: %s\n", err)
		return false
	}
	return true
}

// renameLivenessCheck exercises a directory rename on the freshly
// mounted overlay, catching kernel bugs that only manifest on rename
// (notably around package-manager style workloads) rather than on the
// mount call itself.
func renameLivenessCheck(mergedDir string) error {
	probeSubdir := filepath.Join(mergedDir, ".sandboxrt-probe")
	if err := Mkpath(probeSubdir); err != nil {
		return errors.Wrap(err, "create probe subdirectory")
	}
	renamed := probeSubdir + "-renamed"
	if err := os.Rename(probeSubdir, renamed); err != nil {
		return errors.Wrap(err, "rename probe subdirectory")
	}
	if err := os.RemoveAll(renamed); err != nil {
		return errors.Wrap(err, "remove renamed probe subdirectory")
	}
	return nil
}
