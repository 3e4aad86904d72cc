// Copyright (c) Contributors to the sandboxrt project.
// This software is licensed under a 3-clause BSD license. Please consult the
// LICENSE.md file distributed with the sources of this project regarding your
// rights to use or distribute this software.

package sandbox

import (
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"syscall"
	"testing"

	"golang.org/x/sys/unix"
	"gotest.tools/v3/assert"
)

// requireUserNamespace skips the test unless the kernel actually allows
// creating a user namespace here (attempt it for real rather than
// guessing from euid/sysctl).
func requireUserNamespace(t *testing.T) {
	t.Helper()
	cmd := exec.Command("/bin/true")
	cmd.SysProcAttr = &syscall.SysProcAttr{Cloneflags: syscall.CLONE_NEWUSER}
	if err := cmd.Run(); err != nil {
		t.Skipf("user namespaces unavailable: %s", err)
	}
}

func TestBindMountDirectory(t *testing.T) {
	requireUserNamespace(t)

	src := t.TempDir()
	assert.NilError(t, os.WriteFile(filepath.Join(src, "marker"), []byte("x"), 0o644))

	destRoot := t.TempDir()
	dest := filepath.Join(destRoot, "mnt")

	err := withNewMountNamespace(func() error {
		return BindMount(src, dest, false)
	})
	assert.NilError(t, err)
}

func TestBindHostNodeSkipsMissingSource(t *testing.T) {
	root := t.TempDir()
	assert.NilError(t, BindHostNode(root, "/no/such/device/node", false))

	_, err := os.Stat(filepath.Join(root, "/no/such/device/node"))
	assert.Assert(t, os.IsNotExist(err))
}

// withNewMountNamespace runs fn after unsharing a user+mount namespace on
// the current, locked OS thread, mirroring the capability model
// mount_the_world relies on in Unprivileged mode: the namespace's creator
// holds CAP_SYS_ADMIN inside it without needing the outside's help.
func withNewMountNamespace(fn func() error) error {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	if err := unix.Unshare(unix.CLONE_NEWUSER | unix.CLONE_NEWNS); err != nil {
		return err
	}
	return fn()
}
