// Copyright (c) Contributors to the sandboxrt project.
// This software is licensed under a 3-clause BSD license. Please consult the
// LICENSE.md file distributed with the sources of this project regarding your
// rights to use or distribute this software.

package sandbox

import (
	"os/exec"
	"syscall"
	"testing"

	"gotest.tools/v3/assert"
)

func TestConfigureUserNamespaceWritesMaps(t *testing.T) {
	requireUserNamespace(t)

	cmd := exec.Command("sleep", "2")
	cmd.SysProcAttr = &syscall.SysProcAttr{Cloneflags: syscall.CLONE_NEWUSER}
	assert.NilError(t, cmd.Start())
	defer cmd.Process.Kill()

	hostUID, hostGID := syscall.Getuid(), syscall.Getgid()
	err := ConfigureUserNamespace(cmd.Process.Pid, hostUID, hostGID, 0, 0)
	assert.NilError(t, err)
}

func TestWriteProcFileRejectsUnknownPID(t *testing.T) {
	err := writeProcFile(1<<30, "uid_map", "0\t0\t1\n")
	assert.Assert(t, err != nil)
}
