// Copyright (c) Contributors to the sandboxrt project.
// This software is licensed under a 3-clause BSD license. Please consult the
// LICENSE.md file distributed with the sources of this project regarding your
// rights to use or distribute this software.

package sandbox

import (
	"os/exec"
	"syscall"
	"testing"
	"time"

	"gotest.tools/v3/assert"
)

func TestForwardSignalsRelaysToTarget(t *testing.T) {
	cmd := exec.Command("sleep", "5")
	assert.NilError(t, cmd.Start())
	defer cmd.Process.Kill()

	stop := make(chan struct{})
	defer close(stop)
	go ForwardSignals(stop)

	SetForwardTarget(cmd.Process.Pid)
	assert.NilError(t, syscall.Kill(syscall.Getpid(), syscall.SIGUSR1))

	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()

	select {
	case err := <-done:
		exitErr, ok := err.(*exec.ExitError)
		assert.Assert(t, ok)
		ws := exitErr.Sys().(syscall.WaitStatus)
		assert.Assert(t, ws.Signaled())
		assert.Equal(t, ws.Signal(), syscall.SIGUSR1)
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for forwarded signal to terminate target")
	}
}

func TestSetForwardTargetIgnoredWhenZero(t *testing.T) {
	SetForwardTarget(0)
	stop := make(chan struct{})
	go ForwardSignals(stop)
	defer close(stop)

	// Sending a forwarded signal with no live target must not panic or block.
	assert.NilError(t, syscall.Kill(syscall.Getpid(), syscall.SIGUSR2))
	time.Sleep(50 * time.Millisecond)
}
