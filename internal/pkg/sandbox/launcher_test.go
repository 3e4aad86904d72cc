// Copyright (c) Contributors to the sandboxrt project.
// This software is licensed under a 3-clause BSD license. Please consult the
// LICENSE.md file distributed with the sources of this project regarding your
// rights to use or distribute this software.

package sandbox

import (
	"os"
	"os/exec"
	"testing"

	"gotest.tools/v3/assert"
)

func TestReapUntilDrainsOtherChildrenFirst(t *testing.T) {
	decoy := exec.Command("true")
	assert.NilError(t, decoy.Start())

	target := exec.Command("sh", "-c", "exit 7")
	assert.NilError(t, target.Start())

	code := reapUntil(target.Process.Pid)
	assert.Equal(t, code, uint32(7))

	// Whether reapUntil already reaped the decoy depends on which child
	// exited first; Wait collects it if not, so no zombie lingers.
	_ = decoy.Wait()
}

func TestReapUntilEncodesSignalDeath(t *testing.T) {
	target := exec.Command("sh", "-c", "kill -TERM $$")
	assert.NilError(t, target.Start())

	code := reapUntil(target.Process.Pid)
	assert.Equal(t, code, uint32(256+15)) // SIGTERM == 15
}

func TestReadWriteFullRoundTrip(t *testing.T) {
	r, w, err := os.Pipe()
	assert.NilError(t, err)
	defer r.Close()
	defer w.Close()

	go func() {
		assert.Check(t, writeFull(w, []byte{1, 2, 3, 4}) == nil)
	}()

	buf := make([]byte, 4)
	assert.NilError(t, readFull(r, buf))
	assert.DeepEqual(t, buf, []byte{1, 2, 3, 4})
}
