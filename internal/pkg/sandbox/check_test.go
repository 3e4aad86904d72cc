// Copyright (c) Contributors to the sandboxrt project.
// This software is licensed under a 3-clause BSD license. Please consult the
// LICENSE.md file distributed with the sources of this project regarding your
// rights to use or distribute this software.

package sandbox

import (
	"fmt"
	"testing"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
	"gotest.tools/v3/assert"
)

func TestErrnoOfUnwrapsWrappedErrno(t *testing.T) {
	wrapped := errors.Wrap(unix.ENOENT, "open config")
	errno, msg := errnoOf(wrapped)
	assert.Equal(t, errno, int(unix.ENOENT))
	assert.Equal(t, msg, unix.ENOENT.Error())
}

func TestErrnoOfFallsBackToErrorString(t *testing.T) {
	err := fmt.Errorf("plain failure")
	errno, msg := errnoOf(err)
	assert.Equal(t, errno, 0)
	assert.Equal(t, msg, "plain failure")
}
