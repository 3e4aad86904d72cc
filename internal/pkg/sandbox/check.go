// Copyright (c) Contributors to the sandboxrt project.
// This software is licensed under a 3-clause BSD license. Please consult the
// LICENSE.md file distributed with the sources of this project regarding your
// rights to use or distribute this software.

package sandbox

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"syscall"
)

// Check aborts the process if err is non-nil, printing the diagnostic
// format "<file>:<line>, ABORTED (<errno>: <strerror>)!". Fatal setup
// paths call this and never return to the caller in an inconsistent
// state.
func Check(err error) {
	if err == nil {
		return
	}
	_, file, line, ok := runtime.Caller(1)
	if !ok {
		file, line = "???", 0
	}

	errno, strerror := errnoOf(err)
	fmt.Fprintf(os.Stderr, "%s:%d, ABORTED (%d: %s)!\n", filepath.Base(file), line, errno, strerror)
	os.Exit(1)
}

// Checkf behaves like Check but formats a caller-supplied message ahead of
// the errno detail, for setup failures that aren't themselves a bare
// syscall error (e.g. configuration errors).
func Checkf(err error, format string, a ...interface{}) {
	if err == nil {
		return
	}
	_, file, line, ok := runtime.Caller(1)
	if !ok {
		file, line = "???", 0
	}

	msg := fmt.Sprintf(format, a...)
	errno, strerror := errnoOf(err)
	fmt.Fprintf(os.Stderr, "%s:%d, ABORTED (%s: %d: %s)!\n", filepath.Base(file), line, msg, errno, strerror)
	os.Exit(1)
}

func errnoOf(err error) (int, string) {
	var errno syscall.Errno
	for e := err; e != nil; {
		if n, ok := e.(syscall.Errno); ok {
			errno = n
			break
		}
		unwrapper, ok := e.(interface{ Unwrap() error })
		if !ok {
			break
		}
		e = unwrapper.Unwrap()
	}
	if errno == 0 {
		return 0, err.Error()
	}
	return int(errno), errno.Error()
}
