// Copyright (c) Contributors to the sandboxrt project.
// This software is licensed under a 3-clause BSD license. Please consult the
// LICENSE.md file distributed with the sources of this project regarding your
// rights to use or distribute this software.

package sandbox

import (
	"os"
	"path/filepath"

	"github.com/pkg/errors"
)

// Mkpath recursively creates directory p with mode 0777, tolerating
// EEXIST. It does nothing if p already exists as a directory.
func Mkpath(p string) error {
	info, err := os.Stat(p)
	if err == nil {
		if info.IsDir() {
			return nil
		}
		return errors.Errorf("%s exists and is not a directory", p)
	}
	if !os.IsNotExist(err) {
		return errors.Wrapf(err, "stat %s", p)
	}

	if err := os.MkdirAll(p, 0o777); err != nil && !os.IsExist(err) {
		return errors.Wrapf(err, "mkdir %s", p)
	}
	return nil
}

// Touch opens p for reading, creating it with mode 0444 if absent.
// EISDIR is silently tolerated because callers may request a touch on a
// path that turns out to be a directory.
func Touch(p string) error {
	f, err := os.OpenFile(p, os.O_RDONLY|os.O_CREATE, 0o444)
	if err != nil {
		if pe, ok := err.(*os.PathError); ok && os.IsExist(pe.Err) {
			return nil
		}
		if isDirErr(err) {
			return nil
		}
		return errors.Wrapf(err, "touch %s", p)
	}
	return f.Close()
}

func isDirErr(err error) bool {
	pe, ok := err.(*os.PathError)
	return ok && pe.Err.Error() == "is a directory"
}

// RmRF best-effort recursively removes p, post-order.
func RmRF(p string) {
	_ = os.RemoveAll(p)
}

// ResolveSymlink resolves src via symlink-follow. It never fails: if src
// does not exist (even when only its final component is missing) or
// resolution fails for any other reason, it returns src unchanged, with
// no symlinks in its existing prefix resolved. Bind-mount source
// resolution is best effort, not authoritative.
func ResolveSymlink(src string) string {
	resolved, err := filepath.EvalSymlinks(src)
	if err != nil {
		return src
	}
	return resolved
}
