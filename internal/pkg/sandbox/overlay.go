// Copyright (c) Contributors to the sandboxrt project.
// This software is licensed under a 3-clause BSD license. Please consult the
// LICENSE.md file distributed with the sources of this project regarding your
// rights to use or distribute this software.

package sandbox

import (
	"fmt"
	"path/filepath"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"

	"github.com/sandboxrt/sandboxrt/pkg/sylog"
)

// statfs is swappable so compatibility checks can be exercised against
// fake filesystem types in tests.
var statfs = unix.Statfs

type overlayFsQuirk uint8

const (
	quirkLower overlayFsQuirk = 1 << iota
	quirkUpper
)

// incompatibleOverlayFS lists filesystem magic numbers known not to work
// as an overlay lower or upper layer.
var incompatibleOverlayFS = map[int64]struct {
	name  string
	quirk overlayFsQuirk
}{
	0x6969:     {"NFS", quirkUpper},
	0x65735546: {"FUSE", quirkUpper | quirkLower},
	0xF15F:     {"ECRYPT", quirkLower | quirkUpper},
	0x0BD00BD0: {"LUSTRE", quirkLower | quirkUpper}, //nolint:misspell
	0x47504653: {"GPFS", quirkLower | quirkUpper},
	0xAAD7AAEA: {"PANFS", quirkLower | quirkUpper},
}

func checkOverlayCompat(path string, q overlayFsQuirk) error {
	var st unix.Statfs_t
	if err := statfs(path, &st); err != nil {
		return errors.Wrapf(err, "statfs %s", path)
	}
	fs, ok := incompatibleOverlayFS[int64(st.Type)]
	if !ok || fs.quirk&q == 0 {
		return nil
	}
	layer := "lower"
	if q == quirkUpper {
		layer = "upper"
	}
	return fmt.Errorf("%s is on a %s filesystem, incompatible as overlay %s directory", path, fs.name, layer)
}

// CheckUpperCompat reports whether path's filesystem can serve as an
// overlay upper directory.
func CheckUpperCompat(path string) error { return checkOverlayCompat(path, quirkUpper) }

// CheckLowerCompat reports whether path's filesystem can serve as an
// overlay lower directory.
func CheckLowerCompat(path string) error { return checkOverlayCompat(path, quirkLower) }

// MountOverlay creates workDir/upper/name and workDir/work/name and stacks
// a copy-on-write filesystem at dest, with lower as the read-only layer.
// Empty lower or dest is normalized to "/". It does not abort on failure —
// the overlay probe relies on that — and returns whether the mount
// succeeded.
func MountOverlay(lower, dest, name, workDir string, userXattr bool) bool {
	if lower == "" {
		lower = "/"
	}
	if dest == "" {
		dest = "/"
	}

	upper := filepath.Join(workDir, "upper", name)
	work := filepath.Join(workDir, "work", name)
	if err := Mkpath(upper); err != nil {
		sylog.Debugf("overlay %s: mkdir upper: %s", name, err)
		return false
	}
	if err := Mkpath(work); err != nil {
		sylog.Debugf("overlay %s: mkdir work: %s", name, err)
		return false
	}

	opts := fmt.Sprintf("lowerdir=%s,upperdir=%s,workdir=%s", lower, upper, work)
	if userXattr {
		opts += ",userxattr"
	}

	if err := unix.Mount("overlay", dest, "overlay", 0, opts); err != nil {
		sylog.Debugf("overlay mount at %s failed: %s", dest, err)
		return false
	}
	return true
}
