// Copyright (c) Contributors to the sandboxrt project.
// This software is licensed under a 3-clause BSD license. Please consult the
// LICENSE.md file distributed with the sources of this project regarding your
// rights to use or distribute this software.

package sandbox

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"

	"github.com/sandboxrt/sandboxrt/pkg/sylog"
)

// devNodes are the host device nodes bind-mounted into the guest by
// MountDev.
var devNodes = []string{"/dev/null", "/dev/tty", "/dev/zero", "/dev/random", "/dev/urandom", "/dev/shm"}

// BindMount resolves src (following symlinks, best effort), creates dest
// as a file or directory to match src's type, and performs a recursive
// bind mount. If readOnly, it additionally discovers the locked mount
// flags protecting src's device and remounts with
// MS_BIND|MS_REMOUNT|MS_RDONLY|<locked flags>, since the kernel refuses to
// clear those flags on a bare remount.
func BindMount(src, dest string, readOnly bool) error {
	resolved := ResolveSymlink(src)

	info, err := os.Stat(resolved)
	isDir := err != nil || info.IsDir()
	if isDir {
		if err := Mkpath(dest); err != nil {
			return errors.Wrapf(err, "create mount point %s", dest)
		}
	} else {
		if err := Mkpath(filepath.Dir(dest)); err != nil {
			return errors.Wrapf(err, "create mount point parent for %s", dest)
		}
		if err := Touch(dest); err != nil {
			return errors.Wrapf(err, "create mount point %s", dest)
		}
	}

	if err := unix.Mount(resolved, dest, "", unix.MS_BIND|unix.MS_REC, ""); err != nil {
		return errors.Wrapf(err, "bind mount %s -> %s", resolved, dest)
	}

	if !readOnly {
		return nil
	}

	locked, err := LockedMountFlags(resolved)
	if err != nil {
		return errors.Wrapf(err, "discover locked flags for %s", resolved)
	}
	flags := unix.MS_BIND | unix.MS_REMOUNT | unix.MS_RDONLY | uintptr(locked)
	if err := unix.Mount("", dest, "", flags, ""); err != nil {
		return errors.Wrapf(err, "read-only remount %s", dest)
	}
	return nil
}

// BindHostNode bind-mounts name (e.g. "/dev/null") at rootDir+name if it
// exists on the host, skipping silently otherwise.
func BindHostNode(rootDir, name string, readOnly bool) error {
	if _, err := os.Stat(name); err != nil {
		return nil
	}
	dest := filepath.Join(rootDir, name)
	if err := BindMount(name, dest, readOnly); err != nil {
		return errors.Wrapf(err, "bind host node %s", name)
	}
	return nil
}

// MountDev bind-mounts the standard device nodes, then mounts a fresh
// devpts filesystem and binds its ptmx onto rootDir/dev/ptmx.
func MountDev(rootDir string) error {
	for _, n := range devNodes {
		if err := BindHostNode(rootDir, n, false); err != nil {
			return err
		}
	}
	if err := BindHostNode(rootDir, "/sys", true); err != nil {
		return err
	}

	devPts := filepath.Join(rootDir, "dev", "pts")
	if err := Mkpath(devPts); err != nil {
		return errors.Wrapf(err, "create %s", devPts)
	}
	if err := unix.Mount("devpts", devPts, "devpts", 0, "ptmxmode=0666"); err != nil {
		return errors.Wrapf(err, "mount devpts at %s", devPts)
	}

	ptmxSrc := filepath.Join(devPts, "ptmx")
	ptmxDst := filepath.Join(rootDir, "dev", "ptmx")
	if err := Touch(ptmxDst); err != nil {
		return errors.Wrapf(err, "create %s", ptmxDst)
	}
	if err := unix.Mount(ptmxSrc, ptmxDst, "", unix.MS_BIND, ""); err != nil {
		return errors.Wrapf(err, "bind %s -> %s", ptmxSrc, ptmxDst)
	}
	return nil
}

// MountProcfs mounts a fresh proc filesystem at rootDir/proc and best-
// effort chowns it to uid:gid; chown failure is ignored since the caller
// may lack the capability.
func MountProcfs(rootDir string, uid, gid int) error {
	procDir := filepath.Join(rootDir, "proc")
	if err := Mkpath(procDir); err != nil {
		return errors.Wrapf(err, "create %s", procDir)
	}
	if err := unix.Mount("proc", procDir, "proc", 0, ""); err != nil {
		return errors.Wrapf(err, "mount proc at %s", procDir)
	}
	if err := os.Chown(procDir, uid, gid); err != nil {
		sylog.Debugf("chown %s to %d:%d failed (ignored): %s", procDir, uid, gid, err)
	}
	return nil
}

// tmpfsWorkspacePath is the conventional ephemeral workspace location:
// guaranteed to exist on any Linux userland and about to be shadowed by
// the root overlay mounted immediately afterward.
const tmpfsWorkspacePath = "/bin"

// MountTheWorld composes the virtual root: the root overlay, each
// requested mount in order, /proc, then /dev, honoring the ordering
// invariant that the root overlay goes first and proc/dev go last, since
// earlier binds may shadow the directories they need.
func MountTheWorld(rootDir string, mounts []MountRequest, uid, gid int, persistDir, tmpfsSize string, userXattr bool) error {
	workspace := persistDir
	if workspace == "" {
		workspace = tmpfsWorkspacePath
		if err := unix.Mount("tmpfs", workspace, "tmpfs", 0, fmt.Sprintf("size=%s", tmpfsSize)); err != nil {
			return errors.Wrapf(err, "mount ephemeral workspace tmpfs at %s (size=%s)", workspace, tmpfsSize)
		}
	}

	sylog.Progress(0, "mounting root overlay at %s", rootDir)
	if !MountOverlay(rootDir, rootDir, "rootfs", workspace, userXattr) {
		return fmt.Errorf("failed to mount root overlay at %s", rootDir)
	}
	if err := os.Chown(rootDir, uid, gid); err != nil {
		sylog.Debugf("chown root %s to %d:%d failed (ignored): %s", rootDir, uid, gid, err)
	}

	for _, m := range mounts {
		stripped := strings.TrimLeft(m.SandboxPath, "/")
		dest := filepath.Join(rootDir, stripped)

		sylog.Progress(1, "mounting %s -> %s (%s)", m.OutsidePath, m.SandboxPath, m.Kind)
		if err := BindMount(m.OutsidePath, dest, m.Kind != ReadWrite); err != nil {
			return errors.Wrapf(err, "mount %s", m.SandboxPath)
		}

		if m.Kind == Overlayed {
			name := HashedBasename(m.SandboxPath)
			if !MountOverlay(dest, dest, name, workspace, userXattr) {
				return fmt.Errorf("failed to mount overlay for %s", m.SandboxPath)
			}
			if err := os.Chown(dest, uid, gid); err != nil {
				sylog.Debugf("chown %s to %d:%d failed (ignored): %s", dest, uid, gid, err)
			}
		}
	}

	if err := MountProcfs(rootDir, uid, gid); err != nil {
		return err
	}
	if err := MountDev(rootDir); err != nil {
		return err
	}
	return nil
}
