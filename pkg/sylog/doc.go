// Copyright (c) Contributors to the sandboxrt project.
// This software is licensed under a 3-clause BSD license. Please consult the
// LICENSE.md file distributed with the sources of this project regarding your
// rights to use or distribute this software.

// Package sylog implements the leveled stderr logger shared by the
// sandboxrt launcher and overlay probe, plus the two-level-indent
// progress lines spec'd for --verbose mode.
package sylog
