// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

//go:build !windows

package runbatch

import (
	"os"
	"syscall"
)

// sysProcAttr puts the child in its own process group so that the whole
// pipeline started by the shell can be signalled together.
func sysProcAttr() *syscall.SysProcAttr {
	return &syscall.SysProcAttr{Setpgid: true}
}

func signalPs(ps *os.Process, s os.Signal) error {
	sig, ok := s.(syscall.Signal)
	if !ok {
		return ps.Signal(s) //nolint:wrapcheck
	}

	if err := syscall.Kill(-ps.Pid, sig); err != nil {
		return ps.Signal(s) //nolint:wrapcheck
	}

	return nil
}

// killTree kills the child's process group, then the child itself in case it left the group.
func killTree(ps *os.Process) error {
	_ = syscall.Kill(-ps.Pid, syscall.SIGKILL)

	return ps.Kill() //nolint:wrapcheck
}
