// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

//go:build windows

package runbatch

import (
	"os"
	"syscall"
)

func sysProcAttr() *syscall.SysProcAttr {
	return nil
}

func signalPs(ps *os.Process, s os.Signal) error {
	return ps.Signal(s) //nolint:wrapcheck
}

func killTree(ps *os.Process) error {
	return ps.Kill() //nolint:wrapcheck
}
