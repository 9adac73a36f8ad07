// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package teereader wraps a command's output stream so that every complete line
// can be observed while the bytes themselves are copied into the job log.
package teereader
