// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package jobstore

import "github.com/spf13/afero"

// FsFactory returns the file system used by callers that do not pass one explicitly.
var FsFactory = func() afero.Fs {
	return afero.NewOsFs()
}
