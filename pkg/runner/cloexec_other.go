//go:build !unix

package runner

import "os"

func closeOnExec(*os.File) {}
