// File: cmd/warpctl/main.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// warpctl drives the card: runs the network interface daemon and issues
// diagnostic and storage commands.

package main

import (
	"fmt"
	"os"

	"github.com/momentics/warplink/api"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, errFmt("error:"), err)
		os.Exit(exitCode(err))
	}
}

// exitCode lets scripts tell bad usage and an unresponsive card apart.
func exitCode(err error) int {
	switch api.CodeOf(err) {
	case api.ErrCodeInvalidArgument:
		return 2
	case api.ErrCodeTimeout:
		return 3
	case api.ErrCodeNotSupported:
		return 4
	default:
		return 1
	}
}
