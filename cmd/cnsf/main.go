package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/cdhutch/cnsf/pkg/core"
)

// Exit codes.
const (
	exitOK     = 0
	exitData   = 1
	exitConfig = 2
)

func main() {
	Execute()
}

// fatal reports err and exits. Configuration and usage problems exit 2,
// everything else 1.
func fatal(msg string, err error) {
	fmt.Fprintf(os.Stderr, "%s: %v\n", msg, err)
	os.Exit(exitCode(err))
}

func exitCode(err error) int {
	switch {
	case err == nil:
		return exitOK
	case core.IsConfigError(err), errors.Is(err, errUsage):
		return exitConfig
	default:
		return exitData
	}
}

var errUsage = errors.New("usage error")

func usageError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", errUsage, fmt.Sprintf(format, args...))
}
