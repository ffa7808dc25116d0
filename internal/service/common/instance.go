//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/mitchellh/go-ps"
)

// AnotherInstanceRunning reports whether a process with the same executable
// name as the current one is already running.
func AnotherInstanceRunning() (bool, error) {
	executable, err := os.Executable()
	if err != nil {
		return false, fmt.Errorf("resolve executable: %w", err)
	}

	return processRunning(filepath.Base(executable), os.Getpid())
}

// processRunning looks for processName among every process except skipPID.
func processRunning(processName string, skipPID int) (bool, error) {
	processList, err := ps.Processes()
	if err != nil {
		return false, fmt.Errorf("list processes: %w", err)
	}

	for _, process := range processList {
		if process.Pid() == skipPID {
			continue
		}

		if sameExecutable(process.Executable(), processName) {
			return true, nil
		}
	}

	return false, nil
}

// sameExecutable compares names case-insensitively on Windows.
func sameExecutable(a, b string) bool {
	if runtime.GOOS == "windows" {
		return strings.EqualFold(a, b)
	}

	return a == b
}
