// Package misc holds build time information about the program.
package misc

import (
	"os"
	"path/filepath"
	"strings"
)

// set by linker, see Taskfile
var (
	appName = ""
	version = "dev"
	gitHash = "unknown"
)

// GetAppName returns program name, falls back to executable name when not
// set at build time.
func GetAppName() string {
	if len(appName) > 0 {
		return appName
	}
	name := filepath.Base(os.Args[0])
	return strings.TrimSuffix(name, filepath.Ext(name))
}

func GetVersion() string {
	return version
}

func GetGitHash() string {
	return gitHash
}
