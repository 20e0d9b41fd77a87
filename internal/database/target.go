package database

import (
	"runtime"
	"strings"
)

// Target names the runtime a backend is built for.
type Target string

const (
	TargetNative  Target = "native"
	TargetBrowser Target = "browser"
)

var goos = runtime.GOOS

// DetectTarget returns override when it is set. Otherwise builds for js and
// wasip1 run the browser backend and everything else the native one.
func DetectTarget(override string) Target {
	if o := strings.ToLower(strings.TrimSpace(override)); o != "" {
		return Target(o)
	}
	switch goos {
	case "js", "wasip1":
		return TargetBrowser
	default:
		return TargetNative
	}
}
