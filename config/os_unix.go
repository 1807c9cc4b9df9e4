//go:build !windows

package config

import (
	"os"

	"golang.org/x/term"
)

var forbiddenNameChars = string(os.PathSeparator) + string(os.PathListSeparator)

// EnableColorOutput reports whether console log for stream may be colored.
// NO_COLOR turns coloring off.
func EnableColorOutput(stream *os.File) bool {
	if _, set := os.LookupEnv("NO_COLOR"); set {
		return false
	}
	return term.IsTerminal(int(stream.Fd()))
}
