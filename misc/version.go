// Package misc keeps program identification set at build time.
package misc

// Overwritten by the linker: -X docflow/misc.version=...
var (
	appName = "docflow"
	version = "dev"
	gitHash = "unknown"
)

func GetAppName() string {
	return appName
}

func GetVersion() string {
	return version
}

func GetGitHash() string {
	return gitHash
}
