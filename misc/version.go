// Package misc keeps build time information.
package misc

// Values below are set by the linker (-ldflags "-X grimoire/misc.version=...").
var (
	appName = "grimoire"
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
