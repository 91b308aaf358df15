package version

import "fmt"

// major is the major version number
const major = 0

// minor is the minor version number
const minor = 3

// patch is the patch version number
const patch = 0

// GetVersion returns the full version string for the current bifrost build
func GetVersion() string {
	return fmt.Sprintf("%d.%d.%d", major, minor, patch)
}
