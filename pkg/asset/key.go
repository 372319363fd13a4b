package asset

import (
	"path"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// CreateKey derives the storage key of a synthetic asset:
//
//	<service>/<build>/<type>/<tag>[.<hash>].<ext>
//
// The key is stable for a given (service, build, tag, role).
func CreateKey(serviceName, buildNumber, tag, hash, typ, ext string) string {
	name := tag
	if hash != "" {
		name += "." + hash
	}
	name += "." + ext
	return path.Join(serviceName, buildNumber, typ, name)
}

// FileKey derives the storage key of a discovered file from its path relative to the
// declared base path. Names are NFC-normalized so the key does not depend on how the
// filesystem stores composed characters.
func FileKey(serviceName, buildNumber, relativePath string) string {
	rel := norm.NFC.String(strings.TrimLeft(relativePath, "/"))
	return path.Join(serviceName, buildNumber, rel)
}

// BundleKey is the grouping key shared by every file merged into one output.
func BundleKey(serviceName, tag string) string {
	return serviceName + "/" + tag
}
