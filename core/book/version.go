package book

import "strings"

// SupportedMdbookVersion is the mdBook release line this preprocessor speaks
// the JSON protocol of.
const SupportedMdbookVersion = "0.4"

// CompatibleVersion reports whether the calling mdBook shares the supported
// major and minor version.
func (c *Context) CompatibleVersion() bool {
	parts := strings.SplitN(c.MdbookVersion, ".", 3)
	if len(parts) < 2 {
		return false
	}
	return parts[0]+"."+parts[1] == SupportedMdbookVersion
}
