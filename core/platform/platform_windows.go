//go:build windows

package platform

// Native is the platform the binary was built for.
var Native = Windows
