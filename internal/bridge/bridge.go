// Package bridge translates host paths and command lines for the WSL bridge.
// Every function here is pure.
package bridge

import (
	"strings"
)

// Token is the command prefix that routes a command line into WSL.
const Token = "wsl"

// Prefix routes cmd through the bridge.
func Prefix(cmd string) string {
	return Token + " " + cmd
}

// NormalizeSeparators converts backslashes to forward slashes.
func NormalizeSeparators(p string) string {
	return strings.ReplaceAll(p, `\`, "/")
}

// ToBridgePath maps a Windows host path to the path WSL mounts it at, so
// C:\Users\me\a.tgz becomes /mnt/c/Users/me/a.tgz. Paths without a drive
// letter only get their separators normalised. When the bridge is disabled p
// is returned unchanged.
func ToBridgePath(p string, enabled bool) string {
	if !enabled {
		return p
	}
	if !hasDrive(p) {
		return NormalizeSeparators(p)
	}
	drive := strings.ToLower(p[:1])
	return "/mnt/" + drive + NormalizeSeparators(p[2:])
}

func hasDrive(p string) bool {
	if len(p) < 3 || p[1] != ':' || (p[2] != '\\' && p[2] != '/') {
		return false
	}
	c := p[0]
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}
