package validate

import "strings"

func Required(value string) bool {
	return strings.TrimSpace(value) != ""
}

// NormalizeHandle lowercases and strips the decoration users put on
// handles so duplicate accounts with the same handle compare equal.
func NormalizeHandle(value string) string {
	value = strings.ToLower(strings.TrimSpace(value))
	value = strings.TrimPrefix(value, "@")
	return value
}
