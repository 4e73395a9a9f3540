package util

import "strings"

func StringPtr(v string) *string { return &v }

func IntPtr(v int) *int { return &v }

// OptionalString returns nil for blank input.
func OptionalString(v string) *string {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil
	}
	return &v
}

func Deref(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}
