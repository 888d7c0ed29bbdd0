//go:build !windows

package keystore

// HideFile is a no-op outside Windows; name the file with a leading dot instead.
func HideFile(string) {}
