package utils

import (
	"crypto/md5"
	"fmt"
)

// HashString produces a stable hex digest used for cache keys and
// content-derived document ids. Not used for anything security sensitive.
func HashString(input string) string {
	hash := md5.Sum([]byte(input))
	return fmt.Sprintf("%x", hash)
}
