package jobs

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"path/filepath"
	"strings"
)

// uniqueProjectName synthesizes a name for a newly discovered project that
// does not collide with any name in existing, trying in order: the manifest
// name, name-parent, name-parent-N (2..10), and finally the name plus a
// short hash of the path, per spec §4.6's scan handler.
func uniqueProjectName(base, path string, existing map[string]struct{}) string {
	base = strings.ToLower(strings.TrimSpace(base))
	if base == "" {
		base = strings.ToLower(filepath.Base(path))
	}
	if _, taken := existing[base]; !taken {
		return base
	}

	parent := strings.ToLower(filepath.Base(filepath.Dir(path)))
	if parent != "" && parent != "." {
		candidate := base + "-" + parent
		if _, taken := existing[candidate]; !taken {
			return candidate
		}
		for n := 2; n <= 10; n++ {
			candidate := fmt.Sprintf("%s-%s-%d", base, parent, n)
			if _, taken := existing[candidate]; !taken {
				return candidate
			}
		}
	}

	sum := sha1.Sum([]byte(path))
	return base + "-" + hex.EncodeToString(sum[:])[:8]
}
