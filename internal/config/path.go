package config

import (
	"os"
	"path/filepath"
	"strings"
)

// ExpandPath resolves a leading ~ and $VAR references in a configured path
// such as database.path or export.dir. Empty stays empty so callers can keep
// their own fallback.
func ExpandPath(p string) string {
	if p == "" {
		return ""
	}

	if p == "~" || strings.HasPrefix(p, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			p = home + strings.TrimPrefix(p, "~")
		}
	}

	return filepath.Clean(os.ExpandEnv(p))
}
