package jobs

import (
	"os"
	"path/filepath"
	"strings"
)

// readReadmeExcerpt reads the first readme-looking file directly inside dir,
// truncated to maxChars. Returns "" if none is found or it cannot be read.
func readReadmeExcerpt(dir string, maxChars int) string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return ""
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if strings.HasPrefix(strings.ToLower(e.Name()), "readme") {
			data, err := os.ReadFile(filepath.Join(dir, e.Name()))
			if err != nil {
				return ""
			}
			text := string(data)
			if maxChars > 0 && len(text) > maxChars {
				text = text[:maxChars]
			}
			return text
		}
	}
	return ""
}

// listShallowFileNames lists up to limit non-hidden file names directly
// inside dir, used as LLM analysis context.
func listShallowFileNames(dir string, limit int) []string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}
	names := make([]string, 0, limit)
	for _, e := range entries {
		if e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		names = append(names, e.Name())
		if len(names) == limit {
			break
		}
	}
	return names
}

func dirExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
