package catalog

import (
	"context"
	"path"
	"strings"

	"github.com/databuild/databuild/vfs"
)

// KeysFromDir builds a [KeysFunc] that lists dir on fs and returns the
// distinct file-name stems found there, grounded on the original's
// utils.keys_from_folder: hidden entries are excluded, extensions are
// stripped, and files that share a stem but differ only in extension
// collapse to a single key.
func KeysFromDir(fs vfs.FileSystem, dir string) KeysFunc {
	return func(_ Context) ([]string, error) {
		names, err := fs.Listdir(context.Background(), dir, false)
		if err != nil {
			return nil, err
		}
		seen := make(map[string]bool)
		var stems []string
		for _, name := range names {
			stem := strings.TrimSuffix(name, path.Ext(name))
			if stem == "" || seen[stem] {
				continue
			}
			seen[stem] = true
			stems = append(stems, stem)
		}
		return stems, nil
	}
}
