package configutil

import (
	"errors"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v2"
)

// ErrCycleRef is returned when a config's "extends" chain loops back on
// itself.
var ErrCycleRef = errors.New("cyclic reference in configuration extends detected")

type extendsHolder struct {
	Extends string `yaml:"extends"`
}

// readExtendsTarget reads just the top-level "extends" key out of
// filename, without touching the caller's config struct.
func readExtendsTarget(filename string) (string, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return "", err
	}
	var h extendsHolder
	if err := yaml.Unmarshal(data, &h); err != nil {
		return "", err
	}
	return h.Extends, nil
}

// resolveExtends walks fpath's "extends" chain (via readExtends, which
// maps a filename to the raw value of its "extends" key, or "" if none)
// and returns the chain of filenames root-first, fpath last, so that
// loadFiles can apply them in override order. A relative extends target
// is resolved against the directory of the file that names it.
func resolveExtends(fpath string, readExtends func(string) (string, error)) ([]string, error) {
	visited := make(map[string]bool)
	var chain []string

	cur := fpath
	for {
		if visited[cur] {
			return nil, ErrCycleRef
		}
		visited[cur] = true
		chain = append(chain, cur)

		parent, err := readExtends(cur)
		if err != nil {
			return nil, err
		}
		if parent == "" {
			break
		}
		if !filepath.IsAbs(parent) {
			parent = filepath.Join(filepath.Dir(cur), parent)
		}
		cur = parent
	}

	for i, j := 0, len(chain)-1; i < j; i, j = i+1, j-1 {
		chain[i], chain[j] = chain[j], chain[i]
	}
	return chain, nil
}
