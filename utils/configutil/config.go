// Package configutil loads yaml configuration files, supporting a
// single-parent "extends" chain and validate.v2 struct tags.
package configutil

import (
	"fmt"
	"os"

	"gopkg.in/validator.v2"
	"gopkg.in/yaml.v2"
)

// ValidationError wraps validator.v2's per-field error map so callers can
// inspect individual fields via ErrForField.
type ValidationError struct {
	errs validator.ErrorMap
}

func (v ValidationError) Error() string {
	return v.errs.Error()
}

// ErrForField returns the validation errors recorded against a struct
// field name, or nil if that field had none.
func (v ValidationError) ErrForField(name string) validator.ErrorArray {
	if v.errs == nil {
		return nil
	}
	return v.errs[name]
}

// Load reads filename into cfg, first resolving and merging any
// "extends" chain (root-first, filename's own values taking precedence
// last), then validating the fully-merged result once.
func Load(filename string, cfg interface{}) error {
	filenames, err := resolveExtends(filename, readExtendsTarget)
	if err != nil {
		return err
	}
	return loadFiles(cfg, filenames)
}

// loadFiles merges filenames into cfg in order and validates once at the
// end, so that a parent's incomplete config merged with a child's
// completion doesn't spuriously fail mid-chain.
func loadFiles(cfg interface{}, filenames []string) error {
	for _, fn := range filenames {
		data, err := os.ReadFile(fn)
		if err != nil {
			return fmt.Errorf("read %s: %s", fn, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return fmt.Errorf("parse %s: %s", fn, err)
		}
	}

	if err := validator.Validate(cfg); err != nil {
		if errs, ok := err.(validator.ErrorMap); ok {
			return ValidationError{errs}
		}
		return err
	}
	return nil
}
