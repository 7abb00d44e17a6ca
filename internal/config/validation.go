package config

import (
	"path/filepath"

	dpcerrors "git.home.luguber.info/inful/dirprocess/internal/errors"
)

// Validate checks the keys the walker needs. A missing template root is not a
// load error: the template handler reports it when it is invoked.
func Validate(c *Config) error {
	if c.InputRoot == "" {
		return dpcerrors.ConfigRequired("input_root")
	}
	if c.ProcessRoot == "" {
		return dpcerrors.ConfigRequired("process_root")
	}
	if !filepath.IsAbs(c.InputRoot) {
		return dpcerrors.ValidationFailed("input_root", "must be an absolute path")
	}
	if !filepath.IsAbs(c.ProcessRoot) {
		return dpcerrors.ValidationFailed("process_root", "must be an absolute path")
	}
	if filepath.Clean(c.InputRoot) == filepath.Clean(c.ProcessRoot) {
		return dpcerrors.ValidationFailed("process_root", "must differ from input_root")
	}
	if c.Workers < 1 {
		return dpcerrors.ValidationFailed("workers", "must be at least 1")
	}
	if c.Watch.ResyncInterval < 0 {
		return dpcerrors.ValidationFailed("watch.resync_interval", "must not be negative")
	}
	return nil
}
