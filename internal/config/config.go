// Package config holds the run settings for a weave: which files are
// eligible, how anchors are written, and how wide the worker pool is.
package config

import (
	"fmt"
	"strings"
)

// Settings is the weave run configuration. Zero values mean "use default";
// Normalize fills them in.
type Settings struct {
	// Extensions lists the file suffixes eligible for weaving.
	Extensions []string `yaml:"extensions" json:"extensions"`
	// Exclude lists directory names skipped during the walk (on top of
	// the backup/output trees, which are always skipped).
	Exclude []string `yaml:"exclude" json:"exclude"`
	// CommentPrefix is the host language's line-comment prefix.
	CommentPrefix string `yaml:"comment_prefix" json:"comment_prefix"`
	// Parallel is the file worker pool size. 1 = serial.
	Parallel int `yaml:"parallel" json:"parallel"`
}

// Default returns the settings the original tool shipped with: C sources,
// slash-slash comments, serial processing.
func Default() Settings {
	return Settings{
		Extensions:    []string{".c", ".h"},
		CommentPrefix: "//",
		Parallel:      1,
	}
}

// Normalize fills unset fields with defaults and validates the rest.
func (s *Settings) Normalize() error {
	def := Default()
	if len(s.Extensions) == 0 {
		s.Extensions = def.Extensions
	}
	for i, ext := range s.Extensions {
		if !strings.HasPrefix(ext, ".") {
			s.Extensions[i] = "." + ext
		}
	}
	if s.CommentPrefix == "" {
		s.CommentPrefix = def.CommentPrefix
	}
	if s.Parallel == 0 {
		s.Parallel = def.Parallel
	}
	if s.Parallel < 0 {
		return fmt.Errorf("parallel must be positive, got %d", s.Parallel)
	}
	return nil
}

// Eligible reports whether a file name passes the extension filter.
func (s *Settings) Eligible(name string) bool {
	for _, ext := range s.Extensions {
		if strings.HasSuffix(name, ext) {
			return true
		}
	}
	return false
}

// Excluded reports whether a directory name should be skipped.
func (s *Settings) Excluded(dirName string) bool {
	for _, e := range s.Exclude {
		if dirName == e {
			return true
		}
	}
	return false
}
