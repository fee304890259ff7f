package store

import (
	"errors"
	"io/fs"
	"os"
	"strconv"
	"strings"

	pkgerrors "github.com/pkg/errors"
)

// Counter is the scene number persisted between runs as a single integer.
type Counter struct {
	path string
}

// NewCounter returns a counter stored at path. The file is not touched until Load or Store.
func NewCounter(path string) *Counter {
	return &Counter{path: path}
}

// Path returns the counter file location.
func (c *Counter) Path() string {
	return c.path
}

// Load returns the stored value. A missing file reads as 0.
func (c *Counter) Load() (int, error) {
	data, err := os.ReadFile(c.path)
	if errors.Is(err, fs.ErrNotExist) {
		return 0, nil
	}
	if err != nil {
		return 0, pkgerrors.Wrap(err, "read scene counter")
	}
	n, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0, pkgerrors.Wrapf(err, "scene counter %s is not an integer", c.path)
	}
	return n, nil
}

// Current returns the scene number to use for this run: the stored value,
// raised to minScene if it is lower.
func (c *Counter) Current(minScene int) (int, error) {
	n, err := c.Load()
	if err != nil {
		return 0, err
	}
	if n < minScene {
		n = minScene
	}
	return n, nil
}

// Store overwrites the counter file with n.
func (c *Counter) Store(n int) error {
	if err := os.WriteFile(c.path, []byte(strconv.Itoa(n)), 0o644); err != nil {
		return pkgerrors.Wrap(err, "write scene counter")
	}
	return nil
}
