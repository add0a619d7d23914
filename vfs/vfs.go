// Package vfs translates guest Windows paths into host paths confined to an
// emulated root directory.
package vfs

import (
	"fmt"
	"path"
	"path/filepath"
	"strings"

	"github.com/wippyai/win32emu/errors"
	"github.com/wippyai/win32emu/win32"
)

// DefaultCwd is the guest working directory when none is configured.
const DefaultCwd = `C:\`

// Root is the emulated filesystem root. Every resolved path lies inside the
// host directory it was created with.
type Root struct {
	host string
	cwd  string // slash-separated, cleaned, rooted at "/"
}

// New creates a root over the host directory dir.
func New(dir string) (*Root, error) {
	if dir == "" {
		return nil, errors.InvalidInput(errors.PhaseFile, "empty root directory")
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, errors.Wrap(errors.PhaseFile, errors.KindInvalidInput, err, "resolve root directory")
	}
	return &Root{host: abs, cwd: "/"}, nil
}

// Host returns the absolute host directory backing the root.
func (r *Root) Host() string { return r.host }

// Cwd returns the guest working directory in Windows form.
func (r *Root) Cwd() string { return Display(r.cwd) }

// SetCwd changes the guest working directory used for relative paths.
func (r *Root) SetCwd(dir string) error {
	p, err := r.normalize(dir)
	if err != nil {
		return err
	}
	r.cwd = p
	return nil
}

// normalize converts a guest path into a cleaned slash path rooted at "/".
func (r *Root) normalize(guest string) (string, error) {
	if guest == "" {
		return "", errors.Guest(errors.PhaseFile, win32.ErrorPathNotFound, "empty path")
	}

	p := strings.ReplaceAll(guest, `\`, "/")
	for _, prefix := range []string{"//?/", "//./"} {
		p = strings.TrimPrefix(p, prefix)
	}
	if len(p) >= 2 && p[1] == ':' && isLetter(p[0]) {
		p = p[2:]
	}
	if !strings.HasPrefix(p, "/") {
		p = r.cwd + "/" + p
	}
	return path.Clean("/" + p), nil
}

// Resolve maps a guest path to a host path inside the root. ".." segments
// cannot climb above the root.
func (r *Root) Resolve(guest string) (string, error) {
	p, err := r.normalize(guest)
	if err != nil {
		return "", err
	}
	return filepath.Join(r.host, filepath.FromSlash(p)), nil
}

// Split resolves a search pattern into the host directory to list and the
// final component to match against.
func (r *Root) Split(pattern string) (dir, glob string, err error) {
	p, err := r.normalize(pattern)
	if err != nil {
		return "", "", err
	}
	if p == "/" {
		return "", "", errors.Guest(errors.PhaseFile, win32.ErrorFileNotFound, fmt.Sprintf("no file component in %q", pattern))
	}
	d, g := path.Split(p)
	return filepath.Join(r.host, filepath.FromSlash(d)), g, nil
}

// Display renders a cleaned slash path in Windows form on drive C.
func Display(p string) string {
	return `C:` + strings.ReplaceAll(p, "/", `\`)
}

func isLetter(c byte) bool {
	return ('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z')
}

// Match reports whether name matches a Win32 wildcard pattern. '*' matches
// any run of characters, '?' any single character; comparison ignores case.
// "*.*" matches every name, dotted or not.
func Match(pattern, name string) bool {
	if pattern == "*.*" {
		pattern = "*"
	}
	escaped := strings.NewReplacer(`[`, `\[`, `]`, `\]`).Replace(strings.ToLower(pattern))
	ok, err := path.Match(escaped, strings.ToLower(name))
	return err == nil && ok
}
