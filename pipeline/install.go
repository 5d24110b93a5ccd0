package pipeline

import (
	"fmt"
	"os"
	"path/filepath"
)

// Installer is a dependency install command picked from a lockfile.
type Installer struct {
	Name     string
	Lockfile string
	Command  []string
}

// Checked in order; the first lockfile present wins.
var installers = []Installer{
	{Name: "pnpm", Lockfile: "pnpm-lock.yaml", Command: []string{"pnpm", "install", "--frozen-lockfile"}},
	{Name: "yarn", Lockfile: "yarn.lock", Command: []string{"yarn", "install", "--frozen-lockfile"}},
	{Name: "bun", Lockfile: "bun.lock", Command: []string{"bun", "install", "--frozen-lockfile"}},
	{Name: "bun", Lockfile: "bun.lockb", Command: []string{"bun", "install", "--frozen-lockfile"}},
	{Name: "npm", Lockfile: "package-lock.json", Command: []string{"npm", "ci"}},
	{Name: "npm", Lockfile: "npm-shrinkwrap.json", Command: []string{"npm", "ci"}},
}

// DetectInstaller looks for a known lockfile in dir.
func DetectInstaller(dir string) (Installer, error) {
	for _, in := range installers {
		if _, err := os.Stat(filepath.Join(dir, in.Lockfile)); err == nil {
			return in, nil
		}
	}
	return Installer{}, fmt.Errorf("no known lockfile in %s: %w", dir, ErrUnsupportedEnvironment)
}
