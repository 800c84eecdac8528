package config

import (
	"os"
	"path/filepath"
)

// NestEnvVar is the environment variable that overrides the nest root
// when the --nest flag is not given.
const NestEnvVar = "PIXELWATCH_NEST"

// DefaultNest is the nest root used when neither --nest nor
// PIXELWATCH_NEST is set.
const DefaultNest = "./nest"

// Nest is the resolved root directory under which all persistent state
// lives: projects/, snapshots/, tiles/, data/, logs/.
type Nest struct {
	Root string
}

// ResolveNest applies the flag > env var > default precedence and returns
// an absolute Nest.
func ResolveNest(flagValue string) (Nest, error) {
	root := flagValue
	if root == "" {
		root = os.Getenv(NestEnvVar)
	}
	if root == "" {
		root = DefaultNest
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return Nest{}, err
	}
	return Nest{Root: abs}, nil
}

func (n Nest) ProjectsDir() string  { return filepath.Join(n.Root, "projects") }
func (n Nest) SnapshotsDir() string { return filepath.Join(n.Root, "snapshots") }
func (n Nest) TilesDir() string     { return filepath.Join(n.Root, "tiles") }
func (n Nest) DataDir() string      { return filepath.Join(n.Root, "data") }
func (n Nest) LogsDir() string      { return filepath.Join(n.Root, "logs") }

// DatabasePath returns the path to the SQLite database file.
func (n Nest) DatabasePath() string { return filepath.Join(n.DataDir(), "pixel-hawk.db") }

// ConfigPath returns the path to the optional pixelwatch.yaml file.
func (n Nest) ConfigPath() string { return filepath.Join(n.Root, "pixelwatch.yaml") }

// TilePath returns the cache path for tile (x, y).
func (n Nest) TilePath(x, y int) string {
	return filepath.Join(n.TilesDir(), tileFileName(x, y))
}

// ProjectTargetPath returns the target image path for a project owned by
// personID whose top-left corner is at (tx, ty, px, py).
func (n Nest) ProjectTargetPath(personID uint, tx, ty, px, py int) string {
	return filepath.Join(n.ProjectsDir(), personDir(personID), coordFileName(tx, ty, px, py))
}

// SnapshotPath returns the snapshot image path for the same project.
func (n Nest) SnapshotPath(personID uint, tx, ty, px, py int) string {
	return filepath.Join(n.SnapshotsDir(), personDir(personID), coordFileName(tx, ty, px, py))
}

// EnsureDirs creates every nest subdirectory if missing.
func (n Nest) EnsureDirs() error {
	for _, dir := range []string{n.ProjectsDir(), n.SnapshotsDir(), n.TilesDir(), n.DataDir(), n.LogsDir()} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return nil
}
