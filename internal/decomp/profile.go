package decomp

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// ManifestName is the per-project configuration file naming the action
// table sources for each game profile.
const ManifestName = "ncsdec.toml"

// Profile points at the resources one game profile needs.
type Profile struct {
	// Nwscript is the path to the profile's nwscript.nss, relative to
	// the manifest unless absolute.
	Nwscript string `toml:"nwscript"`
}

// Manifest is the parsed ncsdec.toml.
type Manifest struct {
	Profiles map[string]Profile `toml:"profiles"`

	// Root is the directory the manifest was loaded from.
	Root string `toml:"-"`
}

// LoadManifest parses a manifest file.
func LoadManifest(path string) (*Manifest, error) {
	var m Manifest
	if _, err := toml.DecodeFile(path, &m); err != nil {
		return nil, err
	}
	m.Root = filepath.Dir(path)
	return &m, nil
}

// FindManifest walks from dir upward looking for ncsdec.toml. The bool
// reports whether one was found.
func FindManifest(dir string) (*Manifest, bool, error) {
	cur, err := filepath.Abs(dir)
	if err != nil {
		return nil, false, err
	}
	for {
		candidate := filepath.Join(cur, ManifestName)
		if _, err := os.Stat(candidate); err == nil {
			m, err := LoadManifest(candidate)
			if err != nil {
				return nil, false, err
			}
			return m, true, nil
		}
		parent := filepath.Dir(cur)
		if parent == cur {
			return nil, false, nil
		}
		cur = parent
	}
}

// NwscriptFor resolves the action-table source path for a game profile.
func (m *Manifest) NwscriptFor(game string) (string, error) {
	p, ok := m.Profiles[game]
	if !ok || p.Nwscript == "" {
		return "", fmt.Errorf("decomp: manifest has no %q profile", game)
	}
	if filepath.IsAbs(p.Nwscript) {
		return p.Nwscript, nil
	}
	return filepath.Join(m.Root, p.Nwscript), nil
}
