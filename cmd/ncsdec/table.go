package main

import (
	"bytes"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"ncsdec/internal/actions"
	"ncsdec/internal/decomp"
)

// loadTable resolves and loads the action table for the selected game
// profile, going through the on-disk cache unless --no-cache is set.
func loadTable(cmd *cobra.Command) (*actions.Table, error) {
	game, err := cmd.Root().PersistentFlags().GetString("game")
	if err != nil {
		return nil, err
	}
	if game != decomp.GameK1 && game != decomp.GameK2 {
		return nil, fmt.Errorf("unsupported game profile: %s (supported: k1, k2)", game)
	}

	path, err := cmd.Root().PersistentFlags().GetString("nwscript")
	if err != nil {
		return nil, err
	}
	if path == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, err
		}
		manifest, found, err := decomp.FindManifest(cwd)
		if err != nil {
			return nil, err
		}
		if !found {
			return nil, fmt.Errorf("no %s found and --nwscript not given", decomp.ManifestName)
		}
		path, err = manifest.NwscriptFor(game)
		if err != nil {
			return nil, err
		}
	}

	source, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	noCache, err := cmd.Root().PersistentFlags().GetBool("no-cache")
	if err != nil {
		return nil, err
	}
	if noCache {
		return actions.Load(bytes.NewReader(source))
	}

	cache, err := decomp.OpenTableCache("ncsdec")
	if err != nil {
		// A broken cache directory never blocks decompilation.
		return actions.Load(bytes.NewReader(source))
	}
	key := decomp.KeyFor(source)
	if table, hit, err := cache.Get(key); err == nil && hit {
		return table, nil
	}
	table, err := actions.Load(bytes.NewReader(source))
	if err != nil {
		return nil, err
	}
	if err := cache.Put(key, table); err != nil {
		fmt.Fprintf(os.Stderr, "warning: action-table cache write failed: %v\n", err)
	}
	return table, nil
}
