// Package clientjs holds the browser half of the redstone runtime. Compiled
// pages load these scripts next to jQuery and Ractive.
package clientjs

import (
	"embed"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

//go:embed js/*.js
var assets embed.FS

// FS returns the embedded scripts, rooted so that paths match the script
// sources in a compiled page (js/redstone.js, js/objspy.js).
func FS() fs.FS {
	return assets
}

// Names lists the embedded script paths.
func Names() []string {
	entries, _ := assets.ReadDir("js")
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, "js/"+e.Name())
	}
	return names
}

// WriteTo copies every embedded script under dir, creating directories as
// needed.
func WriteTo(dir string) error {
	for _, name := range Names() {
		data, err := assets.ReadFile(name)
		if err != nil {
			return err
		}
		dst := filepath.Join(dir, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
			return fmt.Errorf("creating %s: %w", filepath.Dir(dst), err)
		}
		if err := os.WriteFile(dst, data, 0644); err != nil {
			return fmt.Errorf("writing %s: %w", dst, err)
		}
	}
	return nil
}
