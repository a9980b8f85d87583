package config

import (
	"os"
	"path/filepath"
	"testing"
)

func FuzzLoad(f *testing.F) {
	f.Add([]byte(""))
	f.Add([]byte(`input_format = "json"`))
	f.Add([]byte(`
allow_prefix = true
buffer_size = 2097152

[fields]
timestamp = ["ts", "time"]
level = ["lvl"]

[levels]
notice = "info"
`))
	f.Add([]byte("not = [valid toml"))

	f.Fuzz(func(t *testing.T, data []byte) {
		dir := t.TempDir()
		path := filepath.Join(dir, "fuzz.toml")
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return
		}
		// Should never panic: a malformed file returns an error, a valid
		// one returns a usable Config.
		cfg, err := Load(path)
		if err == nil {
			_ = cfg.NameLists()
			_ = cfg.LevelTable()
		}
	})
}
