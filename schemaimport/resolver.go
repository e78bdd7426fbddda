package schemaimport

import (
	"cmp"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	tblsconfig "github.com/k1LoW/tbls/config"
)

// ResolveConfig makes every path in opts absolute and loads the tbls config.
// An explicit SchemaJSONPath makes the tbls config optional.
func ResolveConfig(opts Options) (Config, error) {
	cfg := NewConfig(opts)

	root, err := filepath.Abs(cmp.Or(cfg.WorkingDir, "."))
	if err != nil {
		return Config{}, fmt.Errorf("schemaimport: working directory: %w", err)
	}
	cfg.WorkingDir = root

	if cfg.SchemaJSONPath != "" {
		cfg.SchemaJSONPath = under(root, cfg.SchemaJSONPath)
		cfg.DocPath = filepath.Dir(cfg.SchemaJSONPath)
	}

	configPath, err := findTblsConfig(root, cfg.TblsConfigPath)
	if err != nil {
		if errors.Is(err, ErrTblsConfigNotFound) && cfg.SchemaJSONPath != "" {
			cfg.logf("Importing %s without a tbls config", cfg.SchemaJSONPath)
			return cfg, nil
		}

		return Config{}, err
	}

	tblsCfg, err := loadTblsConfig(configPath)
	if err != nil {
		return Config{}, err
	}

	cfg.TblsConfigPath = configPath
	cfg.TblsConfig = tblsCfg
	cfg.logf("Using tbls config %s", configPath)

	if cfg.SchemaJSONPath == "" {
		docPath := strings.TrimSpace(tblsCfg.DocPath)
		cfg.DocPath = under(filepath.Dir(configPath), cmp.Or(docPath, tblsconfig.DefaultDocPath))
		cfg.SchemaJSONPath = filepath.Join(cfg.DocPath, tblsconfig.SchemaFileName)
	}
	cfg.logf("Using schema JSON %s", cfg.SchemaJSONPath)

	return cfg, nil
}

// findTblsConfig returns explicit (which must exist) or the first tbls
// default file present in root.
func findTblsConfig(root, explicit string) (string, error) {
	if explicit != "" {
		path := under(root, explicit)
		if _, err := os.Stat(path); err != nil {
			return "", fmt.Errorf("schemaimport: tbls config: %w", err)
		}

		return path, nil
	}

	for _, name := range tblsconfig.DefaultConfigFilePaths {
		path := filepath.Join(root, name)

		info, err := os.Stat(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
			continue
		case err != nil:
			return "", fmt.Errorf("schemaimport: tbls config: %w", err)
		case !info.IsDir():
			return filepath.Clean(path), nil
		}
	}

	return "", fmt.Errorf("%w in %s", ErrTblsConfigNotFound, root)
}

func loadTblsConfig(path string) (*tblsconfig.Config, error) {
	cfg, err := tblsconfig.New()
	if err != nil {
		return nil, fmt.Errorf("schemaimport: tbls config: %w", err)
	}

	if err := cfg.Load(path); err != nil {
		return nil, fmt.Errorf("schemaimport: tbls config %s: %w", path, err)
	}

	return cfg, nil
}

// under resolves path relative to base unless it is already absolute.
func under(base, path string) string {
	if filepath.IsAbs(path) {
		return filepath.Clean(path)
	}

	return filepath.Join(base, path)
}
