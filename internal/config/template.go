package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// ErrConfigExists is returned by WriteTemplate when the target file exists
// and overwriting was not requested.
var ErrConfigExists = errors.New("config file already exists")

// File mirrors the on-disk layout of config.yaml.
type File struct {
	Google GoogleSection `yaml:"google"`
	Auth   AuthSection   `yaml:"auth"`
}

type GoogleSection struct {
	OAuth struct {
		Client struct {
			ID     string `yaml:"id"`
			Secret string `yaml:"secret"`
		} `yaml:"client"`
	} `yaml:"oauth"`
	Application struct {
		Name string `yaml:"name"`
	} `yaml:"application"`
}

type AuthSection struct {
	Callback struct {
		Port int `yaml:"port"`
	} `yaml:"callback"`
	Credentials struct {
		File string `yaml:"file,omitempty"`
	} `yaml:"credentials"`
}

// Template returns a File populated with placeholder client values and the
// defaults Load would apply.
func Template() File {
	var f File
	f.Google.OAuth.Client.ID = "YOUR_CLIENT_ID"
	f.Google.OAuth.Client.Secret = "YOUR_CLIENT_SECRET"
	f.Google.Application.Name = DefaultApplicationName
	f.Auth.Callback.Port = DefaultCallbackPort
	return f
}

// WriteTemplate writes f as YAML to path with owner-only permissions. The
// file is written to a temporary sibling and renamed into place.
func WriteTemplate(path string, f File, overwrite bool) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%w: %s", ErrConfigExists, path)
		} else if !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("failed to check config file %s: %w", path, err)
		}
	}

	data, err := yaml.Marshal(f)
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".gcal-mcp-config-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp config file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write config file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to sync config file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close config file: %w", err)
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		return fmt.Errorf("failed to set config file permissions: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("failed to move config file into place: %w", err)
	}
	return nil
}
