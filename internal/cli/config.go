// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// config.go - The "config" command.

package cli

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/BurntSushi/toml"

	"github.com/morganforge/chitfund-console/internal/config"
)

// ErrConfigExists is returned by "config init" when the file is already there.
var ErrConfigExists = errors.New("config file already exists")

// ResolveConfigPath returns --config or the default path.
func ResolveConfigPath(args Args) (string, error) {
	if args.ConfigPath != "" {
		return args.ConfigPath, nil
	}
	return config.ConfigPath()
}

// HandleConfig handles "config show|path|init".
func HandleConfig(w io.Writer, args Args) error {
	path, err := ResolveConfigPath(args)
	if err != nil {
		return err
	}

	switch args.Subcommand {
	case "path":
		if args.JSON {
			return NewJSONResponse("config path", map[string]string{"path": path}).Fprint(w)
		}
		_, err := fmt.Fprintln(w, path)
		return err

	case "init":
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%w: %s", ErrConfigExists, path)
		}
		if err := config.Save(config.Default(), path); err != nil {
			return err
		}
		if args.JSON {
			return NewJSONResponse("config init", map[string]string{"path": path}).Fprint(w)
		}
		_, err := fmt.Fprintln(w, "Wrote default config to "+path)
		return err

	default:
		cfg, err := config.Load(path)
		if err != nil {
			return err
		}
		if args.JSON {
			return NewJSONResponse("config show", cfg).Fprint(w)
		}
		fmt.Fprintf(w, "# %s\n", path)
		return toml.NewEncoder(w).Encode(cfg)
	}
}
