package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/nextlevelbuilder/vibetorch/internal/config"
	"github.com/nextlevelbuilder/vibetorch/internal/keys"
)

func configCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "View and manage configuration",
	}
	cmd.AddCommand(configShowCmd())
	cmd.AddCommand(configPathCmd())
	cmd.AddCommand(configValidateCmd())
	cmd.AddCommand(configInitCmd())
	return cmd
}

func configShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Display the effective configuration (secrets redacted)",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(resolveConfigPath())
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			data, err := json.MarshalIndent(redactConfig(cfg), "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(data))
			return nil
		},
	}
}

func configPathCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print the config file path",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), resolveConfigPath())
		},
	}
}

func configValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate the configuration file",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgPath := resolveConfigPath()
			if _, err := config.Load(cfgPath); err != nil {
				return fmt.Errorf("invalid config: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Config at %s is valid.\n", cfgPath)
			return nil
		},
	}
}

func configInitCmd() *cobra.Command {
	var defaults, force bool
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create a config file interactively",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := resolveConfigPath()
			if _, err := os.Stat(path); err == nil && !force {
				if defaults {
					return fmt.Errorf("%s already exists (use --force to overwrite)", path)
				}
				ok, err := promptConfirm(path+" already exists. Overwrite?", false)
				if err != nil {
					return err
				}
				if !ok {
					return nil
				}
			}
			cfg := config.Default()
			if !defaults {
				if err := promptConfig(cfg); err != nil {
					return err
				}
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			if err := config.Save(path, cfg); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", path)
			return nil
		},
	}
	cmd.Flags().BoolVar(&defaults, "defaults", false, "write the defaults without prompting")
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")
	return cmd
}

// promptConfig fills the commonly changed settings of cfg.
func promptConfig(cfg *config.Config) error {
	var err error
	cfg.Inspector.ToggleKey, err = promptString("Toggle shortcut",
		"Key chord that starts and stops the inspector", cfg.Inspector.ToggleKey,
		func(s string) error { _, err := keys.Parse(s); return err })
	if err != nil {
		return err
	}

	copyOn, err := promptConfirm("Copy exports to the clipboard?", cfg.CopyOnExport())
	if err != nil {
		return err
	}
	cfg.Inspector.ExportViaClipboard = &copyOn

	cfg.Browser.Headless, err = promptSelect("Chrome window for `vibetorch inspect`", []SelectOption[bool]{
		{Label: "Visible", Value: false},
		{Label: "Headless", Value: true},
	}, 0)
	if err != nil {
		return err
	}

	port, err := promptString("Gateway port", "Port used by `vibetorch serve`",
		strconv.Itoa(cfg.Gateway.Port), validPort)
	if err != nil {
		return err
	}
	cfg.Gateway.Port, _ = strconv.Atoi(port)
	return nil
}

func validPort(s string) error {
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 || n > 65535 {
		return errors.New("enter a port between 1 and 65535")
	}
	return nil
}

// redactConfig returns a JSON-safe copy with secrets masked.
func redactConfig(cfg *config.Config) map[string]any {
	data, _ := json.Marshal(cfg)
	var raw map[string]any
	json.Unmarshal(data, &raw)
	redactMap(raw)
	return raw
}

var secretKeys = map[string]bool{"token": true, "headers": true}

func redactMap(m map[string]any) {
	for k, v := range m {
		switch val := v.(type) {
		case string:
			if secretKeys[k] {
				m[k] = mask(val)
			}
		case map[string]any:
			if secretKeys[k] {
				for hk, hv := range val {
					if s, ok := hv.(string); ok {
						val[hk] = mask(s)
					}
				}
				continue
			}
			redactMap(val)
		}
	}
}

func mask(s string) string {
	switch {
	case len(s) > 8:
		return s[:4] + "****" + s[len(s)-4:]
	case s != "":
		return "****"
	}
	return s
}
