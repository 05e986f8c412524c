package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/cmtap/internal/adapters/driven/config/tapconfig"
	"github.com/custodia-labs/cmtap/internal/core/domain"
)

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Manage persisted settings",
	Long: `View and change settings stored in ~/.cmtap/config.toml.

Persisted settings are the lowest-priority layer: values from --config and
CMTAP_* environment variables override them.`,
	RunE: runSettingsList,
}

var settingsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List every setting and its persisted value",
	Args:  cobra.NoArgs,
	RunE:  runSettingsList,
}

var settingsGetCmd = &cobra.Command{
	Use:   "get <key>",
	Short: "Print one persisted setting",
	Args:  cobra.ExactArgs(1),
	RunE:  runSettingsGet,
}

var settingsSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Persist a setting",
	Args:  cobra.ExactArgs(2),
	RunE:  runSettingsSet,
}

var settingsUnsetCmd = &cobra.Command{
	Use:   "unset <key>",
	Short: "Remove a persisted setting",
	Args:  cobra.ExactArgs(1),
	RunE:  runSettingsUnset,
}

var settingsPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the settings file path",
	Args:  cobra.NoArgs,
	RunE:  runSettingsPath,
}

func init() {
	settingsCmd.AddCommand(settingsListCmd)
	settingsCmd.AddCommand(settingsGetCmd)
	settingsCmd.AddCommand(settingsSetCmd)
	settingsCmd.AddCommand(settingsUnsetCmd)
	settingsCmd.AddCommand(settingsPathCmd)
	rootCmd.AddCommand(settingsCmd)
}

var errNoSettings = errors.New("settings store not configured")

// lookupSettingKey validates a key name against the recognised keys.
func lookupSettingKey(name string) (tapconfig.Key, error) {
	key, ok := tapconfig.LookupKey(name)
	if !ok {
		return tapconfig.Key{}, fmt.Errorf("%w: unknown setting %q", domain.ErrInvalidInput, name)
	}
	return key, nil
}

// displayValue masks secrets.
func displayValue(key tapconfig.Key, value string) string {
	if key.Secret && value != "" {
		if len(value) <= 4 {
			return "****"
		}
		return strings.Repeat("*", len(value)-4) + value[len(value)-4:]
	}
	return value
}

func runSettingsList(cmd *cobra.Command, _ []string) error {
	if deps.Settings == nil {
		return errNoSettings
	}

	out := cmd.OutOrStdout()
	for _, key := range tapconfig.Keys {
		value := "(unset)"
		if _, ok := deps.Settings.Get(key.Name); ok {
			value = displayValue(key, deps.Settings.GetString(key.Name))
		}
		fmt.Fprintf(out, "%-32s %-10s %s\n", key.Name, key.Kind, value)
	}
	return nil
}

func runSettingsGet(cmd *cobra.Command, args []string) error {
	if deps.Settings == nil {
		return errNoSettings
	}
	key, err := lookupSettingKey(args[0])
	if err != nil {
		return err
	}

	if _, ok := deps.Settings.Get(key.Name); !ok {
		return fmt.Errorf("%w: %s is not set (env %s)", domain.ErrNotFound, key.Name, tapconfig.EnvName(key.Name))
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), deps.Settings.GetString(key.Name))
	return err
}

func runSettingsSet(cmd *cobra.Command, args []string) error {
	if deps.Settings == nil {
		return errNoSettings
	}
	key, err := lookupSettingKey(args[0])
	if err != nil {
		return err
	}

	value, err := key.Parse(args[1])
	if err != nil {
		return fmt.Errorf("%w: %w", domain.ErrInvalidInput, err)
	}
	if err := deps.Settings.Set(key.Name, value); err != nil {
		return fmt.Errorf("failed to save setting: %w", err)
	}

	cmd.Printf("%s set to %s\n", key.Name, displayValue(key, args[1]))
	return nil
}

func runSettingsUnset(cmd *cobra.Command, args []string) error {
	if deps.Settings == nil {
		return errNoSettings
	}
	key, err := lookupSettingKey(args[0])
	if err != nil {
		return err
	}
	if err := deps.Settings.Delete(key.Name); err != nil {
		return fmt.Errorf("failed to save setting: %w", err)
	}
	cmd.Printf("%s unset\n", key.Name)
	return nil
}

func runSettingsPath(cmd *cobra.Command, _ []string) error {
	if deps.Settings == nil {
		return errNoSettings
	}
	_, err := fmt.Fprintln(cmd.OutOrStdout(), deps.Settings.Path())
	return err
}
