package commands

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/teatime-io/teatime/internal/constants"
)

// Config is the CLI configuration persisted in the config file.
type Config struct {
	// Vendors holds one entry per configured API, keyed by a short name.
	Vendors       map[string]*VendorConfig `json:"vendors,omitempty"        yaml:"vendors,omitempty"`
	CurrentVendor string                   `json:"current_vendor,omitempty" yaml:"current_vendor,omitempty"`

	// Global settings
	Output string `json:"output,omitempty" yaml:"output,omitempty"`
}

// VendorConfig is the persisted state for one API endpoint.
type VendorConfig struct {
	Kind              string     `json:"kind"                       yaml:"kind"`
	Endpoint          string     `json:"endpoint"                   yaml:"endpoint"`
	Username          string     `json:"username,omitempty"         yaml:"username,omitempty"`
	Token             string     `json:"token,omitempty"            yaml:"token,omitempty"`
	TokenKind         string     `json:"token_kind,omitempty"       yaml:"token_kind,omitempty"`
	TokenExpiresAt    *time.Time `json:"token_expires_at,omitempty" yaml:"token_expires_at,omitempty"`
	LastLogin         *time.Time `json:"last_login,omitempty"       yaml:"last_login,omitempty"`
	SkipSSLValidation bool       `json:"skip_ssl_validation"        yaml:"skip_ssl_validation"`
	Cache             string     `json:"cache,omitempty"            yaml:"cache,omitempty"`
	NATSURL           string     `json:"nats_url,omitempty"         yaml:"nats_url,omitempty"`
}

// vendorKinds is the closed set of supported API vendors.
var vendorKinds = map[string]bool{
	"gitlab": true,
	"vault":  true,
	"sensu":  true,
}

// NewConfigCommand creates the config command group.
func NewConfigCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage CLI configuration",
		Long:  "Manage teatime CLI configuration including vendor endpoints and settings",
	}

	cmd.AddCommand(newConfigShowCommand())
	cmd.AddCommand(newConfigSetCommand())
	cmd.AddCommand(newConfigUnsetCommand())
	cmd.AddCommand(newConfigUseCommand())
	cmd.AddCommand(newConfigClearCommand())

	return cmd
}

func newConfigShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		Long:  "Display the current CLI configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			config, err := loadConfig()
			if err != nil {
				return err
			}

			output := viper.GetString("output")
			switch output {
			case constants.FormatJSON:
				encoder := json.NewEncoder(os.Stdout)
				encoder.SetIndent("", "  ")

				return encoder.Encode(config)
			case constants.FormatYAML:
				encoder := yaml.NewEncoder(os.Stdout)

				return encoder.Encode(config)
			default:
				return displayConfigTable(config)
			}
		},
	}
}

func newConfigSetCommand() *cobra.Command {
	var name string

	cmd := &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Set a configuration value",
		Long: `Set a configuration value.

Global keys: output.
Vendor keys (applied to the named or current vendor): endpoint, username,
cache, nats-url, skip-ssl-validation.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			config, err := loadConfig()
			if err != nil {
				return err
			}

			key, value := args[0], args[1]

			err = applyConfigSet(config, name, key, value)
			if err != nil {
				return err
			}

			err = saveConfigStruct(config)
			if err != nil {
				return err
			}

			fmt.Printf("Set %s\n", key)

			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "vendor entry to modify (defaults to the current vendor)")

	return cmd
}

func applyConfigSet(config *Config, name, key, value string) error {
	switch key {
	case "output":
		if value != constants.FormatTable && value != constants.FormatJSON && value != constants.FormatYAML {
			return fmt.Errorf("%q: %w", value, constants.ErrInvalidOutput)
		}

		config.Output = value

		return nil

	case "token":
		return constants.ErrTokenCannotBeSet

	case "endpoint":
		// Setting an endpoint may create the vendor entry; the kind comes
		// from --vendor and defaults the entry name.
		kind := viper.GetString("vendor")

		entry, entryName, err := ensureVendorEntry(config, name, kind)
		if err != nil {
			return err
		}

		entry.Endpoint = value

		if config.CurrentVendor == "" {
			config.CurrentVendor = entryName
		}

		return nil

	case "username", "cache", "nats-url", "skip-ssl-validation":
		entry, _, err := currentVendorEntry(config, name)
		if err != nil {
			return err
		}

		return setVendorField(entry, key, value)

	default:
		return fmt.Errorf("%q: %w", key, constants.ErrUnknownConfigKey)
	}
}

func setVendorField(entry *VendorConfig, key, value string) error {
	switch key {
	case "username":
		entry.Username = value
	case "cache":
		if value != "none" && value != "memory" && value != "nats" {
			return fmt.Errorf("cache %q: %w", value, constants.ErrUnknownConfigKey)
		}

		entry.Cache = value
	case "nats-url":
		entry.NATSURL = value
	case "skip-ssl-validation":
		parsed, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("parsing %q: %w", value, err)
		}

		entry.SkipSSLValidation = parsed
	}

	return nil
}

func newConfigUnsetCommand() *cobra.Command {
	var name string

	cmd := &cobra.Command{
		Use:   "unset <key>",
		Short: "Remove a configuration value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			config, err := loadConfig()
			if err != nil {
				return err
			}

			key := args[0]

			switch key {
			case "output":
				config.Output = ""

			case "token":
				entry, _, err := currentVendorEntry(config, name)
				if err != nil {
					return err
				}

				entry.Token = ""
				entry.TokenKind = ""
				entry.TokenExpiresAt = nil

			case "username", "cache", "nats-url", "skip-ssl-validation":
				entry, _, err := currentVendorEntry(config, name)
				if err != nil {
					return err
				}

				_ = setVendorField(entry, key, "")
				if key == "skip-ssl-validation" {
					entry.SkipSSLValidation = false
				}

			default:
				return fmt.Errorf("%q: %w", key, constants.ErrUnknownConfigKey)
			}

			err = saveConfigStruct(config)
			if err != nil {
				return err
			}

			fmt.Printf("Unset %s\n", key)

			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "vendor entry to modify (defaults to the current vendor)")

	return cmd
}

func newConfigUseCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "use <name>",
		Short: "Switch the current vendor entry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			config, err := loadConfig()
			if err != nil {
				return err
			}

			name := args[0]
			if _, ok := config.Vendors[name]; !ok {
				return fmt.Errorf("vendor entry %q: %w", name, constants.ErrVendorNotConfigured)
			}

			config.CurrentVendor = name

			err = saveConfigStruct(config)
			if err != nil {
				return err
			}

			fmt.Printf("Now using %q\n", name)

			return nil
		},
	}
}

func newConfigClearCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove all configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			err := saveConfigStruct(&Config{})
			if err != nil {
				return err
			}

			fmt.Println("Configuration cleared")

			return nil
		},
	}
}

// ensureVendorEntry finds or creates the entry for name. A new entry needs a
// valid vendor kind; the name defaults to the kind.
func ensureVendorEntry(config *Config, name, kind string) (*VendorConfig, string, error) {
	if name == "" {
		name = config.CurrentVendor
	}

	if name == "" {
		name = kind
	}

	if name == "" {
		return nil, "", constants.ErrUnknownVendor
	}

	if config.Vendors == nil {
		config.Vendors = make(map[string]*VendorConfig)
	}

	entry, ok := config.Vendors[name]
	if ok {
		return entry, name, nil
	}

	if !vendorKinds[kind] {
		return nil, "", fmt.Errorf("%q: %w", kind, constants.ErrUnknownVendor)
	}

	entry = &VendorConfig{Kind: kind}
	config.Vendors[name] = entry

	return entry, name, nil
}

// currentVendorEntry resolves name (or the current vendor) to an existing
// entry.
func currentVendorEntry(config *Config, name string) (*VendorConfig, string, error) {
	if name == "" {
		name = config.CurrentVendor
	}

	if name == "" {
		return nil, "", constants.ErrNoEndpointConfigured
	}

	entry, ok := config.Vendors[name]
	if !ok {
		return nil, "", fmt.Errorf("vendor entry %q: %w", name, constants.ErrVendorNotConfigured)
	}

	return entry, name, nil
}

// configFilePath returns the active config file, defaulting to
// ~/.teatime/config.yml.
func configFilePath() (string, error) {
	if used := viper.ConfigFileUsed(); used != "" {
		return used, nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("finding home directory: %w", err)
	}

	configDir := filepath.Join(home, ".teatime")

	err = os.MkdirAll(configDir, constants.ConfigDirPerm)
	if err != nil {
		return "", fmt.Errorf("creating config directory: %w", err)
	}

	return filepath.Join(configDir, "config.yml"), nil
}

// loadConfig reads the config file. A missing file is an empty configuration.
func loadConfig() (*Config, error) {
	config := &Config{}

	path, err := configFilePath()
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path) // #nosec G304 -- path is built from the user home dir
	if os.IsNotExist(err) {
		return config, nil
	}

	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	err = yaml.Unmarshal(data, config)
	if err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	return config, nil
}

// saveConfigStruct writes the configuration back to the config file.
func saveConfigStruct(config *Config) error {
	path, err := configFilePath()
	if err != nil {
		return err
	}

	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("marshaling config to YAML: %w", err)
	}

	err = os.WriteFile(path, data, constants.ConfigFilePerm)
	if err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	return nil
}

func displayConfigTable(config *Config) error {
	table := tablewriter.NewWriter(os.Stdout)
	table.Header("Property", "Value")

	output := config.Output
	if output == "" {
		output = constants.FormatTable
	}

	_ = table.Append("Output", output)

	if config.CurrentVendor != "" {
		_ = table.Append("Current Vendor", config.CurrentVendor)
	}

	_, _ = os.Stdout.WriteString("Global Configuration:\n")

	err := table.Render()
	if err != nil {
		return fmt.Errorf("rendering table: %w", err)
	}

	return displayVendorsTable(config)
}

func displayVendorsTable(config *Config) error {
	if len(config.Vendors) == 0 {
		_, _ = os.Stdout.WriteString("\nNo vendors configured. Use 'teatime login' to add one.\n")

		return nil
	}

	_, _ = os.Stdout.WriteString("\nConfigured Vendors:\n")

	table := tablewriter.NewWriter(os.Stdout)
	table.Header("Name", "Vendor", "Endpoint", "Username", "Token", "Expires", "Current")

	for name, entry := range config.Vendors {
		token := ""
		if entry.Token != "" {
			token = constants.MaskedSecret
		}

		expires := constants.NotAvailable
		if entry.TokenExpiresAt != nil {
			expires = entry.TokenExpiresAt.Format(time.RFC3339)
		}

		current := ""
		if name == config.CurrentVendor {
			current = "*"
		}

		_ = table.Append(name, entry.Kind, entry.Endpoint, entry.Username, token, expires, current)
	}

	err := table.Render()
	if err != nil {
		return fmt.Errorf("rendering vendor table: %w", err)
	}

	return nil
}
