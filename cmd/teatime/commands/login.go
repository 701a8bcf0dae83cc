package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/teatime-io/teatime/internal/constants"
	"github.com/teatime-io/teatime/pkg/prompt"
	"github.com/teatime-io/teatime/pkg/teatime"
)

// NewLoginCommand creates the login command.
func NewLoginCommand() *cobra.Command {
	var (
		name      string
		username  string
		password  string
		apiKey    string
		otp       string
		noAuth    bool
		twoFactor bool
	)

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in to an API",
		Long: `Authenticate against a vendor API and store the session token.

GitLab accepts a username/password pair (OAuth password grant) or a
personal access token via --api-key. Vault accepts LDAP credentials,
optionally with a one-time code, or a client token via --api-key. Sensu
needs no credentials.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			config, err := loadConfig()
			if err != nil {
				return err
			}

			entry, entryName, err := ensureVendorEntry(config, name, viper.GetString("vendor"))
			if err != nil {
				return err
			}

			prompter := prompt.New()

			// Get API endpoint
			endpoint := viper.GetString("api")
			if endpoint == "" {
				endpoint = entry.Endpoint
			}

			if endpoint == "" {
				endpoint, err = prompter.Line("API endpoint")
				if err != nil {
					return err
				}
			}

			if endpoint == "" {
				return constants.ErrNoEndpointConfigured
			}

			entry.Endpoint = endpoint

			if viper.GetBool("skip-ssl-validation") {
				entry.SkipSSLValidation = true
			}

			creds, err := buildCredentials(prompter, username, password, apiKey, otp, noAuth, twoFactor)
			if err != nil {
				return err
			}

			client, err := buildClient(entry)
			if err != nil {
				return err
			}
			defer client.Close()

			err = client.Login(cmd.Context(), creds)
			if err != nil {
				return fmt.Errorf("login failed: %w", err)
			}

			// Remember the username for the next login prompt
			switch c := creds.(type) {
			case teatime.UserPass:
				entry.Username = c.Username
			case teatime.UserPassTwoFactor:
				entry.Username = c.Username
			}

			if config.CurrentVendor == "" {
				config.CurrentVendor = entryName
			}

			err = saveConfigStruct(config)
			if err != nil {
				return fmt.Errorf("saving configuration: %w", err)
			}

			// Persist the session token, if the login produced one
			var token *teatime.Token
			if tokenGetter, ok := client.(interface{ Token() *teatime.Token }); ok {
				token = tokenGetter.Token()
			}

			err = NewConfigPersister().UpdateVendorToken(entryName, token)
			if err != nil {
				return fmt.Errorf("saving session token: %w", err)
			}

			fmt.Printf("Logged in to %s\n", client.BaseURI())

			if token != nil && !token.ExpiresAt.IsZero() {
				fmt.Printf("Session token expires at %s\n", token.ExpiresAt.Format(time.RFC3339))
			}

			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "vendor entry to log in to (defaults to the current vendor)")
	cmd.Flags().StringVarP(&username, "username", "u", "", "username for authentication")
	cmd.Flags().StringVarP(&password, "password", "p", "", "password for authentication")
	cmd.Flags().StringVarP(&apiKey, "api-key", "k", "", "pre-issued API key or token")
	cmd.Flags().StringVar(&otp, "otp", "", "one-time code for two-factor login")
	cmd.Flags().BoolVar(&noAuth, "no-auth", false, "establish an unauthenticated session")
	cmd.Flags().BoolVar(&twoFactor, "two-factor", false, "prompt for a one-time code")

	return cmd
}

// buildCredentials maps the login flags onto a credential variant.
func buildCredentials(prompter *prompt.Prompter, username, password, apiKey, otp string, noAuth, twoFactor bool) (teatime.Credentials, error) {
	switch {
	case noAuth:
		return teatime.NoAuth{}, nil

	case apiKey != "":
		return teatime.APIKey{Key: apiKey}, nil

	default:
		return prompter.Credentials(username, password, otp, twoFactor || otp != "")
	}
}

// NewLogoutCommand creates the logout command.
func NewLogoutCommand() *cobra.Command {
	var name string

	cmd := &cobra.Command{
		Use:   "logout",
		Short: "Log out from an API",
		Long:  "Discard the stored session token for a vendor entry",
		RunE: func(cmd *cobra.Command, args []string) error {
			config, err := loadConfig()
			if err != nil {
				return err
			}

			entry, _, err := currentVendorEntry(config, name)
			if err != nil {
				return err
			}

			entry.Token = ""
			entry.TokenKind = ""
			entry.TokenExpiresAt = nil

			err = saveConfigStruct(config)
			if err != nil {
				return fmt.Errorf("saving configuration: %w", err)
			}

			fmt.Println("Logged out")

			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "vendor entry to log out from (defaults to the current vendor)")

	return cmd
}
