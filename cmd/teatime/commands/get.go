package commands

import (
	"net/http"
	"os"

	"github.com/spf13/cobra"

	"github.com/teatime-io/teatime/pkg/teatime"
)

// NewGetCommand creates the get command.
func NewGetCommand() *cobra.Command {
	var name string

	cmd := &cobra.Command{
		Use:   "get <target> [key=value...]",
		Short: "Fetch a single resource",
		Long: `Perform one GET request against the configured API and print the decoded
document. The target is resolved against the configured endpoint unless it
carries a scheme. Extra key=value arguments are sent as a JSON body.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, _, entry, err := resolveVendor(name)
			if err != nil {
				return err
			}

			target, err := parseTarget(args[0])
			if err != nil {
				return err
			}

			params, err := parseParams(args[1:])
			if err != nil {
				return err
			}

			client, err := buildClient(entry)
			if err != nil {
				return err
			}
			defer client.Close()

			doc, err := client.RequestJSON(cmd.Context(), http.MethodGet, target, params)
			if err != nil {
				return err
			}

			return renderDocument(doc)
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "vendor entry to use (defaults to the current vendor)")

	return cmd
}

// NewRequestCommand creates the request command for arbitrary methods.
func NewRequestCommand() *cobra.Command {
	var (
		name string
		raw  bool
	)

	cmd := &cobra.Command{
		Use:   "request <method> <target> [key=value...]",
		Short: "Perform a single API request",
		Long: `Perform one request with an arbitrary HTTP method. Extra key=value
arguments are sent as a JSON body. Non-2xx statuses are reported with the
response body.`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, _, entry, err := resolveVendor(name)
			if err != nil {
				return err
			}

			method := args[0]

			target, err := parseTarget(args[1])
			if err != nil {
				return err
			}

			params, err := parseParams(args[2:])
			if err != nil {
				return err
			}

			client, err := buildClient(entry)
			if err != nil {
				return err
			}
			defer client.Close()

			if raw {
				resp, err := client.Do(cmd.Context(), teatime.NewRequest(method, target).WithParams(params))
				if err != nil {
					return err
				}

				if err := resp.Err(); err != nil {
					return err
				}

				_, _ = os.Stdout.Write(resp.Body)

				return nil
			}

			doc, err := client.RequestJSON(cmd.Context(), method, target, params)
			if err != nil {
				return err
			}

			return renderDocument(doc)
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "vendor entry to use (defaults to the current vendor)")
	cmd.Flags().BoolVar(&raw, "raw", false, "print the response body without decoding")

	return cmd
}
