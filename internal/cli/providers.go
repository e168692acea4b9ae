package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newProvidersCmd(app *appState) *cobra.Command {
	return &cobra.Command{
		Use:   "providers",
		Short: "List speech providers and their availability",
		RunE: func(cmd *cobra.Command, _ []string) error {
			factory, err := app.factoryFn()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for _, p := range factory.Providers() {
				status := "unavailable"
				if p.Available() {
					status = "available"
				}
				locality := "local"
				if p.RequiresInternet() {
					locality = "cloud"
				}
				marker := " "
				if p.Name() == app.providerName {
					marker = "*"
				}
				fmt.Fprintf(out, "%s %-12s %-6s %-12s %s\n", marker, p.Name(), locality, status, p.DisplayName())
			}
			return nil
		},
	}
}
