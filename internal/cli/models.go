package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/termina-app/termina/internal/models"
)

func newModelsCmd(app *appState) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "models",
		Short: "Manage local whisper models",
	}

	cmd.AddCommand(newModelsListCmd(app))
	cmd.AddCommand(newModelsDownloadCmd(app))
	cmd.AddCommand(newModelsUseCmd(app))
	cmd.AddCommand(newModelsRemoveCmd(app))
	cmd.AddCommand(newModelsCleanCmd(app))

	return cmd
}

func newModelsListCmd(app *appState) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List known models and their install state",
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := app.modelStore()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for _, name := range models.Names() {
				m, _ := models.Lookup(name)
				state := "not downloaded"
				if store.Has(name) {
					state = "installed"
					if !store.Verify(name) {
						state = "corrupted"
					}
				}
				marker := " "
				if name == app.model {
					marker = "*"
				}
				fmt.Fprintf(out, "%s %-10s %5d MB  %-14s %s\n", marker, name, m.SizeMB, state, m.Description)
			}

			// Artifacts outside the registry still count as installed.
			for _, name := range store.Installed() {
				if _, known := models.Lookup(name); !known {
					fmt.Fprintf(out, "  %-10s %8s  %-14s custom model file\n", name, "?", "installed")
				}
			}
			return nil
		},
	}
}

func newModelsDownloadCmd(app *appState) *cobra.Command {
	var retries int

	cmd := &cobra.Command{
		Use:   "download <name>",
		Short: "Download a model from Hugging Face",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := app.modelStore()
			if err != nil {
				return err
			}

			name := args[0]
			if err := store.Download(cmd.Context(), name, models.DownloadOptions{
				Retries:    retries,
				NoProgress: app.noProgress,
				Logger:     app.log(),
			}); err != nil {
				return fmt.Errorf("download model %q: %w", name, err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Model %s installed at %s\n", name, store.Path(name))
			return nil
		},
	}

	cmd.Flags().IntVar(&retries, "retries", 3, "Download retry attempts")
	return cmd
}

func newModelsUseCmd(app *appState) *cobra.Command {
	return &cobra.Command{
		Use:   "use <name>",
		Short: "Set the preferred model for local providers",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := app.modelStore()
			if err != nil {
				return err
			}

			name := args[0]
			if !store.Has(name) {
				return fmt.Errorf("model %q is not installed; run `termina models download %s` first", name, name)
			}

			app.cfg.Transcription.Model = name
			if err := app.saveConfigFn(); err != nil {
				return fmt.Errorf("save preference: %w", err)
			}

			app.log().Info("preferred model saved", zap.String("model", name))
			fmt.Fprintf(cmd.OutOrStdout(), "Preferred model set to %s\n", name)
			return nil
		},
	}
}

func newModelsRemoveCmd(app *appState) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <name>",
		Short: "Delete an installed model",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := app.modelStore()
			if err != nil {
				return err
			}

			if err := store.Remove(args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Model %s removed\n", args[0])
			return nil
		},
	}
}

func newModelsCleanCmd(app *appState) *cobra.Command {
	return &cobra.Command{
		Use:   "clean",
		Short: "Delete model files that fail verification",
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := app.modelStore()
			if err != nil {
				return err
			}

			removed := store.CleanCorrupted()
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %d corrupted model file(s)\n", removed)
			return nil
		},
	}
}
