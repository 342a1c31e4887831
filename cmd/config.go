package cmd

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/lizz/gcal-mcp/internal/config"
)

type configInitOptions struct {
	Output string
	Force  bool
}

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage the gcal-mcp configuration file",
	}

	var opts configInitOptions
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write an example config.yaml",
		Long: `Write an example config.yaml with placeholder OAuth client values.

Replace YOUR_CLIENT_ID and YOUR_CLIENT_SECRET with the values of a Google
Cloud "Desktop app" OAuth client. Until then the placeholders are ignored
and GOOGLE_CLIENT_ID / GOOGLE_CLIENT_SECRET are used instead.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigInit(cmd.OutOrStdout(), opts)
		},
	}
	initCmd.Flags().StringVarP(&opts.Output, "output", "o", config.FileName, "Path of the config file to write")
	initCmd.Flags().BoolVar(&opts.Force, "force", false, "Overwrite an existing config file")

	cmd.AddCommand(initCmd)
	return cmd
}

func runConfigInit(out io.Writer, opts configInitOptions) error {
	err := config.WriteTemplate(opts.Output, config.Template(), opts.Force)
	if errors.Is(err, config.ErrConfigExists) {
		return fmt.Errorf("%w (use --force to overwrite)", err)
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "%s %s\n", green("Wrote example configuration to"), bold(opts.Output))
	fmt.Fprintf(out, "Edit %s and %s before running 'gcal-mcp auth'.\n",
		yellow(config.KeyClientID), yellow(config.KeyClientSecret))
	return nil
}
