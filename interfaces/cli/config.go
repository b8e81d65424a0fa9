package cli

import (
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

const masked = "********"

func newConfigCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration commands",
	}
	cmd.AddCommand(newConfigShowCmd(app))
	return cmd
}

func newConfigShowCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration as YAML",
		Long: `Print the effective configuration as YAML, after defaults, the config
file and environment variables have been applied. Secrets are masked.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := app.loadConfig()
			if err != nil {
				return writeErr(cmd, err)
			}

			shown := *cfg
			if shown.Session.Redis.Password != "" {
				shown.Session.Redis.Password = masked
			}
			if shown.MockAPI.JWTSecret != "" {
				shown.MockAPI.JWTSecret = masked
			}

			out := cmd.OutOrStdout()
			for _, source := range cfg.LoadedFrom {
				if _, err := out.Write([]byte("# source: " + source + "\n")); err != nil {
					return err
				}
			}
			enc := yaml.NewEncoder(out)
			enc.SetIndent(2)
			if err := enc.Encode(&shown); err != nil {
				return writeErr(cmd, err)
			}
			return enc.Close()
		},
	}
}
