package cli

import (
	"github.com/spf13/cobra"
)

func newUsersCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "users",
		Aliases: []string{"user"},
		Short:   "User commands",
	}
	cmd.AddCommand(newUsersListCmd(app))
	cmd.AddCommand(newUsersGetCmd(app))
	cmd.AddCommand(newUsersProfileCmd(app))
	return cmd
}

func newUsersListCmd(app *App) *cobra.Command {
	var page int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List users (paginated)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := app.connect(cmd)
			if err != nil {
				return writeErr(cmd, err)
			}
			out, err := c.Stores.Users.List(cmd.Context(), page)
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, out)
		},
	}

	cmd.Flags().IntVar(&page, "page", 1, "Page number")
	return cmd
}

func newUsersGetCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "get <user-id>",
		Short: "Show one user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := parseID("user", args[0]); err != nil {
				return writeErr(cmd, err)
			}
			c, err := app.connect(cmd)
			if err != nil {
				return writeErr(cmd, err)
			}
			user, err := c.Stores.Users.Get(cmd.Context(), args[0])
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, user)
		},
	}
}

func newUsersProfileCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "profile",
		Short: "Show the signed-in user's profile",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := app.connect(cmd)
			if err != nil {
				return writeErr(cmd, err)
			}
			user, err := c.Stores.Users.Profile(cmd.Context())
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, user)
		},
	}
}
