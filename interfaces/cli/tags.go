package cli

import (
	"github.com/spf13/cobra"

	"ideaclient/domain/resources"
)

func newTagsCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "tags",
		Aliases: []string{"tag"},
		Short:   "Tag commands",
	}
	cmd.AddCommand(newTagsListCmd(app))
	cmd.AddCommand(newTagsGetCmd(app))
	cmd.AddCommand(newTagsCreateCmd(app))
	cmd.AddCommand(newTagsUpdateCmd(app))
	cmd.AddCommand(newTagsDeleteCmd(app))
	return cmd
}

func newTagsListCmd(app *App) *cobra.Command {
	var page int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List tags (paginated)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := app.connect(cmd)
			if err != nil {
				return writeErr(cmd, err)
			}
			out, err := c.Stores.Tags.List(cmd.Context(), page)
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, out)
		},
	}

	cmd.Flags().IntVar(&page, "page", 1, "Page number")
	return cmd
}

func newTagsGetCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "get <tag-id>",
		Short: "Show one tag",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := parseID("tag", args[0]); err != nil {
				return writeErr(cmd, err)
			}
			c, err := app.connect(cmd)
			if err != nil {
				return writeErr(cmd, err)
			}
			tag, err := c.Stores.Tags.Get(cmd.Context(), args[0])
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, tag)
		},
	}
}

func newTagsCreateCmd(app *App) *cobra.Command {
	var in resources.TagInput

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a tag",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := app.connect(cmd)
			if err != nil {
				return writeErr(cmd, err)
			}
			tag, err := c.Stores.Tags.Create(cmd.Context(), in)
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, tag)
		},
	}

	cmd.Flags().StringVar(&in.Name, "name", "", "Tag name")
	cmd.Flags().StringVar(&in.Description, "description", "", "Tag description")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("description")
	return cmd
}

func newTagsUpdateCmd(app *App) *cobra.Command {
	var name, description string

	cmd := &cobra.Command{
		Use:   "update <tag-id>",
		Short: "Change a tag you own",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("tag", args[0])
			if err != nil {
				return writeErr(cmd, err)
			}

			var in resources.TagUpdate
			if cmd.Flags().Changed("name") {
				in.Name = &name
			}
			if cmd.Flags().Changed("description") {
				in.Description = &description
			}

			c, err := app.connect(cmd)
			if err != nil {
				return writeErr(cmd, err)
			}
			tag, err := c.Stores.Tags.Update(cmd.Context(), id, in)
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, tag)
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "New name")
	cmd.Flags().StringVar(&description, "description", "", "New description")
	cmd.MarkFlagsOneRequired("name", "description")
	return cmd
}

func newTagsDeleteCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <tag-id>",
		Short: "Delete a tag you own",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := parseID("tag", args[0]); err != nil {
				return writeErr(cmd, err)
			}
			c, err := app.connect(cmd)
			if err != nil {
				return writeErr(cmd, err)
			}
			if err := c.Stores.Tags.Delete(cmd.Context(), args[0]); err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, map[string]string{"deleted": args[0]})
		},
	}
}
