package cli

import (
	"github.com/spf13/cobra"

	"ideaclient/domain/resources"
)

func newIdeasCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "ideas",
		Aliases: []string{"idea"},
		Short:   "Idea commands",
	}
	cmd.AddCommand(newIdeasListCmd(app))
	cmd.AddCommand(newIdeasSharedCmd(app))
	cmd.AddCommand(newIdeasGetCmd(app))
	cmd.AddCommand(newIdeasCreateCmd(app))
	cmd.AddCommand(newIdeasUpdateCmd(app))
	cmd.AddCommand(newIdeasDeleteCmd(app))
	cmd.AddCommand(newIdeasCommentCmd(app))
	return cmd
}

func newIdeasListCmd(app *App) *cobra.Command {
	var page int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List your ideas (paginated)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := app.connect(cmd)
			if err != nil {
				return writeErr(cmd, err)
			}
			out, err := c.Stores.Ideas.List(cmd.Context(), page)
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, out)
		},
	}

	cmd.Flags().IntVar(&page, "page", 1, "Page number")
	return cmd
}

func newIdeasSharedCmd(app *App) *cobra.Command {
	var page int

	cmd := &cobra.Command{
		Use:   "shared",
		Short: "List ideas other users shared (paginated)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := app.connect(cmd)
			if err != nil {
				return writeErr(cmd, err)
			}
			out, err := c.Stores.Ideas.Shared(cmd.Context(), page)
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, out)
		},
	}

	cmd.Flags().IntVar(&page, "page", 1, "Page number")
	return cmd
}

func newIdeasGetCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "get <idea-id>",
		Short: "Show one idea with its comments",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := parseID("idea", args[0]); err != nil {
				return writeErr(cmd, err)
			}
			c, err := app.connect(cmd)
			if err != nil {
				return writeErr(cmd, err)
			}
			idea, err := c.Stores.Ideas.Get(cmd.Context(), args[0])
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, idea)
		},
	}
}

func newIdeasCreateCmd(app *App) *cobra.Command {
	var in resources.IdeaInput

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create an idea",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := app.connect(cmd)
			if err != nil {
				return writeErr(cmd, err)
			}
			idea, err := c.Stores.Ideas.Create(cmd.Context(), in)
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, idea)
		},
	}

	cmd.Flags().StringVar(&in.Name, "name", "", "Idea name")
	cmd.Flags().StringVar(&in.Description, "description", "", "Idea description")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func newIdeasUpdateCmd(app *App) *cobra.Command {
	var name, description string

	cmd := &cobra.Command{
		Use:   "update <idea-id>",
		Short: "Change an idea's name or description",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("idea", args[0])
			if err != nil {
				return writeErr(cmd, err)
			}

			// Only flags the user set are sent
			var in resources.IdeaUpdate
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
			idea, err := c.Stores.Ideas.Update(cmd.Context(), id, in)
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, idea)
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "New name")
	cmd.Flags().StringVar(&description, "description", "", "New description")
	cmd.MarkFlagsOneRequired("name", "description")
	return cmd
}

func newIdeasDeleteCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <idea-id>",
		Short: "Delete an idea and its scripts",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := parseID("idea", args[0]); err != nil {
				return writeErr(cmd, err)
			}
			c, err := app.connect(cmd)
			if err != nil {
				return writeErr(cmd, err)
			}
			if err := c.Stores.Ideas.Delete(cmd.Context(), args[0]); err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, map[string]string{"deleted": args[0]})
		},
	}
}

func newIdeasCommentCmd(app *App) *cobra.Command {
	var in resources.CommentInput

	cmd := &cobra.Command{
		Use:   "comment <idea-id>",
		Short: "Comment on an idea",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("idea", args[0])
			if err != nil {
				return writeErr(cmd, err)
			}
			c, err := app.connect(cmd)
			if err != nil {
				return writeErr(cmd, err)
			}
			comment, err := c.Stores.Ideas.AddComment(cmd.Context(), id, in)
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, comment)
		},
	}

	cmd.Flags().StringVar(&in.Content, "content", "", "Comment text")
	_ = cmd.MarkFlagRequired("content")
	return cmd
}
