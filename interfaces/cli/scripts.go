package cli

import (
	"io"
	"os"

	"github.com/spf13/cobra"

	"ideaclient/domain/resources"
)

func newScriptsCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "scripts",
		Aliases: []string{"script"},
		Short:   "Script commands",
	}
	cmd.AddCommand(newScriptsListCmd(app))
	cmd.AddCommand(newScriptsGetCmd(app))
	cmd.AddCommand(newScriptsCreateCmd(app))
	cmd.AddCommand(newScriptsUpdateCmd(app))
	cmd.AddCommand(newScriptsDeleteCmd(app))
	return cmd
}

// scriptFlags are shared by create and update; the API replaces scripts whole
type scriptFlags struct {
	in   resources.ScriptInput
	file string
}

func (f *scriptFlags) register(cmd *cobra.Command) {
	cmd.Flags().Int64Var(&f.in.IdeaID, "idea", 0, "Idea the script belongs to")
	cmd.Flags().StringVar(&f.in.Title, "title", "", "Script title")
	cmd.Flags().StringVar(&f.in.ScriptContent, "content", "", "Script text")
	cmd.Flags().StringVar(&f.file, "content-file", "", "Read the script text from a file (- for stdin)")
	cmd.MarkFlagsMutuallyExclusive("content", "content-file")
	_ = cmd.MarkFlagRequired("idea")
	_ = cmd.MarkFlagRequired("title")
}

func (f *scriptFlags) input(cmd *cobra.Command) (resources.ScriptInput, error) {
	in := f.in
	if f.file == "" {
		return in, nil
	}

	var data []byte
	var err error
	if f.file == "-" {
		data, err = io.ReadAll(cmd.InOrStdin())
	} else {
		data, err = os.ReadFile(f.file)
	}
	if err != nil {
		return in, err
	}
	in.ScriptContent = string(data)
	return in, nil
}

func newScriptsListCmd(app *App) *cobra.Command {
	var page int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List your scripts (paginated)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := app.connect(cmd)
			if err != nil {
				return writeErr(cmd, err)
			}
			out, err := c.Stores.Scripts.List(cmd.Context(), page)
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, out)
		},
	}

	cmd.Flags().IntVar(&page, "page", 1, "Page number")
	return cmd
}

func newScriptsGetCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "get <script-id>",
		Short: "Show one script",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := parseID("script", args[0]); err != nil {
				return writeErr(cmd, err)
			}
			c, err := app.connect(cmd)
			if err != nil {
				return writeErr(cmd, err)
			}
			script, err := c.Stores.Scripts.Get(cmd.Context(), args[0])
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, script)
		},
	}
}

func newScriptsCreateCmd(app *App) *cobra.Command {
	var flags scriptFlags

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Write a script for an idea",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			in, err := flags.input(cmd)
			if err != nil {
				return writeErr(cmd, err)
			}
			c, err := app.connect(cmd)
			if err != nil {
				return writeErr(cmd, err)
			}
			script, err := c.Stores.Scripts.Create(cmd.Context(), in)
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, script)
		},
	}

	flags.register(cmd)
	return cmd
}

func newScriptsUpdateCmd(app *App) *cobra.Command {
	var flags scriptFlags

	cmd := &cobra.Command{
		Use:   "update <script-id>",
		Short: "Replace a script",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("script", args[0])
			if err != nil {
				return writeErr(cmd, err)
			}
			in, err := flags.input(cmd)
			if err != nil {
				return writeErr(cmd, err)
			}
			c, err := app.connect(cmd)
			if err != nil {
				return writeErr(cmd, err)
			}
			script, err := c.Stores.Scripts.Update(cmd.Context(), id, in)
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, script)
		},
	}

	flags.register(cmd)
	return cmd
}

func newScriptsDeleteCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <script-id>",
		Short: "Delete a script",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := parseID("script", args[0]); err != nil {
				return writeErr(cmd, err)
			}
			c, err := app.connect(cmd)
			if err != nil {
				return writeErr(cmd, err)
			}
			if err := c.Stores.Scripts.Delete(cmd.Context(), args[0]); err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, map[string]string{"deleted": args[0]})
		},
	}
}
