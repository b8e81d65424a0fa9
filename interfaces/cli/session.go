package cli

import (
	"errors"
	"os"
	"time"

	"github.com/spf13/cobra"

	"ideaclient/domain/session"
)

// EnvPassword supplies --password when the flag is omitted
const EnvPassword = "IDEACTL_PASSWORD"

var errNotLoggedIn = errors.New("not logged in")

// identityView is what whoami and the auth commands print
type identityView struct {
	UserID    int64     `json:"user_id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	Role      string    `json:"role,omitempty"`
	ExpiresAt time.Time `json:"expires_at"`
}

func viewOf(s *session.Session) *identityView {
	if s == nil {
		return nil
	}
	return &identityView{
		UserID:    s.Identity.UserID,
		Username:  s.Identity.Username,
		Email:     s.Identity.Email,
		Role:      s.Identity.Role,
		ExpiresAt: s.ExpiresAt,
	}
}

func passwordOr(flag string) string {
	if flag != "" {
		return flag
	}
	return os.Getenv(EnvPassword)
}

func newLoginCmd(app *App) *cobra.Command {
	var creds session.Credentials

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in with email and password",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := app.connect(cmd)
			if err != nil {
				return writeErr(cmd, err)
			}
			creds.Password = passwordOr(creds.Password)
			sess, err := c.Session.Login(cmd.Context(), creds)
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, viewOf(sess))
		},
	}

	cmd.Flags().StringVar(&creds.Email, "email", "", "Account email")
	cmd.Flags().StringVar(&creds.Password, "password", "", "Account password (default: $"+EnvPassword+")")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func newRegisterCmd(app *App) *cobra.Command {
	var profile session.Profile

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account and sign in with it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := app.connect(cmd)
			if err != nil {
				return writeErr(cmd, err)
			}
			profile.Password = passwordOr(profile.Password)
			sess, err := c.Session.Register(cmd.Context(), profile)
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, viewOf(sess))
		},
	}

	cmd.Flags().StringVar(&profile.Username, "username", "", "Display name")
	cmd.Flags().StringVar(&profile.Email, "email", "", "Account email")
	cmd.Flags().StringVar(&profile.Password, "password", "", "Account password (default: $"+EnvPassword+")")
	_ = cmd.MarkFlagRequired("username")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func newLogoutCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the saved session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := app.connect(cmd)
			if err != nil {
				return writeErr(cmd, err)
			}
			c.Session.Logout(cmd.Context())
			return writeOut(cmd, app, map[string]bool{"logged_out": true})
		},
	}
}

func newWhoamiCmd(app *App) *cobra.Command {
	var interval time.Duration

	cmd := &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in user",
		Long: `Show the signed-in user.

With --watch the command keeps running and prints the identity again each
time the saved session changes, for example when another terminal logs in
or out. Stop it with Ctrl-C.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := app.connect(cmd)
			if err != nil {
				return writeErr(cmd, err)
			}

			current := viewOf(c.Session.Current())
			if !app.forceWatch {
				if current == nil {
					return writeErr(cmd, errNotLoggedIn)
				}
				return writeOut(cmd, app, current)
			}

			if err := writeOut(cmd, app, current); err != nil {
				return err
			}
			ticker := time.NewTicker(interval)
			defer ticker.Stop()
			for {
				select {
				case <-cmd.Context().Done():
					return nil
				case <-ticker.C:
					next := viewOf(c.Session.Current())
					if sameIdentity(current, next) {
						continue
					}
					current = next
					if err := writeOut(cmd, app, current); err != nil {
						return err
					}
				}
			}
		},
	}

	cmd.Flags().BoolVar(&app.forceWatch, "watch", false, "Keep running and print session changes")
	cmd.Flags().DurationVar(&interval, "interval", 250*time.Millisecond, "How often --watch checks the session")
	return cmd
}

func sameIdentity(a, b *identityView) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.UserID == b.UserID && a.Username == b.Username && a.ExpiresAt.Equal(b.ExpiresAt)
}
