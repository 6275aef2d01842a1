package cli

import (
	"bufio"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"teamhub/internal/gateway/apierror"
	"teamhub/internal/session"
)

// whoami hides the credential; it is never printed.
type whoami struct {
	User      session.User `json:"user" yaml:"user"`
	ExpiresAt time.Time    `json:"expiresAt" yaml:"expires_at"`
}

func (a *app) loginCmd() *cobra.Command {
	var email, password string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and save the session",
		Long: `Sign in with email and password. When --password is omitted it is read
from the first line of standard input.

Examples:
  teamhub login --email john@acme.com --password secret
  echo secret | teamhub login --email john@acme.com`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if strings.TrimSpace(email) == "" {
				return apierror.New(apierror.KindValidation, apierror.CodeValidation, "--email is required")
			}
			if password == "" {
				line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				if err != nil && line == "" {
					return apierror.New(apierror.KindValidation, apierror.CodeValidation, "a password is required")
				}
				password = strings.TrimRight(line, "\r\n")
			}

			sess, err := a.service.Login(cmd.Context(), email, password)
			if err != nil {
				return err
			}
			return a.render(cmd.OutOrStdout(), whoami{User: sess.User, ExpiresAt: sess.ExpiresAt})
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "account email")
	cmd.Flags().StringVar(&password, "password", "", "account password")
	return cmd
}

func (a *app) logoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Sign out and remove the saved session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.service.Logout(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.ErrOrStderr(), "Signed out.")
			return nil
		},
	}
}

func (a *app) whoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			sess, ok := a.service.Current(cmd.Context())
			if !ok {
				return apierror.New(apierror.KindUnauthenticated, apierror.CodeUnauthenticated, "Not signed in")
			}
			return a.render(cmd.OutOrStdout(), whoami{User: sess.User, ExpiresAt: sess.ExpiresAt})
		},
	}
}
