package main

import (
	"fmt"
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"regportal/internal/apiclient"
	"regportal/internal/domain"
	"regportal/internal/session"
	"regportal/internal/validate"
)

func newAdminCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "admin",
		Short: "Sign in and out of the admin desks",
	}
	cmd.AddCommand(newLoginCmd(a), newLogoutCmd(a), newWhoamiCmd(a))
	return cmd
}

func newLoginCmd(a *app) *cobra.Command {
	var form domain.LoginForm
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in as an admin",
		RunE: func(cmd *cobra.Command, args []string) error {
			if form.Password == "" {
				form.Password = os.Getenv("PORTAL_ADMIN_PASSWORD")
			}
			route, err := session.Login(cmd.Context(), a.api, a.sess, form)
			if err != nil {
				var errs validate.Errors
				if errors.As(err, &errs) {
					printFieldErrors(a.out, errs)
					return errors.New("please correct the highlighted fields")
				}
				if errors.Is(err, apiclient.ErrUnauthorized) {
					return errors.New("invalid email or password")
				}
				return errors.New(apiclient.Describe(err))
			}
			me, _ := a.sess.Admin()
			fmt.Fprintf(a.out, "Signed in as %s (%s)\n", me.Name, me.Role.Label())
			fmt.Fprintf(a.out, "Your desk: %s\n", route)
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&form.Email, "email", "", "Admin email")
	f.StringVar(&form.Password, "password", "", "Password (or PORTAL_ADMIN_PASSWORD)")
	f.BoolVar(&form.RememberMe, "remember-me", false, "Keep me signed in")
	return cmd
}

func newLogoutCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Sign out and forget the stored session",
		RunE: func(cmd *cobra.Command, args []string) error {
			a.sess.Logout()
			fmt.Fprintln(a.out, "Signed out.")
			return nil
		},
	}
}

func newWhoamiCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in admin",
		RunE: func(cmd *cobra.Command, args []string) error {
			me, ok := a.sess.Admin()
			if !ok {
				return session.ErrNotAuthenticated
			}
			fmt.Fprintf(a.out, "%s <%s>\n", me.Name, me.Email)
			fmt.Fprintf(a.out, "Role:    %s\n", me.Role.Label())
			if d := me.DepartmentName(); d != "" {
				fmt.Fprintf(a.out, "Dept:    %s\n", d)
			}
			fmt.Fprintf(a.out, "Desk:    %s\n", domain.AdminHome(me))
			fmt.Fprintf(a.out, "Expires: %s\n", a.sess.ExpiresAt().Format("2006-01-02 15:04"))
			return nil
		},
	}
}

// requireAdmin fails with a sign-in hint when the session lacks one of roles.
func requireAdmin(a *app, roles ...domain.AdminRole) (domain.Admin, error) {
	me, err := a.sess.Require(roles...)
	switch {
	case errors.Is(err, session.ErrNotAuthenticated):
		return domain.Admin{}, errors.New("not signed in; run 'portal admin login'")
	case err != nil:
		return domain.Admin{}, err
	}
	return me, nil
}
