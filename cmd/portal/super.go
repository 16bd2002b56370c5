package main

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"regportal/internal/domain"
	"regportal/internal/superadmin"
	"regportal/internal/validate"
)

func newSuperCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "super",
		Short: "Admin account management",
	}
	cmd.AddCommand(newSuperListCmd(a), newSuperStatsCmd(a), newSuperAddCmd(a), newSuperDeleteCmd(a))
	return cmd
}

func openConsole(a *app, cmd *cobra.Command) (*superadmin.Console, error) {
	if _, err := requireAdmin(a, domain.RoleSuperAdmin); err != nil {
		return nil, err
	}
	c, err := superadmin.New(a.api, a.sess, a.notes, a.log)
	if err != nil {
		return nil, err
	}
	if err := c.Load(cmd.Context()); err != nil {
		return nil, err
	}
	return c, nil
}

func newSuperListCmd(a *app) *cobra.Command {
	var search string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List admin accounts",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := openConsole(a, cmd)
			if err != nil {
				return err
			}
			admins := c.Filter(search)
			if len(admins) == 0 {
				fmt.Fprintln(a.out, "No admins found.")
				return nil
			}
			tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tNAME\tEMAIL\tROLE\tDEPARTMENT\tACTIVE")
			for _, ad := range admins {
				dept := ad.DepartmentName()
				if dept == "" {
					dept = "-"
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%t\n", ad.ID, ad.Name, ad.Email, ad.Role.Label(), dept, ad.IsActive)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().StringVar(&search, "search", "", "Filter by name, email, department or role")
	return cmd
}

func newSuperStatsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Count admin accounts per role",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := openConsole(a, cmd)
			if err != nil {
				return err
			}
			st := c.Stats()
			fmt.Fprintf(a.out, "Total admins:      %d\n", st.TotalAdmins)
			fmt.Fprintf(a.out, "Super admins:      %d\n", st.SuperAdmins)
			fmt.Fprintf(a.out, "Department admins: %d\n", st.DepartmentAdmins)
			fmt.Fprintf(a.out, "Photo admins:      %d\n", st.PhotoAdmins)
			fmt.Fprintf(a.out, "Queue admins:      %d\n", st.QueueAdmins)
			return nil
		},
	}
}

func newSuperAddCmd(a *app) *cobra.Command {
	var form domain.AdminForm
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Create an admin account",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := openConsole(a, cmd)
			if err != nil {
				return err
			}
			if form.Password == "" {
				form.Password = os.Getenv("PORTAL_NEW_ADMIN_PASSWORD")
				form.ConfirmPassword = form.Password
			}
			created, err := c.Add(cmd.Context(), form)
			if err != nil {
				var errs validate.Errors
				if errors.As(err, &errs) {
					printFieldErrors(a.out, errs)
					return errors.New("please correct the highlighted fields")
				}
				return err
			}
			fmt.Fprintf(a.out, "Created %s <%s> as %s (id %s)\n", created.Name, created.Email, created.Role.Label(), created.ID)
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&form.Name, "name", "", "Full name")
	f.StringVar(&form.Email, "email", "", "Email")
	f.StringVar(&form.Password, "password", "", "Password (or PORTAL_NEW_ADMIN_PASSWORD)")
	f.StringVar(&form.ConfirmPassword, "confirm-password", "", "Password again")
	f.StringVar(&form.Role, "role", "", "super_admin, department_admin, photo_admin or queue_admin")
	f.StringVar(&form.Department, "department", "", "Department for department admins")
	f.StringSliceVar(&form.Permissions, "permission", nil, "Permission to grant (repeatable): "+strings.Join(domain.Permissions, ", "))
	return cmd
}

func newSuperDeleteCmd(a *app) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "delete <id-or-email>",
		Short: "Delete an admin account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := openConsole(a, cmd)
			if err != nil {
				return err
			}
			var target *domain.Admin
			for _, ad := range c.Admins() {
				if ad.ID == args[0] || strings.EqualFold(ad.Email, args[0]) {
					ad := ad
					target = &ad
					break
				}
			}
			if target == nil {
				return errors.Errorf("no admin %q", args[0])
			}
			if err := c.RequestDelete(*target); err != nil {
				return err
			}
			if !yes {
				c.CancelDelete()
				return errors.Errorf("this permanently deletes %s; rerun with --yes to confirm", target.Email)
			}
			return c.ConfirmDelete(cmd.Context())
		},
	}
	cmd.Flags().BoolVar(&yes, "yes", false, "Confirm deletion")
	return cmd
}
