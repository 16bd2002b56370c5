package main

import (
	"fmt"
	"io"
	"sort"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"regportal/internal/domain"
	"regportal/internal/registration"
)

func newRegisterCmd(a *app) *cobra.Command {
	var form domain.RegistrationForm
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Register a student on this device",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			v := registration.New(a.api, a.store, a.log)
			if err := v.Start(ctx); err != nil {
				return err
			}
			if st := v.State(); st.Mode == registration.ModeStatus {
				printSnapshot(a.out, *st.Snapshot, st.Message)
				return errors.New("this device already holds a registration; run 'portal clear' first")
			}
			snap, err := v.Submit(ctx, form)
			if err != nil {
				var fe *registration.FormError
				if errors.As(err, &fe) {
					printFieldErrors(a.out, fe.Fields)
				}
				return errors.New(registration.Message(err))
			}
			printSnapshot(a.out, snap, v.State().Message)
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&form.Name, "name", "", "Full name")
	f.StringVar(&form.Phone, "phone", "", "Phone number")
	f.StringVar(&form.Email, "email", "", "Email address")
	f.StringVar(&form.Department, "department", "", "Department")
	f.StringVar(&form.ParentName, "parent-name", "", "Parent name")
	f.StringVar(&form.ParentEmail, "parent-email", "", "Parent email")
	f.StringVar(&form.ParentPhone, "parent-phone", "", "Parent phone")
	f.StringVar(&form.DOB, "dob", "", "Date of birth (YYYY-MM-DD)")
	return cmd
}

func newStatusCmd(a *app) *cobra.Command {
	var refresh bool
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the registration saved on this device",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			v := registration.New(a.api, a.store, a.log)
			if err := v.Start(ctx); err != nil {
				return err
			}
			st := v.State()
			if st.Mode != registration.ModeStatus {
				return errors.New("no registration on this device; run 'portal register'")
			}
			if !refresh {
				printSnapshot(a.out, *st.Snapshot, st.Message)
				return nil
			}
			snap, err := v.CheckStatus(ctx)
			if err != nil {
				printSnapshot(a.out, *st.Snapshot, "")
				return errors.New(registration.Message(err))
			}
			printSnapshot(a.out, snap, v.State().Message)
			return nil
		},
	}
	cmd.Flags().BoolVar(&refresh, "refresh", true, "Fetch the latest status from the backend")
	return cmd
}

func newClearCmd(a *app) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Forget the registration saved on this device",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			v := registration.New(a.api, a.store, a.log)
			if err := v.Start(ctx); err != nil {
				return err
			}
			if v.State().Mode != registration.ModeStatus {
				fmt.Fprintln(a.out, "Nothing to clear.")
				return nil
			}
			if !yes {
				return errors.New("this removes the saved Student ID from the device; rerun with --yes to confirm")
			}
			v.RequestClear()
			if err := v.ConfirmClear(ctx); err != nil {
				return err
			}
			fmt.Fprintln(a.out, v.State().Message)
			return nil
		},
	}
	cmd.Flags().BoolVar(&yes, "yes", false, "Confirm clearing")
	return cmd
}

func printSnapshot(w io.Writer, s domain.Snapshot, msg string) {
	if msg != "" {
		fmt.Fprintln(w, msg)
	}
	label, id := s.DisplayID()
	fmt.Fprintf(w, "%s: %s\n", label, id)
	fmt.Fprintf(w, "Name:       %s\n", s.Name)
	fmt.Fprintf(w, "Department: %s\n", s.Department)
	fmt.Fprintf(w, "Status:     %s\n", s.Status.Label())
	photo := "No"
	if s.HasPhoto {
		photo = "Yes"
	}
	fmt.Fprintf(w, "Photo:      %s\n", photo)
	fmt.Fprintln(w, s.NextStep())
}

func printFieldErrors(w io.Writer, errs map[string]string) {
	fields := make([]string, 0, len(errs))
	for f := range errs {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	for _, f := range fields {
		fmt.Fprintf(w, "  %s: %s\n", f, errs[f])
	}
}
