package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"regportal/internal/deptadmin"
	"regportal/internal/domain"
)

func newDeptCmd(a *app) *cobra.Command {
	var department string
	cmd := &cobra.Command{
		Use:   "dept",
		Short: "Department document verification desk",
	}
	cmd.PersistentFlags().StringVar(&department, "department", "", "Department (super admins only; others use their own)")
	open := func(cmd *cobra.Command) (*deptadmin.Desk, error) {
		return openDeptDesk(a, cmd, department)
	}
	cmd.AddCommand(
		newDeptListCmd(a, open),
		newDeptShowCmd(a, open),
		newDeptVerifyCmd(a, open),
		newDeptBulkCmd(a, open),
	)
	return cmd
}

type deskOpener func(cmd *cobra.Command) (*deptadmin.Desk, error)

func openDeptDesk(a *app, cmd *cobra.Command, department string) (*deptadmin.Desk, error) {
	me, err := requireAdmin(a, domain.RoleSuperAdmin, domain.RoleDepartmentAdmin)
	if err != nil {
		return nil, err
	}
	dept := me.DepartmentName()
	if me.Role == domain.RoleSuperAdmin || dept == "" {
		if department == "" {
			return nil, errors.New("--department is required")
		}
		if dept, err = deptadmin.DepartmentFromRoute(department); err != nil {
			return nil, err
		}
	} else if department != "" {
		other, err := deptadmin.DepartmentFromRoute(department)
		if err != nil {
			return nil, err
		}
		if other != dept {
			return nil, errors.Errorf("you can only verify students of %s", dept)
		}
	}
	desk := deptadmin.New(a.api, dept, me.Name, a.notes, a.log)
	if err := desk.Load(cmd.Context()); err != nil {
		return nil, err
	}
	return desk, nil
}

func findStudent(desk *deptadmin.Desk, id string) (domain.Student, error) {
	for _, s := range desk.Students() {
		if s.StudentID == id {
			return s, nil
		}
	}
	return domain.Student{}, errors.Errorf("%s is not awaiting verification in %s", id, desk.Department())
}

func newDeptListCmd(a *app, open deskOpener) *cobra.Command {
	var search string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List students awaiting document verification",
		RunE: func(cmd *cobra.Command, args []string) error {
			desk, err := open(cmd)
			if err != nil {
				return err
			}
			st := desk.Stats()
			fmt.Fprintf(a.out, "%s: %d students, %d verified, %d pending (%d%% complete)\n",
				desk.Department(), st.Total, st.FullyVerified, st.Pending, st.CompletionRate)
			students := desk.Filter(search)
			if len(students) == 0 {
				fmt.Fprintln(a.out, "No students found.")
				return nil
			}
			tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "STUDENT ID\tNAME\tSTATUS\tDOCUMENTS")
			for _, s := range students {
				docs := "unknown"
				if p, ok := deptadmin.Progress(s); ok {
					docs = fmt.Sprintf("%d/%d (%d%%)", p.Verified, p.Total, p.Percentage)
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", s.StudentID, s.Name, s.Status.Label(), docs)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().StringVar(&search, "search", "", "Filter by name, student ID or email")
	return cmd
}

func newDeptShowCmd(a *app, open deskOpener) *cobra.Command {
	return &cobra.Command{
		Use:   "show <student-id>",
		Short: "Show a student's document checklist",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			desk, err := open(cmd)
			if err != nil {
				return err
			}
			s, err := findStudent(desk, args[0])
			if err != nil {
				return err
			}
			printChecklist(a.out, s, desk.Open(cmd.Context(), s))
			desk.Close()
			return nil
		},
	}
}

func newDeptVerifyCmd(a *app, open deskOpener) *cobra.Command {
	var (
		verify, unverify, notes []string
		all                     bool
	)
	cmd := &cobra.Command{
		Use:   "verify <student-id>",
		Short: "Record verified documents for a student and save",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			desk, err := open(cmd)
			if err != nil {
				return err
			}
			s, err := findStudent(desk, args[0])
			if err != nil {
				return err
			}
			desk.Open(cmd.Context(), s)
			if all {
				for _, dt := range domain.DocumentTypes {
					verify = append(verify, dt.ID)
				}
			}
			for _, id := range verify {
				if err := desk.Toggle(id, true); err != nil {
					return err
				}
			}
			for _, id := range unverify {
				if err := desk.Toggle(id, false); err != nil {
					return err
				}
			}
			for _, n := range notes {
				id, text, ok := strings.Cut(n, "=")
				if !ok {
					return errors.Errorf("note %q must look like <document>=<text>", n)
				}
				if err := desk.SetNotes(id, text); err != nil {
					return err
				}
			}
			_, docs, err := desk.Checklist()
			if err != nil {
				return err
			}
			printChecklist(a.out, s, docs)
			_, err = desk.Save(cmd.Context())
			return err
		},
	}
	f := cmd.Flags()
	f.StringSliceVar(&verify, "doc", nil, "Document id to mark verified (repeatable)")
	f.StringSliceVar(&unverify, "undo", nil, "Document id to mark unverified (repeatable)")
	f.StringArrayVar(&notes, "note", nil, "Note on a document as <document>=<text> (repeatable)")
	f.BoolVar(&all, "all", false, "Mark every document verified")
	return cmd
}

func newDeptBulkCmd(a *app, open deskOpener) *cobra.Command {
	return &cobra.Command{
		Use:   "bulk <student-id>...",
		Short: "Verify every document of the given students",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			desk, err := open(cmd)
			if err != nil {
				return err
			}
			for _, id := range args {
				desk.Select(id)
			}
			if len(desk.Selected()) != len(args) {
				fmt.Fprintln(a.out, "Some students are not awaiting verification in this department and were skipped.")
			}
			_, err = desk.BulkVerify(cmd.Context())
			return err
		},
	}
}

func printChecklist(w io.Writer, s domain.Student, docs domain.DocumentMap) {
	fmt.Fprintf(w, "%s (%s)\n", s.Name, s.StudentID)
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "\tDOCUMENT\tID\tVERIFIED BY\tNOTES")
	for _, dt := range domain.DocumentTypes {
		c := docs[dt.ID]
		mark, by := "[ ]", ""
		if c.Verified {
			mark = "[x]"
			if c.VerifiedBy != nil {
				by = *c.VerifiedBy
			}
		}
		label := dt.Label
		if dt.Required {
			label += " *"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", mark, label, dt.ID, by, c.Notes)
	}
	tw.Flush()
	p := docs.Progress()
	fmt.Fprintf(w, "%d/%d verified (%d%%)\n", p.Verified, p.Total, p.Percentage)
}
