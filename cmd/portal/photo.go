package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"regportal/internal/domain"
	"regportal/internal/photoadmin"
)

func newPhotoCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "photo",
		Short: "Photo room desk",
	}
	cmd.AddCommand(newPhotoListCmd(a), newPhotoUploadCmd(a), newPhotoCompleteCmd(a))
	return cmd
}

func openPhotoDesk(a *app, cmd *cobra.Command, camera photoadmin.Camera) (*photoadmin.Desk, error) {
	if _, err := requireAdmin(a, domain.RoleSuperAdmin, domain.RolePhotoAdmin); err != nil {
		return nil, err
	}
	desk := photoadmin.NewDesk(a.api, camera, a.notes, a.log)
	if err := desk.Load(cmd.Context()); err != nil {
		return nil, err
	}
	return desk, nil
}

func newPhotoListCmd(a *app) *cobra.Command {
	var search string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List students waiting for a photo",
		RunE: func(cmd *cobra.Command, args []string) error {
			desk, err := openPhotoDesk(a, cmd, nil)
			if err != nil {
				return err
			}
			printStudents(a.out, desk.Filter(search))
			return nil
		},
	}
	cmd.Flags().StringVar(&search, "search", "", "Filter by name, student ID, email or department")
	return cmd
}

func newPhotoUploadCmd(a *app) *cobra.Command {
	var file, frame string
	cmd := &cobra.Command{
		Use:   "upload <student-id>",
		Short: "Capture or pick a photo and upload it",
		Long: `Upload a photo for a student. --file sends an image file as picked; --camera
captures a frame from a still image source and encodes it as JPEG.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if (file == "") == (frame == "") {
				return errors.New("give exactly one of --file or --camera")
			}
			ctx := cmd.Context()
			var camera photoadmin.Camera
			if frame != "" {
				camera = photoadmin.ImageFileCamera{Path: frame}
			}
			desk, err := openPhotoDesk(a, cmd, camera)
			if err != nil {
				return err
			}
			defer desk.Close()
			if err := desk.Select(args[0]); err != nil {
				return err
			}

			if frame != "" {
				if err := desk.StartCamera(ctx); err != nil {
					return err
				}
				if _, err := desk.Capture(); err != nil {
					return err
				}
			} else {
				data, err := os.ReadFile(file)
				if err != nil {
					return errors.Wrap(err, "read photo")
				}
				if _, err := desk.PickFile(data); err != nil {
					return err
				}
			}

			res, err := desk.Upload(ctx)
			if res.ApplicationNumber != "" {
				fmt.Fprintf(a.out, "Application Number: %s\n", res.ApplicationNumber)
			}
			return err
		},
	}
	cmd.Flags().StringVar(&file, "file", "", "Image file to upload")
	cmd.Flags().StringVar(&frame, "camera", "", "Still image used as the camera frame")
	return cmd
}

func newPhotoCompleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "complete <student-id>",
		Short: "Mark a student's photo as taken",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			desk, err := openPhotoDesk(a, cmd, nil)
			if err != nil {
				return err
			}
			return desk.MarkComplete(cmd.Context(), args[0])
		},
	}
}

func printStudents(w io.Writer, students []domain.Student) {
	if len(students) == 0 {
		fmt.Fprintln(w, "No students found.")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "STUDENT ID\tNAME\tDEPARTMENT\tSTATUS\tPHOTO")
	for _, s := range students {
		photo := "-"
		if s.HasPhoto {
			photo = "yes"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", s.StudentID, s.Name, s.Department, s.Status.Label(), photo)
	}
	tw.Flush()
}
