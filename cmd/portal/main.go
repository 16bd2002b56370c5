package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rootCmd := newRootCommand()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "portal: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var a app
	cmd := &cobra.Command{
		Use:   "portal",
		Short: "College registration portal",
		Long: `portal drives the registration desks from a terminal: student self-registration,
the lobby queue board, the photo room, department document verification and
admin account management.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init(cmd)
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return a.close()
		},
	}
	cmd.PersistentFlags().StringVar(&a.apiURL, "api", "", "Backend base URL (overrides PORTAL_API_BASE_URL)")
	cmd.PersistentFlags().StringVar(&a.profile, "profile", "", "Device profile whose state is used (overrides PORTAL_PROFILE)")
	cmd.AddCommand(
		newRegisterCmd(&a),
		newStatusCmd(&a),
		newClearCmd(&a),
		newQueueCmd(&a),
		newBoardCmd(&a),
		newAdminCmd(&a),
		newPhotoCmd(&a),
		newDeptCmd(&a),
		newSuperCmd(&a),
	)
	return cmd
}
