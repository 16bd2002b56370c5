package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"regportal/internal/boardserver"
	"regportal/internal/queueboard"
)

func newQueueCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "queue",
		Short: "Show who is next at each department",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "once",
			Short: "Fetch the queue once and print it",
			RunE: func(cmd *cobra.Command, args []string) error {
				b := queueboard.New(a.api, a.log, queueboard.WithMetrics(queueboard.NewMetrics(a.reg)))
				_, err := b.Refresh(cmd.Context())
				printBoard(a.out, b.State())
				return err
			},
		},
		&cobra.Command{
			Use:   "watch",
			Short: "Poll the queue and reprint it on every update",
			RunE: func(cmd *cobra.Command, args []string) error {
				b := queueboard.New(a.api, a.log,
					queueboard.WithInterval(a.cfg.QueueInterval),
					queueboard.WithMetrics(queueboard.NewMetrics(a.reg)),
					queueboard.OnUpdate(func(st queueboard.State) { printBoard(a.out, st) }),
				)
				if err := b.Run(cmd.Context()); err != nil && cmd.Context().Err() == nil {
					return err
				}
				return nil
			},
		},
	)
	return cmd
}

func newBoardCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "board",
		Short: "Lobby board server",
	}
	var port string
	serve := &cobra.Command{
		Use:   "serve",
		Short: "Poll the queue and serve it over HTTP for a lobby screen",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if port == "" {
				port = a.cfg.BoardHTTPPort
			}
			b := queueboard.New(a.api, a.log,
				queueboard.WithInterval(a.cfg.QueueInterval),
				queueboard.WithMetrics(queueboard.NewMetrics(a.reg)),
			)
			go func() { _ = b.Run(ctx) }()

			srv := &http.Server{
				Addr: ":" + port,
				Handler: boardserver.Router(b, boardserver.Options{
					RateLimitPerMin: a.cfg.RateLimitPerMin,
					Gatherer:        a.reg,
				}),
				ReadTimeout:  15 * time.Second,
				WriteTimeout: 15 * time.Second,
				IdleTimeout:  60 * time.Second,
			}
			errCh := make(chan error, 1)
			go func() {
				a.log.WithField("port", port).Info("starting board server")
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					errCh <- err
				}
			}()
			select {
			case err := <-errCh:
				return err
			case <-ctx.Done():
			}
			a.log.Info("shutting down board server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	}
	serve.Flags().StringVar(&port, "port", "", "HTTP port (overrides BOARD_HTTP_PORT)")
	cmd.AddCommand(serve)
	return cmd
}

func printBoard(w io.Writer, st queueboard.State) {
	switch {
	case st.ConnectionError():
		fmt.Fprintln(w, "Unable to reach the registration server. Retrying...")
		return
	case st.Stale():
		fmt.Fprintf(w, "Connection lost, showing data from %s\n", st.UpdatedAt.Format("15:04:05"))
	default:
		fmt.Fprintf(w, "Updated %s\n", st.UpdatedAt.Format("15:04:05"))
	}
	rows := st.View()
	if len(rows) == 0 {
		fmt.Fprintln(w, "No students in queue")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "DEPARTMENT\tNOW SERVING\tSTUDENT ID\tWAITING")
	for _, r := range rows {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\n", r.Department, r.Next.Name, r.Next.StudentID, r.Remaining)
	}
	tw.Flush()
	fmt.Fprintf(w, "Total waiting: %d\n", st.Waiting())
}
