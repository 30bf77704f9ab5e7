package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/hszk-dev/atelier/internal/auth"
	"github.com/hszk-dev/atelier/internal/domain/model"
	"github.com/hszk-dev/atelier/internal/infrastructure/postgres"
	"github.com/hszk-dev/atelier/internal/usecase"
)

func newMigrateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply record store migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := postgres.Migrate(cmd.Context(), a.cfg.Database.DSN()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
			return nil
		},
	}
}

func newTokenCmd(a *app) *cobra.Command {
	var subject string
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a bearer token for the gateway delete endpoint",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			token, err := auth.IssueToken(subject, []byte(a.cfg.Auth.JWTSecret), a.cfg.Auth.TokenTTL)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().StringVar(&subject, "subject", "studio", "token subject")
	return cmd
}

func newCreateEventCmd(a *app) *cobra.Command {
	var in usecase.CreateEventInput
	var hidden bool
	cmd := &cobra.Command{
		Use:   "create-event <title>",
		Short: "Create an event",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.connect(cmd.Context()); err != nil {
				return err
			}
			in.Title = args[0]
			in.Visible = !hidden

			out, err := a.engine.CreateEvent(cmd.Context(), in)
			if err != nil {
				return err
			}
			printEvent(cmd.OutOrStdout(), out.Event)
			if out.SyncErr != nil {
				fmt.Fprintf(cmd.OutOrStdout(), "warning: kept locally only: %v\n", out.SyncErr)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&in.Slug, "slug", "", "slug (defaults to the slugified title)")
	cmd.Flags().StringVar(&in.Category, "category", "", "event category")
	cmd.Flags().BoolVar(&in.Featured, "featured", false, "feature the event")
	cmd.Flags().BoolVar(&hidden, "hidden", false, "hide the event from the portfolio")
	return cmd
}

func newUpdateEventCmd(a *app) *cobra.Command {
	var title, category string
	var visible, featured bool
	cmd := &cobra.Command{
		Use:   "update-event <event>",
		Short: "Change an event's title, category or flags",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.connect(cmd.Context()); err != nil {
				return err
			}
			event, err := a.engine.FindEvent(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			var details usecase.EventDetails
			flags := cmd.Flags()
			if flags.Changed("title") {
				details.Title = &title
			}
			if flags.Changed("category") {
				details.Category = &category
			}
			if flags.Changed("visible") {
				details.Visible = &visible
			}
			if flags.Changed("featured") {
				details.Featured = &featured
			}

			updated, err := a.engine.UpdateEventDetails(cmd.Context(), event.ID, details)
			if err != nil {
				return err
			}
			printEvent(cmd.OutOrStdout(), updated)
			return nil
		},
	}
	cmd.Flags().StringVar(&title, "title", "", "new title")
	cmd.Flags().StringVar(&category, "category", "", "new category")
	cmd.Flags().BoolVar(&visible, "visible", true, "show the event in the portfolio")
	cmd.Flags().BoolVar(&featured, "featured", false, "feature the event")
	return cmd
}

func newUploadCmd(a *app, use, short string, videos bool) *cobra.Command {
	var concurrency int
	cmd := &cobra.Command{
		Use:   use + " <event> <file>...",
		Short: short,
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			files, err := usecase.OpenLocalFiles(args[1:])
			if err != nil {
				return err
			}
			if err := a.connect(cmd.Context()); err != nil {
				return err
			}
			event, err := a.engine.FindEvent(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			opts := usecase.UploadOptions{
				Concurrency: concurrency,
				OnFileComplete: func(fileID string, success bool, url string) {
					if success {
						fmt.Fprintf(out, "uploaded #%s %s\n", fileID, url)
					}
				},
				OnProgress: func(completed, total int, _ map[string]int) {
					fmt.Fprintf(out, "progress %d/%d\n", completed, total)
				},
			}

			add := a.engine.AddPhotos
			if videos {
				add = a.engine.AddVideos
			}
			result, err := add(cmd.Context(), event.ID, files, opts)
			if result != nil && result.Upload != nil {
				printMediaResult(out, result)
			}
			return err
		},
	}
	cmd.Flags().IntVarP(&concurrency, "concurrency", "c", 0, "parallel uploads (0 uses UPLOAD_CONCURRENCY)")
	return cmd
}

func newAddVideoCmd(a *app) *cobra.Command {
	var title string
	cmd := &cobra.Command{
		Use:   "add-video <event> <youtube-or-vimeo-url>",
		Short: "Link a hosted video to an event",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.connect(cmd.Context()); err != nil {
				return err
			}
			event, err := a.engine.FindEvent(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			video, err := a.engine.AddExternalVideo(cmd.Context(), event.ID, args[1], title)
			if video != nil {
				fmt.Fprintf(cmd.OutOrStdout(), "video %s (%s) %s\n", video.ID, video.Type, video.URL)
			}
			return err
		},
	}
	cmd.Flags().StringVar(&title, "title", "", "video title")
	return cmd
}

func newSetCoverCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "set-cover <event> <image>",
		Short: "Upload a new cover image and remove the old one",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			file, err := usecase.OpenLocalFile(args[1])
			if err != nil {
				return err
			}
			if err := a.connect(cmd.Context()); err != nil {
				return err
			}
			event, err := a.engine.FindEvent(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			result, err := a.engine.SetCover(cmd.Context(), event.ID, file)
			if err != nil {
				return err
			}
			printEvent(cmd.OutOrStdout(), result.Event)
			printReport(cmd.OutOrStdout(), result.Report)
			return nil
		},
	}
}

func newDeleteEventCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete-event <event>",
		Short: "Delete an event with all of its photos, videos and files",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.connect(cmd.Context()); err != nil {
				return err
			}
			event, err := a.engine.FindEvent(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			report, err := a.engine.DeleteEvent(cmd.Context(), event.ID)
			if err != nil {
				return err
			}
			printReport(cmd.OutOrStdout(), report)
			if !report.RecordsDeleted() {
				return fmt.Errorf("event %s: record store delete incomplete", event.Slug)
			}
			return nil
		},
	}
}

func newDeletePhotoCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete-photo <photo-id>",
		Short: "Delete a photo and its files",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid photo id %q: %w", args[0], err)
			}
			if err := a.connect(cmd.Context()); err != nil {
				return err
			}
			report, err := a.engine.DeletePhoto(cmd.Context(), id)
			if err != nil {
				return err
			}
			printReport(cmd.OutOrStdout(), report)
			return nil
		},
	}
}

func newDeleteVideoCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete-video <video-id>",
		Short: "Delete a video and, unless hosted elsewhere, its files",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid video id %q: %w", args[0], err)
			}
			if err := a.connect(cmd.Context()); err != nil {
				return err
			}
			report, err := a.engine.DeleteVideo(cmd.Context(), id)
			if err != nil {
				return err
			}
			printReport(cmd.OutOrStdout(), report)
			return nil
		},
	}
}

func newRefreshCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "refresh <event>",
		Short: "Reload an event's rows from the record store into the cache",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.connect(cmd.Context()); err != nil {
				return err
			}
			event, err := a.engine.FindEvent(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			result, err := a.engine.RefreshEvent(cmd.Context(), event.ID)
			if err != nil {
				return err
			}
			if result.Removed {
				fmt.Fprintf(cmd.OutOrStdout(), "event %s no longer exists; dropped %d cached items\n", event.Slug, result.Dropped)
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "event %s: %d photos, %d videos, dropped %d stale items\n",
				result.Event.Slug, result.Photos, result.Videos, result.Dropped)
			return nil
		},
	}
}

func printEvent(w io.Writer, e *model.Event) {
	remote := "unsynced"
	if e.HasRemoteID() {
		remote = e.RemoteID.String()
	}
	fmt.Fprintf(w, "event %s slug=%s remote=%s title=%q\n", e.ID, e.Slug, remote, e.Title)
	if e.CoverImageURL != "" {
		fmt.Fprintf(w, "  cover %s\n", e.CoverImageURL)
	}
}

func printMediaResult(w io.Writer, r *usecase.AddMediaResult) {
	s := r.Upload.Stats
	fmt.Fprintf(w, "%d/%d uploaded in %s\n", s.Successful, s.TotalFiles, s.Duration.Round(time.Millisecond))
	for _, f := range r.Upload.Failed {
		fmt.Fprintf(w, "  failed %s: %s\n", f.FileName, f.Error)
	}
	for _, f := range r.SyncFailures {
		fmt.Fprintf(w, "  not recorded %s: %v\n", f.FileName, f.Err)
	}
}

func printReport(w io.Writer, r *usecase.DeleteReport) {
	steps := r.Steps()
	failures := r.Failures()
	fmt.Fprintf(w, "%d steps, %d failed\n", len(steps), len(failures))
	for _, s := range failures {
		fmt.Fprintf(w, "  %s %s: %v\n", s.Step, s.Target, s.Err)
	}
	if queued := r.Attempts(usecase.StepRetryQueued); len(queued) > 0 {
		targets := make([]string, len(queued))
		for i, s := range queued {
			targets[i] = s.Target
		}
		fmt.Fprintf(w, "  queued for retry: %s\n", strings.Join(targets, ", "))
	}
}
