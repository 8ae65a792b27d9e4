package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/rxvxrsx/revgrab/internal/app"
	"github.com/rxvxrsx/revgrab/internal/domain"
	"github.com/rxvxrsx/revgrab/internal/infrastructure"
	"github.com/rxvxrsx/revgrab/pkg/logger"
)

var (
	configPath string
	rootCmd    = &cobra.Command{
		Use:   "revgrab",
		Short: "revgrab - download media from streaming platforms",
		Long:  `A command-line downloader for videos, audio and playlists from supported streaming platforms.`,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file path")

	rootCmd.AddCommand(getCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(platformsCmd)
}

var getCmd = &cobra.Command{
	Use:   "get [url]",
	Short: "Download a video, audio track or playlist",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		url := args[0]

		config, err := app.LoadConfig(configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		opts := domain.DefaultDownloadOptions()
		if audio, _ := cmd.Flags().GetBool("audio"); audio {
			opts.Type = domain.MediaAudio
		}
		if res, _ := cmd.Flags().GetString("resolution"); res != "" {
			opts.Resolution = res
		}
		if format, _ := cmd.Flags().GetString("audio-format"); format != "" {
			opts.AudioFormat = format
		}
		if noPlaylist, _ := cmd.Flags().GetBool("no-playlist"); noPlaylist {
			opts.Playlist = false
		}
		if limit, _ := cmd.Flags().GetInt("limit"); limit > 0 {
			opts.PlaylistLimit = limit
		}
		opts.OutputDir, _ = cmd.Flags().GetString("output")
		if opts.OutputDir == "" {
			opts.OutputDir = config.Engine.DownloadDir
		}
		if workers, _ := cmd.Flags().GetInt("concurrency"); workers > 0 {
			config.Engine.Concurrency = workers
		}

		// Keep console output quiet; the event stream is the user's view.
		logCfg := logger.Config{
			Level:      "error",
			Format:     config.Logging.Format,
			OutputPath: "stderr",
		}
		if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
			logCfg.Level = "debug"
			logCfg.Format = "console"
		}
		zl, err := logger.New(logCfg)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		defer zl.Sync()

		var recorders []app.ResultRecorder
		if config.History.Enabled {
			store, err := infrastructure.NewSQLiteHistoryStore(config.History.DatabasePath, zl)
			if err != nil {
				zl.Warn("history disabled", zap.Error(err))
			} else {
				recorders = append(recorders, store)
			}
		}
		if config.Notification.Enabled {
			recorders = append(recorders, infrastructure.NewNotificationService(config.Notification, zl))
		}

		backend := infrastructure.NewBackendRouter(config.Backend, zl)
		bus := app.NewEventBus()
		controller := app.NewSessionController(
			backend,
			config.Engine,
			infrastructure.NewDiskSpaceChecker(),
			bus,
			zl,
			recorders...,
		)

		events := bus.Subscribe()
		defer bus.Unsubscribe(events)

		sessionID, err := controller.StartSession(url, opts)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		// First Ctrl-C cancels gracefully, a second one force-quits.
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
		go func() {
			<-sigCh
			controller.Cancel()
			<-sigCh
			os.Exit(1)
		}()

		bar := progressbar.NewOptions(1000,
			progressbar.OptionSetDescription("downloading"),
			progressbar.OptionSetWriter(os.Stderr),
			progressbar.OptionShowCount(),
			progressbar.OptionSetWidth(30),
			progressbar.OptionThrottle(100*time.Millisecond),
			progressbar.OptionClearOnFinish(),
		)

		done := make(chan domain.SessionResult, 1)
		go func() {
			result, _ := controller.Wait(sessionID)
			done <- result
		}()

		for {
			select {
			case ev := <-events:
				if ev.Progress != nil {
					bar.Set(int(ev.Progress.Percent * 1000))
					if speed := app.FormatSpeed(ev.Progress.SpeedBps); ev.Progress.SpeedBps > 0 {
						desc := "downloading " + speed
						if eta := app.FormatETA(ev.Progress.ETASeconds); eta != "" {
							desc += " ETA " + eta
						}
						bar.Describe(desc)
					}
					continue
				}
				printEvent(ev)
			case result := <-done:
				bar.Finish()
				printResult(result)
				if result.Outcome == domain.OutcomeAllFailed {
					os.Exit(1)
				}
				return
			}
		}
	},
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recent download sessions",
	Run: func(cmd *cobra.Command, args []string) {
		config, err := app.LoadConfig(configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		zl := logger.NewDefault()
		store, err := infrastructure.NewSQLiteHistoryStore(config.History.DatabasePath, zl)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		limit, _ := cmd.Flags().GetInt("limit")
		records, err := store.Recent(limit)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "SESSION\tURL\tPLATFORM\tOUTCOME\tOK\tFAILED\tDURATION")
		for _, r := range records {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%d\t%.1fs\n",
				r.SessionID,
				truncate(r.URL, 40),
				r.Platform,
				r.Outcome,
				r.Completed,
				r.Failed,
				r.Duration)
		}
		w.Flush()
	},
}

var platformsCmd = &cobra.Command{
	Use:   "platforms",
	Short: "List supported platforms",
	Run: func(cmd *cobra.Command, args []string) {
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "HOST\tPLATFORM")
		for _, p := range domain.SupportedPlatforms() {
			fmt.Fprintf(w, "%s\t%s\n", p.Host, p.Name)
		}
		w.Flush()
	},
}

// printEvent renders one engine event on the terminal
func printEvent(ev app.Event) {
	prefix := map[app.LogLevel]string{
		app.LevelInfo:     "*",
		app.LevelWarning:  "!",
		app.LevelError:    "x",
		app.LevelSuccess:  "+",
		app.LevelDownload: ">",
	}[ev.Level]
	if prefix == "" {
		prefix = "*"
	}
	fmt.Fprintf(os.Stderr, "%s %s\n", prefix, ev.Message)
}

func printResult(result domain.SessionResult) {
	switch result.Outcome {
	case domain.OutcomeAllSucceeded:
		fmt.Printf("Done: %d item(s) in %.1fs\n", result.Completed, result.Duration.Seconds())
	case domain.OutcomeCancelled:
		fmt.Println("Cancelled")
	default:
		fmt.Printf("Finished with errors: %d completed, %d failed\n", result.Completed, result.Failed)
	}
}

func init() {
	getCmd.Flags().BoolP("audio", "a", false, "Extract audio only")
	getCmd.Flags().StringP("resolution", "r", "", "Max video resolution (e.g. 1080p)")
	getCmd.Flags().String("audio-format", "", "Audio format for extraction (mp3, m4a, flac)")
	getCmd.Flags().Bool("no-playlist", false, "Download only the single item even for playlist URLs")
	getCmd.Flags().IntP("limit", "l", 0, "Max playlist items")
	getCmd.Flags().IntP("concurrency", "c", 0, "Concurrent downloads (1-10)")
	getCmd.Flags().StringP("output", "o", "", "Output directory")
	getCmd.Flags().BoolP("verbose", "v", false, "Verbose logging")
	historyCmd.Flags().IntP("limit", "l", 20, "Number of sessions to show")
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
