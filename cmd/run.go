package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/autobrr/hardlinkable/pkg/config"
	"github.com/autobrr/hardlinkable/pkg/inode"
	"github.com/autobrr/hardlinkable/pkg/linkable"
	"github.com/autobrr/hardlinkable/pkg/logger"
	"github.com/autobrr/hardlinkable/pkg/notification"
	"github.com/autobrr/hardlinkable/pkg/paths"
	"github.com/autobrr/hardlinkable/pkg/report"
	"github.com/autobrr/hardlinkable/pkg/runlock"
)

// execute walks dirs, links what it can and returns what happened. The returned results are
// valid even when an error is returned.
func execute(ctx context.Context, log *logrus.Entry, dirs []string, opts linkable.Options, walkOpts paths.Options,
	options ...linkable.Option) (*linkable.Results, paths.Stats, error) {

	walker, err := paths.NewWalker(walkOpts)
	if err != nil {
		return nil, paths.Stats{}, fmt.Errorf("initialize walker: %w", err)
	}

	files, walkStats, err := walker.Walk(ctx, dirs)
	if err != nil {
		return nil, walkStats, fmt.Errorf("walk: %w", err)
	}

	log.Infof("Retrieved %d files from %d directories", len(files), walkStats.Dirs)

	l := linkable.New(opts, options...)
	for _, f := range files {
		l.Add(f.Dir, f.Name, f.Stat)
	}

	res, err := l.Run(ctx)
	return res, walkStats, err
}

// handleRunError logs the outcome of execute and reports whether there are statistics to print.
func handleRunError(log *logrus.Entry, res *linkable.Results, err error) bool {
	var fatal *linkable.FatalError
	switch {
	case res == nil && errors.Is(err, context.Canceled):
		log.Warn("Interrupted while scanning directories")
		return false
	case res == nil:
		log.WithError(err).Fatal("Failed scanning directories")
		return false
	case errors.As(err, &fatal):
		log.WithError(err).Fatal("Failed restoring a file after an aborted link, manual repair needed")
		return false
	case errors.Is(err, context.Canceled):
		log.Warn("Interrupted. Statistics may be incomplete")
	case err != nil:
		log.WithError(err).Error("Hardlinking failed. Aborting early... Statistics may be incomplete")
	}

	return true
}

func printReport(w io.Writer, f *matchFlags, walkStats paths.Stats, res *linkable.Results) error {
	if f.noStats {
		return nil
	}

	if f.json {
		return report.JSON(w, walkStats, res)
	}

	return report.Text(w, walkStats, res, FlagLogLevel)
}

// runMatching is the body shared by scan and link.
func runMatching(cmd *cobra.Command, name string, dirs []string, f *matchFlags, linking bool) {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	start := time.Now()

	// init core
	if !initialized {
		initCore(true)
		initialized = true
	}

	// set log
	log = logger.GetLogger(name)

	noti := notification.NewDiscordSender(log, config.Config.Notifications)

	linkingEnabled := linking && !FlagDryRun
	opts, walkOpts, err := f.resolve(cmd.Flags().Changed, config.Config, linkingEnabled)
	if err != nil {
		log.WithError(err).Fatal("Failed parsing options")
	}

	// link pairs are needed for detailed notifications
	if noti.CanSend() && config.Config.Notifications.Detailed && opts.Verbosity < 1 {
		opts.Verbosity = 1
	}

	if linking {
		if FlagDryRun {
			log.Warn("Dry-run enabled, skipping links...")
		} else {
			lock, err := runlock.Acquire(FlagConfigFolder)
			if err != nil {
				log.WithError(err).Fatal("Failed acquiring run lock")
			}
			defer func() {
				if err := lock.Release(); err != nil {
					log.WithError(err).Warn("Failed releasing run lock")
				}
			}()

			log.Info("----- Hardlinking enabled. The filesystem will be modified -----")
		}
	}

	res, walkStats, runErr := execute(ctx, log, dirs, opts, walkOpts)
	if !handleRunError(log, res, runErr) {
		os.Exit(1)
	}

	if err := printReport(os.Stdout, f, walkStats, res); err != nil {
		log.WithError(err).Error("Failed printing statistics")
	}

	log.Info("-----")
	log.WithField("reclaimed_space", humanize.IBytes(res.BytesSaved)).
		Infof("Hardlinks: %d new, %d existing. Consolidated %d of %d inodes",
			res.Hardlinks, res.ExistingHardlinks, res.ConsolidatedInodes, res.Inodes)

	sendNotification(log, noti, walkStats, res, runErr, start)

	if runErr != nil {
		os.Exit(1)
	}
}

func sendNotification(log *logrus.Entry, noti notification.Sender, walkStats paths.Stats, res *linkable.Results,
	runErr error, start time.Time) {

	if !noti.CanSend() {
		log.Debug("Notifications disabled, skipping...")
		return
	}

	fields := notification.LinkFields(noti, res, func(path string) uint64 {
		st, err := inode.Lstat(path)
		if err != nil {
			return 0
		}
		return uint64(st.Size)
	})
	if runErr != nil {
		fields = append(fields, noti.BuildField(notification.ActionFailure, notification.BuildOptions{Err: runErr}))
	}

	sendErr := noti.Send(
		notification.Title(res.LinkingEnabled),
		notification.Description(walkStats, res),
		time.Since(start),
		fields,
		FlagDryRun,
	)
	if sendErr != nil {
		log.WithError(sendErr).Error("Failed sending notification")
	}
}
