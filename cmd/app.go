package cmd

import (
	"database/sql"
	"fmt"
	"io"
	"log/slog"

	"github.com/user/rangeclip/capture"
	"github.com/user/rangeclip/config"
	"github.com/user/rangeclip/db"
	"github.com/user/rangeclip/logging"
	"github.com/user/rangeclip/media"
	"github.com/user/rangeclip/mpv"
	"github.com/user/rangeclip/pkg/export"
	"github.com/user/rangeclip/recorder"
	"github.com/user/rangeclip/sampler"
	"github.com/user/rangeclip/selection"
	"github.com/user/rangeclip/session"
	"github.com/user/rangeclip/thumbnail"
)

// app is everything a command needs, built from one Config.
type app struct {
	cfg     config.Config
	log     *slog.Logger
	db      *sql.DB
	journal *db.Journal
	thumbs  *thumbnail.Service
	sess    *session.Session

	closers []io.Closer
}

func loadConfig() (config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return config.Config{}, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

// newApp opens the journal and builds the session stack. logger nil means
// the TUI log file.
func newApp(cfg config.Config, logger *slog.Logger) (*app, error) {
	a := &app{cfg: cfg}
	if logger == nil {
		l, closer, err := logging.NewFileLogger(cfg.LogLevel, cfg.LogPath())
		if err != nil {
			return nil, fmt.Errorf("open log: %w", err)
		}
		logger = l
		a.closers = append(a.closers, closer)
	}
	a.log = logger

	database, err := db.Open(cfg.DBPath())
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	a.db = database
	a.journal = db.NewJournal(database)
	if n, err := a.journal.Recover(); err != nil {
		a.log.Warn("journal recovery failed", "error", err)
	} else if n > 0 {
		a.log.Info("marked interrupted exports as failed", "count", n)
	}

	smp := sampler.New(logging.WithComponent(logger, "sampler"))
	smp.SeekTimeout = cfg.SeekTimeout
	smp.MaxWidth = cfg.ThumbWidth
	smp.Quality = cfg.ThumbQuality

	a.thumbs = thumbnail.NewService(smp, logging.WithComponent(logger, "thumbnail"))
	a.thumbs.OverviewCount = cfg.OverviewCount
	a.thumbs.PreviewInterval = cfg.PreviewInterval

	rec := recorder.New(cfg.FfmpegBinary, logging.WithComponent(logger, "recorder"))
	pipeline := capture.New(capture.Options{
		Recorder:     rec,
		SeekTimeout:  cfg.SeekTimeout,
		TickInterval: cfg.TickInterval,
		FlushTimeout: cfg.FlushTimeout,
		Logger:       logging.WithComponent(logger, "capture"),
		Name: func(r selection.Range) string {
			return export.ArtifactName(r, rec.Container().Extension)
		},
	})

	a.sess = session.New(session.Options{
		Loader:     a.loader(),
		Thumbnails: a.thumbs,
		Pipeline:   pipeline,
		Debounce:   cfg.Debounce,
		Journal:    a.journal,
		MaxSpan:    cfg.MaxSpan,
		MinSpan:    cfg.MinSpan,
		Logger:     logger,
	})
	return a, nil
}

func (a *app) loader() media.Loader {
	return &mpv.Loader{
		Binary: a.cfg.MpvBinary,
		Socket: a.cfg.MpvSocket,
		Args:   a.cfg.MpvArgs,
		Logger: logging.WithComponent(a.log, "mpv"),
	}
}

// Close shuts the session down before the journal it writes to.
func (a *app) Close() {
	if a.sess != nil {
		a.sess.Close()
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.log.Warn("close database", "error", err)
		}
	}
	for _, c := range a.closers {
		_ = c.Close()
	}
}
