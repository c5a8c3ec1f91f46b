// Command process_docs is a standalone worker that keeps attachment
// records and their derived artifacts in sync with the files on disk:
// it backfills missing thumbnails, retries OCR on invoice images that
// have no scanned amount yet, and marks unreadable files as failed.
// It runs an initial full scan and then follows fsnotify events.
package main

import (
	"flag"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"sync"
	"syscall"
	"time"

	"docmon/config"
	"docmon/models"
	"docmon/pkg/docscan"
	pkglog "docmon/pkg/log"

	"github.com/fsnotify/fsnotify"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

var (
	db     *gorm.DB
	cfg    *config.Config
	logger pkglog.Logger

	dryRun  bool
	minConf float64
)

func main() {
	flag.BoolVar(&dryRun, "dry-run", false, "scan and report without writing to the DB")
	flag.Float64Var(&minConf, "min-conf", 0.3, "minimum OCR confidence to accept an amount")
	rescan := flag.Duration("rescan", 10*time.Minute, "interval for full rescans (0 disables)")
	flag.Parse()

	cfg = config.MustLoad()
	logger = pkglog.New(cfg.AppEnv)
	if cfg.DBDSN == "" {
		logger.Fatal().Msg("DB_DSN not set; export and retry")
	}
	var err error
	db, err = gorm.Open(postgres.Open(cfg.DBDSN), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to open db")
	}

	if err := scanAll(); err != nil {
		logger.Error().Err(err).Msg("initial scan failed")
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		logger.Fatal().Err(err).Msg("fsnotify init failed")
	}
	defer watcher.Close()
	addWatchDirs(watcher, cfg.UploadBase)

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	var ticker *time.Ticker
	var tick <-chan time.Time
	if *rescan > 0 {
		ticker = time.NewTicker(*rescan)
		tick = ticker.C
		defer ticker.Stop()
	}

	for {
		select {
		case ev, ok := <-watcher.Events:
			if !ok {
				return
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write) == 0 {
				continue
			}
			if fi, err := os.Stat(ev.Name); err == nil && fi.IsDir() {
				addWatchDirs(watcher, ev.Name)
				continue
			}
			// writes often arrive in bursts while the upload streams;
			// give the file a moment to settle
			time.Sleep(500 * time.Millisecond)
			processPath(ev.Name)
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			logger.Warn().Err(err).Msg("watcher error")
		case <-tick:
			if err := scanAll(); err != nil {
				logger.Error().Err(err).Msg("rescan failed")
			}
		case <-stop:
			logger.Info().Msg("shutting down")
			return
		}
	}
}

// addWatchDirs registers dir and every subdirectory with the watcher.
func addWatchDirs(w *fsnotify.Watcher, dir string) {
	_ = filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil
		}
		if info.IsDir() {
			if err := w.Add(path); err != nil {
				logger.Warn().Err(err).Str("dir", path).Msg("watch add failed")
			}
		}
		return nil
	})
}

// scanAll walks every pending attachment through a small worker pool.
func scanAll() error {
	var pending []models.Attachment
	err := db.Where("failed = ?", false).
		Where("(thumb_path = '' AND content_type LIKE 'image/%') OR (invoice_id IS NOT NULL AND scanned_amount IS NULL AND content_type LIKE 'image/%')").
		Find(&pending).Error
	if err != nil {
		return err
	}
	if len(pending) == 0 {
		return nil
	}
	logger.Info().Int("count", len(pending)).Msg("processing pending attachments")

	jobs := make(chan models.Attachment)
	var wg sync.WaitGroup
	workers := runtime.NumCPU()
	if workers > 4 {
		workers = 4 // OCR is memory-hungry; cap the pool
	}
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for att := range jobs {
				processAttachment(&att)
			}
		}()
	}
	for _, att := range pending {
		jobs <- att
	}
	close(jobs)
	wg.Wait()
	return nil
}

// processPath handles a single file event by locating its record.
func processPath(path string) {
	rel, err := filepath.Rel(cfg.UploadBase, path)
	if err != nil {
		return
	}
	var att models.Attachment
	if err := db.Where("store_path = ?", rel).First(&att).Error; err != nil {
		return // no record yet; the upload handler creates it
	}
	processAttachment(&att)
}

func processAttachment(att *models.Attachment) {
	fullPath := filepath.Join(cfg.UploadBase, att.StorePath)
	if _, err := os.Stat(fullPath); err != nil {
		markFailed(att, "file missing on disk")
		return
	}
	if !docscan.IsImage(fullPath) {
		return
	}
	updates := map[string]interface{}{}
	if att.ThumbPath == "" {
		thumbRel := filepath.Join("thumbs", att.StorePath)
		if err := docscan.Thumbnail(fullPath, filepath.Join(cfg.UploadBase, thumbRel), 320); err != nil {
			markFailed(att, "thumbnail failed: "+err.Error())
			return
		}
		updates["thumb_path"] = thumbRel
	}
	if att.InvoiceID != nil && att.ScannedAmount == nil {
		amt, conf, err := docscan.ExtractAmount(fullPath)
		if err != nil {
			logger.Debug().Err(err).Str("file", att.FileName).Msg("ocr failed")
		} else if amt > 0 && conf >= minConf {
			updates["scanned_amount"] = amt
		}
	}
	if len(updates) == 0 {
		return
	}
	if dryRun {
		logger.Info().Uint("id", att.ID).Interface("updates", updates).Msg("dry-run: would update")
		return
	}
	if err := db.Model(&models.Attachment{}).Where("id = ?", att.ID).Updates(updates).Error; err != nil {
		logger.Warn().Err(err).Uint("id", att.ID).Msg("attachment update failed")
	}
}

func markFailed(att *models.Attachment, reason string) {
	if dryRun {
		logger.Info().Uint("id", att.ID).Str("reason", reason).Msg("dry-run: would mark failed")
		return
	}
	db.Model(&models.Attachment{}).Where("id = ?", att.ID).
		Updates(map[string]interface{}{"failed": true, "failed_reason": reason})
}
