package backup

import (
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path"
	"time"

	"cloud.google.com/go/storage"
	"github.com/sirupsen/logrus"

	"github.com/launchbase/launchbase/config"
	"github.com/launchbase/launchbase/pkg/helpers"
)

// Service dumps the Postgres database with pg_dump, gzips it and uploads
// the archive to a GCS bucket. It also prunes archives past the retention
// window. Both entry points are driven by the scheduler process.
type Service struct {
	GCS *storage.Client
	Cfg *config.Config
	Log *logrus.Logger
}

func NewService(gcs *storage.Client, cfg *config.Config, log *logrus.Logger) *Service {
	return &Service{GCS: gcs, Cfg: cfg, Log: log}
}

// objectName builds the archive path, e.g.
// backups/2026-08-29_031500_launchbase.sql.gz
func (s *Service) objectName(now time.Time) string {
	name := fmt.Sprintf("%s_%s.sql.gz", now.UTC().Format("2006-01-02_150405"), s.Cfg.DBName)
	return path.Join(s.Cfg.BackupPrefix, name)
}

// Run performs one dump-and-upload cycle. The dump is spooled through a gzip
// writer into a temp file first so a failed pg_dump never produces a partial
// object in the bucket.
func (s *Service) Run(ctx context.Context) error {
	started := time.Now()
	object := s.objectName(started)

	tmp, err := os.CreateTemp("", "dbdump-*.sql.gz")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer func() {
		tmp.Close()
		os.Remove(tmp.Name())
	}()

	if err := s.dumpTo(ctx, tmp); err != nil {
		return err
	}
	if _, err := tmp.Seek(0, 0); err != nil {
		return fmt.Errorf("rewind dump: %w", err)
	}
	if err := helpers.UploadObject(ctx, s.GCS, s.Cfg.GCSBucket, object, "application/gzip", tmp); err != nil {
		return fmt.Errorf("upload %s: %w", object, err)
	}

	info, _ := os.Stat(tmp.Name())
	fields := logrus.Fields{
		"object":   object,
		"duration": time.Since(started).Round(time.Millisecond).String(),
	}
	if info != nil {
		fields["bytes"] = info.Size()
	}
	s.Log.WithFields(fields).Info("database backup uploaded")
	return nil
}

// dumpTo runs pg_dump and gzips its stdout into w.
func (s *Service) dumpTo(ctx context.Context, w *os.File) error {
	cmd := exec.CommandContext(ctx, "pg_dump",
		"--host", s.Cfg.DBHost,
		"--port", s.Cfg.DBPort,
		"--username", s.Cfg.DBUser,
		"--no-password",
		"--format", "plain",
		s.Cfg.DBName,
	)
	cmd.Env = append(os.Environ(), "PGPASSWORD="+s.Cfg.DBPassword)
	cmd.Stderr = os.Stderr

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return err
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start pg_dump: %w", err)
	}

	gz := gzip.NewWriter(w)
	if _, err := io.Copy(gz, stdout); err != nil {
		_ = cmd.Wait()
		return fmt.Errorf("compress dump: %w", err)
	}
	if err := gz.Close(); err != nil {
		_ = cmd.Wait()
		return fmt.Errorf("flush gzip: %w", err)
	}
	if err := cmd.Wait(); err != nil {
		return fmt.Errorf("pg_dump: %w", err)
	}
	return nil
}

// Cleanup deletes backup objects older than the retention window. Individual
// delete failures are logged and skipped so one bad object does not stall
// the rest.
func (s *Service) Cleanup(ctx context.Context) (int, error) {
	cutoff := time.Now().UTC().AddDate(0, 0, -s.Cfg.BackupRetentionDays)
	names, err := helpers.ListObjectsOlderThan(ctx, s.GCS, s.Cfg.GCSBucket, s.Cfg.BackupPrefix, cutoff)
	if err != nil {
		return 0, fmt.Errorf("list stale backups: %w", err)
	}
	deleted := 0
	for _, name := range names {
		if err := helpers.DeleteObject(ctx, s.GCS, s.Cfg.GCSBucket, name); err != nil {
			s.Log.WithError(err).WithField("object", name).Warn("failed to delete stale backup")
			continue
		}
		deleted++
	}
	s.Log.WithFields(logrus.Fields{
		"deleted": deleted,
		"cutoff":  cutoff.Format(time.RFC3339),
	}).Info("backup retention cleanup complete")
	return deleted, nil
}
