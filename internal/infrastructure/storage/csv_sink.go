package storage

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"DirectoryHarvester/internal/domain"
	"DirectoryHarvester/internal/ports"
)

const (
	filePrefix   = "cpa_members_"
	backupPrefix = "backup_"
	stampLayout  = "20060102_150405"
	fileMode     = 0o644
)

// Header is the fixed column header of every output file.
var Header = []string{"Member Name", "Designations", "Employer", "Employer City"}

// CSVSink writes the accumulated records of one run to a timestamped file.
// Every write replaces the whole file, so the file always mirrors the slice it was given.
type CSVSink struct {
	dir      string
	filename string
	logger   *slog.Logger
}

var _ ports.RecordSink = (*CSVSink)(nil)

// NewCSVSink fixes the output filename from capturedAt so repeated writes of
// the same run land in the same file.
func NewCSVSink(dir string, capturedAt time.Time, log *slog.Logger) *CSVSink {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &CSVSink{
		dir:      dir,
		filename: filePrefix + capturedAt.Format(stampLayout) + ".csv",
		logger:   log,
	}
}

// Path is the main output file of the run.
func (s *CSVSink) Path() string {
	return filepath.Join(s.dir, s.filename)
}

// BackupPath is the checkpoint copy of the main output file.
func (s *CSVSink) BackupPath() string {
	return filepath.Join(s.dir, backupPrefix+s.filename)
}

// Persist rewrites the main output file with records.
func (s *CSVSink) Persist(records []domain.Record) (string, error) {
	path := s.Path()
	if err := s.write(path, records); err != nil {
		return "", err
	}
	s.logger.Info("data saved", "path", path, "records", len(records))
	return path, nil
}

// Backup rewrites the backup copy with records.
func (s *CSVSink) Backup(records []domain.Record) (string, error) {
	path := s.BackupPath()
	if err := s.write(path, records); err != nil {
		return "", err
	}
	s.logger.Info("backup saved", "path", path, "records", len(records))
	return path, nil
}

func (s *CSVSink) write(dest string, records []domain.Record) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	tmp, err := os.CreateTemp(s.dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()

	bw := bufio.NewWriter(tmp)
	if err := encodeRecords(bw, records); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("encode records: %w", err)
	}
	if err := bw.Flush(); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("flush %s: %w", tmpPath, err)
	}
	if err := tmp.Chmod(fileMode); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("chmod %s: %w", tmpPath, err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("sync %s: %w", tmpPath, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("close %s: %w", tmpPath, err)
	}
	if err := os.Rename(tmpPath, dest); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("replace %s: %w", dest, err)
	}
	return nil
}

func encodeRecords(w *bufio.Writer, records []domain.Record) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return err
	}
	for _, r := range records {
		if err := cw.Write([]string{r.MemberName, r.Designations, r.Employer, r.EmployerCity}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
