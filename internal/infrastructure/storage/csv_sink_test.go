package storage

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"DirectoryHarvester/internal/domain"
)

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	return rows
}

func TestCSVSinkPersistOverwritesRunFile(t *testing.T) {
	t.Parallel()

	dir := filepath.Join(t.TempDir(), "output")
	capturedAt := time.Date(2025, time.March, 4, 9, 8, 7, 0, time.UTC)
	sink := NewCSVSink(dir, capturedAt, nil)

	records := []domain.Record{
		{MemberName: "Jane Doe", Designations: "CPA, CA", Employer: "Acme, Inc.", EmployerCity: "Toronto"},
	}

	path, err := sink.Persist(records)
	require.NoError(t, err)
	require.Equal(t, filepath.Join(dir, "cpa_members_20250304_090807.csv"), path)

	records = append(records, domain.Record{MemberName: "Émile Roy", EmployerCity: "Montréal"})
	again, err := sink.Persist(records)
	require.NoError(t, err)
	require.Equal(t, path, again)

	rows := readCSV(t, path)
	require.Equal(t, [][]string{
		{"Member Name", "Designations", "Employer", "Employer City"},
		{"Jane Doe", "CPA, CA", "Acme, Inc.", "Toronto"},
		{"Émile Roy", "", "", "Montréal"},
	}, rows)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1, "temp files must not be left behind")
}

func TestCSVSinkBackup(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	sink := NewCSVSink(dir, time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC), nil)

	path, err := sink.Backup([]domain.Record{{MemberName: "A"}})
	require.NoError(t, err)
	require.Equal(t, filepath.Join(dir, "backup_cpa_members_20250101_000000.csv"), path)
	require.Len(t, readCSV(t, path), 2)
}

func TestCSVSinkEmptyRecords(t *testing.T) {
	t.Parallel()

	sink := NewCSVSink(t.TempDir(), time.Now(), nil)
	path, err := sink.Persist(nil)
	require.NoError(t, err)
	require.Equal(t, [][]string{Header}, readCSV(t, path))
}

func TestCSVSinkFilesAreWorldReadable(t *testing.T) {
	t.Parallel()
	if runtime.GOOS == "windows" {
		t.Skip("unix permissions")
	}

	sink := NewCSVSink(t.TempDir(), time.Now(), nil)
	main, err := sink.Persist([]domain.Record{{MemberName: "A"}})
	require.NoError(t, err)
	backup, err := sink.Backup([]domain.Record{{MemberName: "A"}})
	require.NoError(t, err)

	for _, path := range []string{main, backup} {
		info, err := os.Stat(path)
		require.NoError(t, err)
		require.Equal(t, os.FileMode(0o644), info.Mode().Perm(), path)
	}
}
