package dashboard

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"nursery-tracker/internal/domain"
)

type fakeStatsAPI struct {
	stats    domain.DashboardStats
	statsErr error
	export   domain.ExportFile
	exERR    error
}

func (f *fakeStatsAPI) DashboardStats(context.Context) (domain.DashboardStats, error) {
	return f.stats, f.statsErr
}

func (f *fakeStatsAPI) ExportCSV(context.Context) (domain.ExportFile, error) {
	return f.export, f.exERR
}

func TestStatsPassesThroughBackendNumbers(t *testing.T) {
	want := domain.DashboardStats{
		TotalReceived:  120,
		TotalProduced:  30,
		TotalDead:      10,
		TotalDiscarded: 5,
		SurvivalRate:   90.0,
		TotalInNursery: 135,
	}
	svc := NewService(&fakeStatsAPI{stats: want}, t.TempDir(), nil)

	got, err := svc.Stats(context.Background())
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if got != want {
		t.Errorf("stats = %+v, want %+v", got, want)
	}
}

func TestStatsErrorPropagates(t *testing.T) {
	svc := NewService(&fakeStatsAPI{statsErr: errors.New("backend down")}, t.TempDir(), nil)
	if _, err := svc.Stats(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}

func TestExportWritesServerNamedFile(t *testing.T) {
	dir := t.TempDir()
	svc := NewService(&fakeStatsAPI{
		export: domain.ExportFile{Filename: "nursery_data_20260826.csv", Data: []byte("a,b\n1,2\n")},
	}, dir, nil)

	path, err := svc.ExportCSV(context.Background())
	if err != nil {
		t.Fatalf("export: %v", err)
	}

	if filepath.Dir(path) != dir {
		t.Errorf("export landed in %q, want %q", filepath.Dir(path), dir)
	}
	if filepath.Base(path) != "nursery_data_20260826.csv" {
		t.Errorf("filename = %q", filepath.Base(path))
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if string(data) != "a,b\n1,2\n" {
		t.Errorf("content = %q", data)
	}
}

func TestExportSanitizesFilenameToBasename(t *testing.T) {
	dir := t.TempDir()
	svc := NewService(&fakeStatsAPI{
		export: domain.ExportFile{Filename: "../../escape.csv", Data: []byte("x")},
	}, dir, nil)

	path, err := svc.ExportCSV(context.Background())
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if filepath.Dir(path) != dir {
		t.Errorf("a hostile filename must not escape the export dir, got %q", path)
	}
	if filepath.Base(path) != "escape.csv" {
		t.Errorf("filename = %q, want escape.csv", filepath.Base(path))
	}
}

func TestExportCreatesExportDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "exports")
	svc := NewService(&fakeStatsAPI{
		export: domain.ExportFile{Filename: "out.csv", Data: []byte("x")},
	}, dir, nil)

	if _, err := svc.ExportCSV(context.Background()); err != nil {
		t.Fatalf("export: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "out.csv")); err != nil {
		t.Fatalf("expected file in created dir: %v", err)
	}
}

func TestExportBackendFailureWritesNothing(t *testing.T) {
	dir := t.TempDir()
	svc := NewService(&fakeStatsAPI{exERR: errors.New("boom")}, dir, nil)

	if _, err := svc.ExportCSV(context.Background()); err == nil {
		t.Fatal("expected error")
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("readdir: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("no file should be written on failure, found %d entries", len(entries))
	}
}
