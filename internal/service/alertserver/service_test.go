package alertserver

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/oshokin/safety-monitor/internal/config"
	"github.com/oshokin/safety-monitor/internal/domain/safety"
	"github.com/oshokin/safety-monitor/internal/report"
	"github.com/oshokin/safety-monitor/internal/repository/alerts"
)

var errTestAppend = errors.New("disk full")

// memoryRepository is a minimal in-memory Repository implementation for tests.
type memoryRepository struct {
	appended  []*safety.Alert
	appendErr error
}

func (m *memoryRepository) Append(_ context.Context, alert *safety.Alert) error {
	if m.appendErr != nil {
		return m.appendErr
	}

	m.appended = append(m.appended, alert)

	return nil
}

func (m *memoryRepository) Recent(_ context.Context, limit int) ([]*safety.Alert, error) {
	if limit > len(m.appended) {
		limit = len(m.appended)
	}

	return m.appended[:limit], nil
}

func (m *memoryRepository) All(context.Context) ([]*safety.Alert, error) {
	return m.appended, nil
}

func (m *memoryRepository) Close() error {
	return nil
}

func testAlert(id string) *safety.Alert {
	return &safety.Alert{
		EventID:     id,
		DeviceID:    "watch-1",
		EventCode:   safety.EventWatchRemoved,
		Severity:    safety.SeverityLow,
		TimestampMs: 1_700_000_000_000,
	}
}

// TestService_Accept covers success, duplicate and failure paths.
func TestService_Accept(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	repo := new(memoryRepository)
	require.NoError(t, newService(repo).Accept(ctx, testAlert("evt-1")))
	require.Len(t, repo.appended, 1)

	duplicate := &memoryRepository{appendErr: alerts.ErrDuplicate}
	require.NoError(t, newService(duplicate).Accept(ctx, testAlert("evt-1")))

	failing := &memoryRepository{appendErr: errTestAppend}
	require.ErrorIs(t, newService(failing).Accept(ctx, testAlert("evt-1")), errTestAppend)
}

// TestService_Recent passes the limit through.
func TestService_Recent(t *testing.T) {
	t.Parallel()

	repo := &memoryRepository{appended: []*safety.Alert{testAlert("a"), testAlert("b")}}

	result, err := newService(repo).Recent(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, result, 1)
}

// TestExport writes the file journal into a workbook.
func TestExport(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	dir := t.TempDir()
	journal := filepath.Join(dir, "journal.jsonl")
	settingsPath := filepath.Join(dir, "settings.yaml")
	output := filepath.Join(dir, "alerts.xlsx")

	settings := config.Default()
	settings.DeviceID = "watch-1"
	require.NoError(t, config.Save(settingsPath, settings))

	repo := alerts.NewFileRepository(journal)
	require.NoError(t, repo.Append(ctx, testAlert("evt-1")))
	require.NoError(t, repo.Append(ctx, testAlert("evt-2")))

	require.NoError(t, Export(ctx, &ExportOptions{
		ConfigPath:  settingsPath,
		JournalFile: journal,
		Output:      output,
	}))

	f, err := excelize.OpenFile(output)
	require.NoError(t, err)

	defer f.Close()

	rows, err := f.GetRows(report.SheetName)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	require.Equal(t, "evt-2", rows[2][1])

	require.ErrorIs(t, Export(ctx, &ExportOptions{ConfigPath: settingsPath}), errOutputRequired)

	_, err = os.Stat(output)
	require.NoError(t, err)
}
