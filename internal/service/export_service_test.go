package service

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/facility-admin-api/internal/models"
	"github.com/noah-isme/facility-admin-api/pkg/storage"
)

type completionStub struct {
	rows   []models.CompletionReportRow
	filter models.CompletionReportFilter
	err    error
}

func (c *completionStub) ListCompleted(ctx context.Context, filter models.CompletionReportFilter) ([]models.CompletionReportRow, error) {
	c.filter = filter
	if c.err != nil {
		return nil, c.err
	}
	out := make([]models.CompletionReportRow, len(c.rows))
	copy(out, c.rows)
	return out, nil
}

func ptrTime(t time.Time) *time.Time {
	return &t
}

func ptrString(s string) *string {
	return &s
}

func completedRows() []models.CompletionReportRow {
	start := time.Date(2024, 5, 1, 1, 0, 0, 0, time.UTC)
	return []models.CompletionReportRow{
		{
			ID:             "wo-1",
			Title:          "Fix AC, lobby",
			TechnicianName: ptrString("Budi"),
			CreatedAt:      start.Add(-time.Hour),
			StartTime:      ptrTime(start),
			EndTime:        ptrTime(start.Add(26*time.Hour + 5*time.Minute)),
			BeforeURL:      ptrString("https://cdn.example/before.jpg"),
		},
		{
			ID:        "wo-2",
			Title:     "Replace lamp",
			CreatedAt: start,
		},
	}
}

func newExportServiceForTest(t *testing.T, source completionSource) (*ExportService, *storage.LocalStorage) {
	t.Helper()
	store, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	signer := storage.NewSignedURLSigner("secret", time.Hour)
	jakarta := time.FixedZone("WIB", 7*3600)
	svc := NewExportService(source, store, signer, ExportConfig{APIPrefix: "/api/", ResultTTL: time.Hour, Location: jakarta}, zap.NewNop())
	return svc, store
}

func TestFormatWorkDuration(t *testing.T) {
	base := time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)
	cases := []struct {
		name  string
		start *time.Time
		end   *time.Time
		want  string
	}{
		{"missing start", nil, ptrTime(base), "-"},
		{"missing end", ptrTime(base), nil, "-"},
		{"equal", ptrTime(base), ptrTime(base), "0 menit"},
		{"minutes only", ptrTime(base), ptrTime(base.Add(45 * time.Minute)), "45 menit"},
		{"hours only", ptrTime(base), ptrTime(base.Add(3 * time.Hour)), "3 jam"},
		{"days and minutes", ptrTime(base), ptrTime(base.Add(48*time.Hour + 7*time.Minute)), "2 hari 7 menit"},
		{"all parts", ptrTime(base), ptrTime(base.Add(25*time.Hour + 30*time.Minute)), "1 hari 1 jam 30 menit"},
		{"seconds truncated", ptrTime(base), ptrTime(base.Add(59 * time.Second)), "0 menit"},
		{"end before start", ptrTime(base), ptrTime(base.Add(-time.Hour)), "-"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, FormatWorkDuration(tc.start, tc.end))
		})
	}
}

func TestExportServiceCompletionReportFillsDuration(t *testing.T) {
	source := &completionStub{rows: completedRows()}
	svc, _ := newExportServiceForTest(t, source)

	rows, err := svc.CompletionReport(context.Background(), models.CompletionReportFilter{TechnicianID: "tech-1"})
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "1 hari 2 jam 5 menit", rows[0].Duration)
	assert.Equal(t, "-", rows[1].Duration)
	assert.Equal(t, "tech-1", source.filter.TechnicianID)
}

func TestExportServiceCompletionReportEmpty(t *testing.T) {
	svc, _ := newExportServiceForTest(t, &completionStub{})

	rows, err := svc.CompletionReport(context.Background(), models.CompletionReportFilter{})
	require.NoError(t, err)
	assert.NotNil(t, rows)
	assert.Empty(t, rows)
}

func TestExportServiceRenderCSV(t *testing.T) {
	svc, _ := newExportServiceForTest(t, &completionStub{rows: completedRows()})

	file, err := svc.Render(context.Background(), models.ReportFormatCSV, models.CompletionReportFilter{})
	require.NoError(t, err)
	assert.Equal(t, "work_order_report.csv", file.Filename)
	assert.Contains(t, file.ContentType, "text/csv")

	lines := strings.Split(strings.TrimSpace(string(file.Data)), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "WO Title,Technician,Created At,Start,End,Duration,Before Photo,After Photo", strings.TrimSpace(lines[0]))
	assert.Contains(t, lines[1], `"Fix AC, lobby"`)
	assert.Contains(t, lines[1], "2024-05-01 08:00")
	assert.Contains(t, lines[2], "Replace lamp,-")
}

func TestExportServiceRenderPDF(t *testing.T) {
	svc, _ := newExportServiceForTest(t, &completionStub{rows: completedRows()})

	file, err := svc.Render(context.Background(), models.ReportFormatPDF, models.CompletionReportFilter{})
	require.NoError(t, err)
	assert.Equal(t, "work_order_report.pdf", file.Filename)
	assert.Equal(t, "application/pdf", file.ContentType)
	assert.True(t, strings.HasPrefix(string(file.Data), "%PDF"))
}

func TestExportServiceRenderRejectsFormat(t *testing.T) {
	svc, _ := newExportServiceForTest(t, &completionStub{})

	_, err := svc.Render(context.Background(), models.ReportFormat("xlsx"), models.CompletionReportFilter{})
	requireAppCode(t, err, "VALIDATION_ERROR")
}

func TestExportServiceGenerateStoresSignedFile(t *testing.T) {
	from := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	source := &completionStub{rows: completedRows()}
	svc, store := newExportServiceForTest(t, source)
	job := &models.ReportJob{
		ID:        "job-1",
		Type:      models.ReportTypeWorkOrderCompletion,
		Params:    models.ReportJobParams{Format: models.ReportFormatCSV, From: &from},
		CreatedBy: "admin-1",
	}

	result, err := svc.Generate(context.Background(), job)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(result.URL, "/api/export/"))
	assert.True(t, strings.HasSuffix(result.RelativePath, ".csv"))
	assert.Equal(t, &from, source.filter.From)

	ref, err := svc.ParseToken(result.Token, false)
	require.NoError(t, err)
	assert.Equal(t, "job-1", ref.JobID)

	f, err := store.Open(ref.Path)
	require.NoError(t, err)
	defer f.Close()
	info, err := f.Stat()
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(0))
}

func TestExportServiceGenerateRejectsUnknownType(t *testing.T) {
	svc, _ := newExportServiceForTest(t, &completionStub{})

	_, err := svc.Generate(context.Background(), &models.ReportJob{ID: "job-1", Type: "attendance"})
	require.Error(t, err)
}

func TestExportServiceDeleteAndCleanup(t *testing.T) {
	svc, store := newExportServiceForTest(t, &completionStub{rows: completedRows()})
	result, err := svc.Generate(context.Background(), &models.ReportJob{
		ID:     "job-2",
		Type:   models.ReportTypeWorkOrderCompletion,
		Params: models.ReportJobParams{Format: models.ReportFormatPDF},
	})
	require.NoError(t, err)

	removed, err := svc.Cleanup(time.Hour)
	require.NoError(t, err)
	assert.Empty(t, removed)

	require.NoError(t, svc.Delete(result.RelativePath))
	_, err = store.Open(result.RelativePath)
	assert.ErrorIs(t, err, os.ErrNotExist)
}
