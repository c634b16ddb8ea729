package report

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"vizit/internal/model"
)

func TestWriteDayGrid(t *testing.T) {
	date := time.Date(2026, 9, 10, 0, 0, 0, 0, time.UTC)
	start := time.Date(2026, 9, 10, 9, 0, 0, 0, time.UTC)

	grid := []model.CandidateSlot{
		{Start: start, End: start.Add(30 * time.Minute), DurationMinutes: 30, Status: model.StatusAvailable},
		{Start: start.Add(30 * time.Minute), End: start.Add(time.Hour), DurationMinutes: 30, Status: model.StatusBooked},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteDayGrid(&buf, "prov-1", date, grid))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	sheet := "2026-09-10"
	val, err := f.GetCellValue(sheet, "A2")
	require.NoError(t, err)
	assert.Equal(t, "09:00", val)

	val, err = f.GetCellValue(sheet, "D3")
	require.NoError(t, err)
	assert.Equal(t, "booked", val)

	val, err = f.GetCellValue(sheet, "A1")
	require.NoError(t, err)
	assert.Equal(t, "Start", val)
}

func TestWriteDayGridEmpty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteDayGrid(&buf, "prov-1", time.Now(), nil))
	assert.NotZero(t, buf.Len())
}
