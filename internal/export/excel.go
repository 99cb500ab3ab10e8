package export

import (
	"fmt"
	"io"

	"github.com/mhartmann/telestats/internal/types"
	"github.com/rs/zerolog"
	"github.com/xuri/excelize/v2"
)

const statsSheet = "Agent Stats"

var statsHeader = []string{
	"Agent", "Campaign", "Date",
	"Total Calls", "Completed", "Successful",
	"Wait (h)", "Talk (h)", "Wrap-up (h)", "Prep (h)", "Work (h)",
	"Success / h",
}

// Writer renders productivity reports as xlsx workbooks
type Writer struct {
	logger zerolog.Logger
}

// NewWriter creates an export Writer
func NewWriter(logger zerolog.Logger) *Writer {
	return &Writer{
		logger: logger.With().Str("component", "export").Logger(),
	}
}

// WriteStatsWorkbook writes one row per stat bucket, in the order the
// aggregator produced them, to w as an xlsx workbook.
func (e *Writer) WriteStatsWorkbook(w io.Writer, buckets []types.StatBucket) error {
	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(statsSheet)
	if err != nil {
		return fmt.Errorf("failed to create stats sheet: %w", err)
	}
	f.SetActiveSheet(index)
	f.DeleteSheet("Sheet1")

	for col, title := range statsHeader {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return fmt.Errorf("failed to address header cell: %w", err)
		}
		if err := f.SetCellValue(statsSheet, cell, title); err != nil {
			return fmt.Errorf("failed to write header: %w", err)
		}
	}

	headerStyle, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err == nil {
		endCell, _ := excelize.CoordinatesToCellName(len(statsHeader), 1)
		f.SetCellStyle(statsSheet, "A1", endCell, headerStyle)
	}

	for i, b := range buckets {
		row := []interface{}{
			b.AgentID, b.CampaignID, b.Date,
			b.TotalCalls, b.CompletedCalls, b.SuccessfulCalls,
			round2(b.WaitHours), round2(b.TalkHours), round2(b.WrapupHours),
			round2(b.PrepHours), round2(b.WorkHours),
			round2(b.SuccessPerHour),
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return fmt.Errorf("failed to address row %d: %w", i+2, err)
		}
		if err := f.SetSheetRow(statsSheet, cell, &row); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i+2, err)
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}

	e.logger.Debug().Int("rows", len(buckets)).Msg("stats workbook written")
	return nil
}

// round2 trims float noise so exported hours read as entered values
func round2(v float64) float64 {
	return float64(int(v*100+0.5)) / 100
}
