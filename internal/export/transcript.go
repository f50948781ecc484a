package export

import (
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/SAP-F-2025/studyroom-service/internal/models"
)

const (
	transcriptSheet = "Transcript"
	timestampLayout = "2006-01-02 15:04:05"

	ContentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

var transcriptHeader = []interface{}{"Timestamp", "User", "Message"}

// TranscriptWriter renders a room's chat history as a spreadsheet
type TranscriptWriter struct {
	now func() time.Time
}

func NewTranscriptWriter() *TranscriptWriter {
	return &TranscriptWriter{now: time.Now}
}

// FileName returns the download name for a room transcript
func (w *TranscriptWriter) FileName(room models.RoomSummary) string {
	return fmt.Sprintf("room-%d-transcript-%s.xlsx", room.ID, w.now().UTC().Format("20060102"))
}

// Write returns the xlsx bytes. Lines are written in the order given.
func (w *TranscriptWriter) Write(room models.RoomSummary, lines []models.ChatLine) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), transcriptSheet); err != nil {
		return nil, fmt.Errorf("rename sheet: %w", err)
	}

	if err := f.SetDocProps(&excelize.DocProperties{
		Title:   room.Name,
		Subject: "Study room transcript",
		Creator: room.HostUsername,
		Created: w.now().UTC().Format(time.RFC3339),
	}); err != nil {
		return nil, fmt.Errorf("set document properties: %w", err)
	}

	if err := f.SetSheetRow(transcriptSheet, "A1", &transcriptHeader); err != nil {
		return nil, fmt.Errorf("write header: %w", err)
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, fmt.Errorf("create header style: %w", err)
	}
	if err := f.SetRowStyle(transcriptSheet, 1, 1, bold); err != nil {
		return nil, fmt.Errorf("style header: %w", err)
	}

	for i, line := range lines {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		row := []interface{}{line.Timestamp.UTC().Format(timestampLayout), line.Username, line.Content}
		if err := f.SetSheetRow(transcriptSheet, cell, &row); err != nil {
			return nil, fmt.Errorf("write row %d: %w", i+2, err)
		}
	}

	if err := f.SetColWidth(transcriptSheet, "A", "A", 20); err != nil {
		return nil, err
	}
	if err := f.SetColWidth(transcriptSheet, "C", "C", 80); err != nil {
		return nil, err
	}
	if err := f.SetPanes(transcriptSheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return nil, fmt.Errorf("freeze header: %w", err)
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("encode workbook: %w", err)
	}
	return buf.Bytes(), nil
}
