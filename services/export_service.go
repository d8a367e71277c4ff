package services

import (
	"fmt"

	"checkin-dashboard/models"

	"github.com/xuri/excelize/v2"
)

const checkInExportSheet = "Check-ins"

// CheckInExportHeader is the first row of the export workbook.
var CheckInExportHeader = []string{
	"ID",
	"Title",
	"Guest Name",
	"Booking ID",
	"Rooms",
	"Guests",
	"Booked Date",
	"Image URL",
	"Created At",
}

// GenerateCheckInExport renders the documents as an XLSX workbook, one row per
// check-in in the order given.
func GenerateCheckInExport(docs []models.CheckIn) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", checkInExportSheet); err != nil {
		return nil, fmt.Errorf("failed to name sheet: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{
			Type:    "pattern",
			Color:   []string{"#E6F3FF"},
			Pattern: 1,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}

	if err := f.SetSheetRow(checkInExportSheet, "A1", &CheckInExportHeader); err != nil {
		return nil, fmt.Errorf("failed to write header: %w", err)
	}
	lastCol, err := excelize.ColumnNumberToName(len(CheckInExportHeader))
	if err != nil {
		return nil, err
	}
	if err := f.SetCellStyle(checkInExportSheet, "A1", lastCol+"1", headerStyle); err != nil {
		return nil, fmt.Errorf("failed to style header: %w", err)
	}

	for i, d := range docs {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		created := ""
		if !d.CreatedAt.IsZero() {
			created = d.CreatedAt.Format("2006-01-02 15:04:05")
		}
		row := []interface{}{
			d.ID,
			d.Title,
			d.Name,
			d.BookingID,
			d.Rooms,
			d.Guests,
			d.BookedDateString(),
			d.UploadedFile,
			created,
		}
		if err := f.SetSheetRow(checkInExportSheet, cell, &row); err != nil {
			return nil, fmt.Errorf("failed to write row %d: %w", i+2, err)
		}
	}

	if err := f.SetColWidth(checkInExportSheet, "A", lastCol, 20); err != nil {
		return nil, err
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}
	return buf.Bytes(), nil
}
