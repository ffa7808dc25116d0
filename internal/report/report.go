// Package report renders the alert journal as an xlsx workbook.
package report

import (
	"fmt"
	"io"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/oshokin/safety-monitor/internal/domain/safety"
)

// SheetName is the worksheet holding the alerts.
const SheetName = "Alerts"

// Header is the first row of the sheet.
var Header = []string{
	"Time (UTC)",
	"Event ID",
	"Device",
	"User",
	"Event",
	"Severity",
	"Message",
	"Heart Rate",
	"Wearing",
	"Contact",
	"Latitude",
	"Longitude",
}

var columnWidths = []float64{20, 38, 16, 16, 20, 10, 32, 11, 10, 24, 12, 12}

// WriteAlerts writes alerts as a workbook to w.
func WriteAlerts(w io.Writer, alerts []*safety.Alert) error {
	f := excelize.NewFile()
	defer f.Close()

	if _, err := f.NewSheet(SheetName); err != nil {
		return fmt.Errorf("create sheet: %w", err)
	}

	if err := f.DeleteSheet("Sheet1"); err != nil {
		return fmt.Errorf("delete default sheet: %w", err)
	}

	index, err := f.GetSheetIndex(SheetName)
	if err != nil {
		return fmt.Errorf("find sheet: %w", err)
	}

	f.SetActiveSheet(index)

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{
			Type:    "pattern",
			Color:   []string{"#E6F3FF"},
			Pattern: 1,
		},
	})
	if err != nil {
		return fmt.Errorf("create header style: %w", err)
	}

	if err = setRow(f, 1, toCells(Header)); err != nil {
		return err
	}

	lastHeader, err := excelize.CoordinatesToCellName(len(Header), 1)
	if err != nil {
		return fmt.Errorf("convert coordinates: %w", err)
	}

	if err = f.SetCellStyle(SheetName, "A1", lastHeader, headerStyle); err != nil {
		return fmt.Errorf("set header style: %w", err)
	}

	for i, width := range columnWidths {
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return fmt.Errorf("convert column number: %w", err)
		}

		if err = f.SetColWidth(SheetName, col, col, width); err != nil {
			return fmt.Errorf("set column width: %w", err)
		}
	}

	for i, alert := range alerts {
		if err = setRow(f, i+2, alertRow(alert)); err != nil {
			return err
		}
	}

	if _, err = f.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}

	return nil
}

func setRow(f *excelize.File, row int, values []any) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return fmt.Errorf("convert coordinates: %w", err)
	}

	if err = f.SetSheetRow(SheetName, cell, &values); err != nil {
		return fmt.Errorf("write row %d: %w", row, err)
	}

	return nil
}

func toCells(values []string) []any {
	cells := make([]any, len(values))
	for i, v := range values {
		cells[i] = v
	}

	return cells
}

// alertRow flattens alert in Header order. Missing values are left empty.
func alertRow(alert *safety.Alert) []any {
	meta := alert.Metadata

	row := []any{
		time.UnixMilli(alert.TimestampMs).UTC().Format(time.DateTime),
		alert.EventID,
		alert.DeviceID,
		alert.UserID,
		string(alert.EventCode),
		string(alert.Severity),
		meta.Message,
		nil,
		nil,
		nil,
		nil,
		nil,
	}

	if meta.Vitals != nil {
		row[7] = meta.Vitals.HeartRateBPM
	}

	if meta.SensorState != nil {
		row[8] = meta.SensorState.WearingStatus
	}

	if meta.ContactName != "" || meta.ContactPhone != "" {
		row[9] = fmt.Sprintf("%s %s", meta.ContactName, meta.ContactPhone)
	}

	if meta.Location != nil {
		row[10] = meta.Location.Latitude
		row[11] = meta.Location.Longitude
	}

	return row
}
