package httpapi

import (
	"bytes"
	"fmt"

	"vitalia/internal/models"
	"vitalia/internal/monitor"

	"github.com/xuri/excelize/v2"
)

// VitalsSheetName 导出工作表名称
const VitalsSheetName = "Vitals"

// VitalsExportHeader 导出表头
var VitalsExportHeader = []string{
	"Time",
	"Heart Rate (bpm)",
	"SpO2 (%)",
	"Systolic BP (mmHg)",
	"Diastolic BP (mmHg)",
	"Temperature (°C)",
	"Status",
}

var vitalsColumnWidths = []float64{12, 18, 10, 20, 20, 18, 12}

// GenerateVitalsExport 把历史窗口导出为 Excel 文件（每个样本一行，最旧在前）
func GenerateVitalsExport(samples []models.VitalsSample) ([]byte, error) {
	f := excelize.NewFile()

	index, err := f.NewSheet(VitalsSheetName)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create sheet: %w", err)
	}

	// 删除默认的 Sheet1
	f.DeleteSheet("Sheet1")
	f.SetActiveSheet(index)

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{
			Type:    "pattern",
			Color:   []string{"#E6F3FF"},
			Pattern: 1,
		},
		Alignment: &excelize.Alignment{
			Horizontal: "center",
			Vertical:   "center",
		},
	})
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}

	abnormalStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Color: "#C00000"},
	})
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create abnormal style: %w", err)
	}

	for col, header := range VitalsExportHeader {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to convert coordinates: %w", err)
		}
		if err := f.SetCellValue(VitalsSheetName, cell, header); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to set header cell %s: %w", cell, err)
		}
		if err := f.SetCellStyle(VitalsSheetName, cell, cell, headerStyle); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to set header style: %w", err)
		}

		name, err := excelize.ColumnNumberToName(col + 1)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to convert column number: %w", err)
		}
		if err := f.SetColWidth(VitalsSheetName, name, name, vitalsColumnWidths[col]); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to set column width: %w", err)
		}
	}

	for i, s := range samples {
		row := i + 2 // 第1行是表头
		result := monitor.Classify(s)
		values := []interface{}{
			s.Timestamp,
			s.HeartRate,
			s.SpO2,
			s.SysBP,
			s.DiaBP,
			s.Temperature,
			string(result.Status),
		}
		for col, value := range values {
			cell, err := excelize.CoordinatesToCellName(col+1, row)
			if err != nil {
				f.Close()
				return nil, fmt.Errorf("failed to convert coordinates: %w", err)
			}
			if err := f.SetCellValue(VitalsSheetName, cell, value); err != nil {
				f.Close()
				return nil, fmt.Errorf("failed to set cell value at row %d, col %d: %w", row, col+1, err)
			}
		}
		if result.IsAbnormal() {
			cell, _ := excelize.CoordinatesToCellName(len(values), row)
			if err := f.SetCellStyle(VitalsSheetName, cell, cell, abnormalStyle); err != nil {
				f.Close()
				return nil, fmt.Errorf("failed to set status style: %w", err)
			}
		}
	}

	// 冻结表头
	if err := f.SetPanes(VitalsSheetName, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to freeze panes: %w", err)
	}

	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to write to buffer: %w", err)
	}
	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("failed to close file: %w", err)
	}

	return buf.Bytes(), nil
}
