package export

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"go-caseflow/internal/features/casefile"
	"go-caseflow/internal/features/form"

	"github.com/xuri/excelize/v2"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// CaseLister is the slice of the case service the export needs.
type CaseLister interface {
	ListCases(ctx context.Context, filter casefile.ListFilter, limit, offset int64) ([]casefile.Case, error)
}

// DataReader loads the section payloads so field values become columns.
type DataReader interface {
	FindCaseData(ctx context.Context, caseID primitive.ObjectID) ([]casefile.CaseData, error)
}

type ExportService interface {
	ExportCases(ctx context.Context, filter casefile.ListFilter) ([]byte, string, error)
}

type ExportServiceImpl struct {
	Cases  CaseLister
	Data   DataReader
	Logger *zap.Logger
}

func NewExportService(cases CaseLister, data DataReader, logger *zap.Logger) ExportService {
	return &ExportServiceImpl{Cases: cases, Data: data, Logger: logger}
}

// baseColumns lead every sheet; snapshot field columns follow alphabetically.
var baseColumns = []string{"case_id", "status", "submitted", "created_by", "created_at", "updated_at"}

func (s *ExportServiceImpl) ExportCases(ctx context.Context, filter casefile.ListFilter) ([]byte, string, error) {
	cases, err := s.Cases.ListCases(ctx, filter, 200, 0)
	if err != nil {
		return nil, "", err
	}

	rows := make([]map[string]interface{}, 0, len(cases))
	for i := range cases {
		c := &cases[i]
		row := map[string]interface{}{
			"case_id":    c.ID,
			"status":     c.Status,
			"submitted":  c.Submitted,
			"created_by": c.CreatedBy,
			"created_at": c.CreatedAt,
			"updated_at": c.UpdatedAt,
		}
		data, err := s.Data.FindCaseData(ctx, c.ID)
		if err != nil {
			s.Logger.Warn("failed to load case data for export",
				zap.String("case_id", c.ID.Hex()),
				zap.Error(err))
		}
		payloads := make([]map[string]interface{}, 0, len(data))
		for _, d := range data {
			payloads = append(payloads, d.Data)
		}
		for field, value := range form.Flatten(payloads) {
			row[field] = value
		}
		rows = append(rows, row)
	}

	filename := fmt.Sprintf("cases_%s", time.Now().Format("2006-01-02"))
	return buildWorkbook(rows, collectColumns(rows), filename)
}

// collectColumns returns the base columns followed by every snapshot field
// seen in any row, alphabetically.
func collectColumns(rows []map[string]interface{}) []string {
	base := map[string]bool{}
	for _, col := range baseColumns {
		base[col] = true
	}

	extraSet := map[string]bool{}
	for _, row := range rows {
		for key := range row {
			if !base[key] {
				extraSet[key] = true
			}
		}
	}
	extra := make([]string, 0, len(extraSet))
	for key := range extraSet {
		extra = append(extra, key)
	}
	sort.Strings(extra)

	return append(append([]string{}, baseColumns...), extra...)
}

func buildWorkbook(rows []map[string]interface{}, columns []string, filename string) ([]byte, string, error) {
	f := excelize.NewFile()
	defer f.Close()

	sheetName := "Cases"
	index, err := f.NewSheet(sheetName)
	if err != nil {
		return nil, "", err
	}
	f.SetActiveSheet(index)
	f.DeleteSheet("Sheet1")

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E0E0E0"}, Pattern: 1},
	})
	for i, col := range columns {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(sheetName, cell, col)
		f.SetCellStyle(sheetName, cell, cell, headerStyle)
	}

	for rowIdx, row := range rows {
		for colIdx, col := range columns {
			cell, _ := excelize.CoordinatesToCellName(colIdx+1, rowIdx+2)
			f.SetCellValue(sheetName, cell, cellValue(row[col]))
		}
	}

	for i := range columns {
		col, _ := excelize.ColumnNumberToName(i + 1)
		f.SetColWidth(sheetName, col, col, 15)
	}

	buffer, err := f.WriteToBuffer()
	if err != nil {
		return nil, "", err
	}

	if !strings.HasSuffix(filename, ".xlsx") {
		filename += ".xlsx"
	}
	return buffer.Bytes(), filename, nil
}

func cellValue(v interface{}) interface{} {
	switch val := v.(type) {
	case time.Time:
		return val.Format("2006-01-02 15:04:05")
	case primitive.ObjectID:
		return val.Hex()
	case map[string]interface{}:
		return fmt.Sprintf("%v", val)
	case []interface{}:
		parts := make([]string, 0, len(val))
		for _, item := range val {
			parts = append(parts, fmt.Sprintf("%v", item))
		}
		return strings.Join(parts, ", ")
	case nil:
		return ""
	default:
		return val
	}
}
