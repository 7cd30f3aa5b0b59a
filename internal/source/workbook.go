package source

import (
	"bytes"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/stwalsh4118/dmrb/internal/models"
	"github.com/stwalsh4118/dmrb/internal/tasks"
	"github.com/xuri/excelize/v2"
)

// WorkbookOptions names the sheets to read.
type WorkbookOptions struct {
	UnitSheet string
	TaskSheet string
}

// DefaultWorkbookOptions reads the "Unit" and "Task" sheets.
func DefaultWorkbookOptions() WorkbookOptions {
	return WorkbookOptions{UnitSheet: "Unit", TaskSheet: "Task"}
}

// Workbook is the parsed content of one workbook payload.
type Workbook struct {
	Units    models.UnitTable
	Tasks    []models.TaskRecord
	Warnings []string
}

// unitHeaderAliases maps normalized header text to canonical unit columns.
var unitHeaderAliases = map[string]string{
	"unit":             models.ColumnUnit,
	"unit #":           models.ColumnUnit,
	"unit id":          models.ColumnUnitPath,
	"phases":           models.ColumnPhase,
	"phase":            models.ColumnPhase,
	"building":         models.ColumnBuilding,
	"bldg":             models.ColumnBuilding,
	"move-out":         models.ColumnMoveOut,
	"move out":         models.ColumnMoveOut,
	"moveout":          models.ColumnMoveOut,
	"move-in":          models.ColumnMoveIn,
	"move in":          models.ColumnMoveIn,
	"movein":           models.ColumnMoveIn,
	"status":           models.ColumnStatus,
	"comments":         models.ColumnComments,
	"comment":          models.ColumnComments,
	"dv":               models.ColumnDaysVacant,
	"days vacant":      models.ColumnDaysVacant,
	"dtbr":             models.ColumnDaysToBeReady,
	"days to be ready": models.ColumnDaysToBeReady,
}

// taskHeaderAliases is built from the task column names.
var taskHeaderAliases = func() map[string]string {
	m := map[string]string{
		normalizeHeader(models.ColumnTaskUnitPath): models.ColumnTaskUnitPath,
		normalizeHeader(models.ColumnTaskVendor):   models.ColumnTaskVendor,
		"vendor":                                   models.ColumnTaskVendor,
		normalizeHeader(models.ColumnTaskStatus):   models.ColumnTaskStatus,
	}
	for _, col := range models.TaskDateColumns {
		m[normalizeHeader(col.Column)] = col.Column
	}
	return m
}()

// normalizeHeader trims, lower-cases and collapses inner whitespace.
func normalizeHeader(h string) string {
	return strings.Join(strings.Fields(strings.ToLower(h)), " ")
}

// ParseWorkbook reads the unit and task sheets from xlsx bytes. A missing unit
// sheet is a schema failure; a missing task sheet only adds a warning.
func ParseWorkbook(data []byte, opts WorkbookOptions) (*Workbook, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	wb := &Workbook{}

	unitSheet, ok := findSheet(f, opts.UnitSheet)
	if !ok {
		return nil, &models.SchemaError{Sheet: opts.UnitSheet, Missing: models.RequiredUnitColumns}
	}
	unitRows, err := f.GetRows(unitSheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("failed to read %s sheet: %w", unitSheet, err)
	}
	wb.Units = parseUnitRows(unitRows)

	taskSheet, ok := findSheet(f, opts.TaskSheet)
	if !ok {
		wb.Warnings = append(wb.Warnings, fmt.Sprintf("%s sheet not found; no tasks loaded", opts.TaskSheet))
		return wb, nil
	}
	taskRows, err := f.GetRows(taskSheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("failed to read %s sheet: %w", taskSheet, err)
	}
	records, missing := parseTaskRows(taskRows)
	if missing != "" {
		wb.Warnings = append(wb.Warnings, fmt.Sprintf("%s sheet has no %q column; no tasks loaded", opts.TaskSheet, missing))
	}
	wb.Tasks = records

	return wb, nil
}

func findSheet(f *excelize.File, name string) (string, bool) {
	want := normalizeHeader(name)
	for _, s := range f.GetSheetList() {
		if normalizeHeader(s) == want {
			return s, true
		}
	}
	return "", false
}

// headerIndex maps canonical column names to cell positions. Unknown headers
// keep their trimmed text.
type headerIndex struct {
	columns []string
	pos     map[string]int
}

func newHeaderIndex(header []string, aliases map[string]string) headerIndex {
	h := headerIndex{pos: make(map[string]int, len(header))}
	for i, raw := range header {
		name := strings.TrimSpace(raw)
		if name == "" {
			continue
		}
		if canonical, ok := aliases[normalizeHeader(name)]; ok {
			name = canonical
		}
		if _, dup := h.pos[name]; dup {
			continue
		}
		h.pos[name] = i
		h.columns = append(h.columns, name)
	}
	return h
}

func (h headerIndex) cell(row []string, column string) string {
	i, ok := h.pos[column]
	if !ok || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

func blankRow(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

func parseUnitRows(rows [][]string) models.UnitTable {
	if len(rows) == 0 {
		return models.UnitTable{Columns: []string{}, Rows: []models.UnitRecord{}}
	}

	h := newHeaderIndex(rows[0], unitHeaderAliases)
	table := models.UnitTable{Columns: h.columns, Rows: make([]models.UnitRecord, 0, len(rows)-1)}

	for _, row := range rows[1:] {
		if blankRow(row) {
			continue
		}
		table.Rows = append(table.Rows, models.UnitRecord{
			UnitID:                displayCell(h.cell(row, models.ColumnUnit)),
			UnitPath:              h.cell(row, models.ColumnUnitPath),
			Phase:                 displayCell(h.cell(row, models.ColumnPhase)),
			Building:              displayCell(h.cell(row, models.ColumnBuilding)),
			MoveOut:               ParseDate(h.cell(row, models.ColumnMoveOut)),
			MoveIn:                ParseDate(h.cell(row, models.ColumnMoveIn)),
			Status:                h.cell(row, models.ColumnStatus),
			Comments:              h.cell(row, models.ColumnComments),
			SuppliedDaysVacant:    parseInt(h.cell(row, models.ColumnDaysVacant)),
			SuppliedDaysToBeReady: parseInt(h.cell(row, models.ColumnDaysToBeReady)),
		})
	}
	return table
}

// parseTaskRows returns the parsed tasks, or the name of the missing unit
// path column when the sheet cannot be used.
func parseTaskRows(rows [][]string) ([]models.TaskRecord, string) {
	if len(rows) == 0 {
		return []models.TaskRecord{}, ""
	}

	h := newHeaderIndex(rows[0], taskHeaderAliases)
	if _, ok := h.pos[models.ColumnTaskUnitPath]; !ok {
		return []models.TaskRecord{}, models.ColumnTaskUnitPath
	}

	records := make([]models.TaskRecord, 0, len(rows)-1)
	for _, row := range rows[1:] {
		if blankRow(row) {
			continue
		}
		path := h.cell(row, models.ColumnTaskUnitPath)
		phase, building, unit := tasks.ParseUnitPath(path)
		rec := models.TaskRecord{
			UnitPath: path,
			Phase:    phase,
			Building: building,
			Unit:     unit,
			Vendor:   h.cell(row, models.ColumnTaskVendor),
			Status:   h.cell(row, models.ColumnTaskStatus),
			Due:      make(map[models.TaskType]time.Time),
		}
		for _, col := range models.TaskDateColumns {
			if d := ParseDate(h.cell(row, col.Column)); d != nil {
				rec.Due[col.Type] = *d
			}
		}
		records = append(records, rec)
	}
	return records, ""
}

// textDateLayouts are tried in order for non-numeric date cells.
var textDateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	time.RFC3339,
	"01/02/2006",
	"1/2/2006",
	"01/02/06",
	"1/2/06",
	"01-02-2006",
	"Jan 2, 2006",
	"January 2, 2006",
	"2 Jan 2006",
}

// ParseDate converts a cell to a date. Numeric cells are Excel serial dates;
// text is matched against common layouts. Unparseable input yields nil.
func ParseDate(cell string) *time.Time {
	s := strings.TrimSpace(cell)
	if s == "" || s == models.MissingValue {
		return nil
	}

	if serial, err := strconv.ParseFloat(s, 64); err == nil {
		if serial <= 0 {
			return nil
		}
		t, err := excelize.ExcelDateToTime(serial, false)
		if err != nil {
			return nil
		}
		return models.DatePtr(t)
	}

	for _, layout := range textDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return models.DatePtr(t)
		}
	}
	return nil
}

// parseInt reads a whole-number cell, rounding fractional values.
func parseInt(cell string) *int {
	s := strings.TrimSpace(cell)
	if s == "" || s == models.MissingValue {
		return nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	return models.IntPtr(int(math.Round(f)))
}

// displayCell drops the ".0" spreadsheets add to whole numbers, leaving
// other text (including leading zeros) untouched.
func displayCell(s string) string {
	dot := strings.IndexByte(s, '.')
	if dot <= 0 || strings.Trim(s[dot+1:], "0") != "" {
		return s
	}
	if _, err := strconv.Atoi(s[:dot]); err != nil {
		return s
	}
	return s[:dot]
}
