package excel

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
)

// DataReader handles reading Excel and CSV files
type DataReader struct {
	filePath string
	fileType string // "xlsx" or "csv"
}

// NewDataReader creates a reader that picks the format from the file extension
func NewDataReader(filePath string) *DataReader {
	ext := strings.ToLower(filepath.Ext(filePath))
	fileType := "xlsx"
	if ext == ".csv" {
		fileType = "csv"
	}
	return &DataReader{filePath: filePath, fileType: fileType}
}

// ReadData reads the first sheet (or the CSV) into headers and rows
func (r *DataReader) ReadData() (*SheetData, error) {
	if _, err := os.Stat(r.filePath); os.IsNotExist(err) {
		return nil, fmt.Errorf("%s file not found: %s", strings.ToUpper(r.fileType), r.filePath)
	}

	switch r.fileType {
	case "csv":
		return r.readCSVData()
	default:
		return r.readExcelData()
	}
}

func (r *DataReader) readExcelData() (*SheetData, error) {
	f, err := excelize.OpenFile(r.filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open Excel file: %w", err)
	}
	defer f.Close()

	sheet := f.GetSheetName(0)
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %s: %w", sheet, err)
	}
	if len(rows) < 1 {
		return nil, fmt.Errorf("Excel file must have a header row")
	}
	return processRows(rows), nil
}

func (r *DataReader) readCSVData() (*SheetData, error) {
	file, err := os.Open(r.filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open CSV file: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV file: %w", err)
	}
	if len(rows) < 1 {
		return nil, fmt.Errorf("CSV file must have a header row")
	}
	return processRows(rows), nil
}

// processRows converts raw string rows into SheetData, lower-casing headers
func processRows(rows [][]string) *SheetData {
	headerRow := rows[0]
	headers := make([]string, len(headerRow))
	for i, header := range headerRow {
		headers[i] = strings.ToLower(strings.TrimSpace(header))
	}

	data := &SheetData{Headers: headers}
	for i := 1; i < len(rows); i++ {
		rowData := make(RawRowData)
		for j, cell := range rows[i] {
			if j < len(headers) {
				rowData[headers[j]] = strings.TrimSpace(cell)
			}
		}
		data.Rows = append(data.Rows, rowData)
	}
	return data
}

var requiredAccountHeaders = []string{"username", "email", "password"}

// ReadAccounts reads an account import file. Blank lines are skipped.
func ReadAccounts(filePath string) ([]AccountRow, error) {
	data, err := NewDataReader(filePath).ReadData()
	if err != nil {
		return nil, err
	}
	return AccountsFromSheet(data)
}

// AccountsFromSheet maps sheet rows onto AccountRow values
func AccountsFromSheet(data *SheetData) ([]AccountRow, error) {
	present := make(map[string]bool, len(data.Headers))
	for _, h := range data.Headers {
		present[h] = true
	}
	for _, h := range requiredAccountHeaders {
		if !present[h] {
			return nil, fmt.Errorf("missing required column %q", h)
		}
	}

	var accounts []AccountRow
	for i, row := range data.Rows {
		if isBlank(row) {
			continue
		}
		staff, _ := strconv.ParseBool(row["is_staff"])
		accounts = append(accounts, AccountRow{
			Line:      i + 2,
			Username:  row["username"],
			Email:     row["email"],
			FirstName: row["first_name"],
			LastName:  row["last_name"],
			Password:  row["password"],
			IsStaff:   staff,
		})
	}
	return accounts, nil
}

func isBlank(row RawRowData) bool {
	for _, v := range row {
		if v != "" {
			return false
		}
	}
	return true
}
