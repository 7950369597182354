package excel

// RawRowData maps a header to the trimmed cell value of one row
type RawRowData map[string]string

// SheetData is a header row plus the data rows below it
type SheetData struct {
	Headers []string
	Rows    []RawRowData
}

// AccountRow is one account line of an import file. Line is the 1-based row number in
// the file (the header is line 1).
type AccountRow struct {
	Line      int
	Username  string
	Email     string
	FirstName string
	LastName  string
	Password  string
	IsStaff   bool
}
