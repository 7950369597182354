package excel

import (
	"fmt"
	"io"

	"rubik/models"

	"github.com/xuri/excelize/v2"
)

// PendingSheet is the worksheet name of the approval queue export
const PendingSheet = "Pending"

var pendingHeaders = []string{"ID", "Username", "Email", "First name", "Last name", "Joined (UTC)"}

// WritePendingAccounts writes the accounts as an XLSX workbook to w
func WritePendingAccounts(w io.Writer, accounts []*models.Account) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", PendingSheet); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}

	header := make([]interface{}, len(pendingHeaders))
	for i, h := range pendingHeaders {
		header[i] = h
	}
	if err := f.SetSheetRow(PendingSheet, "A1", &header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	if err := f.SetRowStyle(PendingSheet, 1, 1, bold); err != nil {
		return fmt.Errorf("failed to style header: %w", err)
	}

	for i, a := range accounts {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		row := []interface{}{
			a.ID, a.Username, a.Email, a.FirstName, a.LastName,
			a.DateJoined.UTC().Format("2006-01-02 15:04:05"),
		}
		if err := f.SetSheetRow(PendingSheet, cell, &row); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i+2, err)
		}
	}

	if err := f.SetColWidth(PendingSheet, "B", "C", 28); err != nil {
		return fmt.Errorf("failed to size columns: %w", err)
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}
