package export

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
)

// TagStateRow is one student line of the export
type TagStateRow struct {
	StudentID        int64
	Username         string
	HasViewedJournal bool
	NotificationSent bool
	UpdatedAt        time.Time
}

const sheetName = "Students"

var header = []string{"Student ID", "Username", "Viewed", "Notified", "Last change"}

// TagStatesWorkbook renders the read and notify state of a journal's students as .xlsx
func TagStatesWorkbook(journalTitle string, rows []TagStateRow) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return nil, fmt.Errorf("rename sheet: %w", err)
	}

	for c, h := range header {
		cell, _ := excelize.CoordinatesToCellName(c+1, 1)
		if err := f.SetCellStr(sheetName, cell, h); err != nil {
			return nil, fmt.Errorf("set cell %s: %w", cell, err)
		}
	}

	for r, row := range rows {
		values := []interface{}{row.StudentID, row.Username, yesNo(row.HasViewedJournal), yesNo(row.NotificationSent), row.UpdatedAt.UTC().Format("2006-01-02 15:04")}
		for c, v := range values {
			cell, _ := excelize.CoordinatesToCellName(c+1, r+2)
			if err := f.SetCellValue(sheetName, cell, v); err != nil {
				return nil, fmt.Errorf("set cell %s: %w", cell, err)
			}
		}
	}

	end, _ := excelize.CoordinatesToCellName(len(header), 1)
	if bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}}); err == nil {
		_ = f.SetCellStyle(sheetName, "A1", end, bold)
	}
	_ = f.AutoFilter(sheetName, "A1:"+end, nil)
	_ = f.SetColWidth(sheetName, "A", "A", 12)
	_ = f.SetColWidth(sheetName, "B", "B", 24)
	_ = f.SetColWidth(sheetName, "C", "D", 10)
	_ = f.SetColWidth(sheetName, "E", "E", 18)

	if journalTitle != "" {
		_ = f.SetDocProps(&excelize.DocProperties{Title: journalTitle, Creator: "classjournal"})
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

// Filename builds a download name for a journal export
func Filename(journalID int64, journalTitle string) string {
	title := strings.Join(strings.Fields(journalTitle), " ")
	if title == "" {
		return fmt.Sprintf("journal-%d-students.xlsx", journalID)
	}
	return invalidFileRe.ReplaceAllString(fmt.Sprintf("journal-%d-%s-students.xlsx", journalID, title), "_")
}

var invalidFileRe = regexp.MustCompile(`[\\/:*?"<>|]+`)

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
