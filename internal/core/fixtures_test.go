package core

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

// sheet is one worksheet of a generated test workbook. A nil row leaves
// that sheet row unwritten.
type sheet struct {
	name string
	rows [][]any
}

var header = []any{"Date", "Type", "Description", "Amount"}

// buildWorkbook renders sheets into .xlsx bytes.
func buildWorkbook(t *testing.T, sheets ...sheet) []byte {
	t.Helper()

	f := excelize.NewFile()
	defer f.Close()

	for i, s := range sheets {
		if i == 0 {
			require.NoError(t, f.SetSheetName("Sheet1", s.name))
		} else {
			_, err := f.NewSheet(s.name)
			require.NoError(t, err)
		}
		for r, row := range s.rows {
			if row == nil {
				continue
			}
			axis := fmt.Sprintf("A%d", r+1)
			require.NoError(t, f.SetSheetRow(s.name, axis, &row))
		}
	}

	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf.Bytes()
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func isErr(err, target error) bool {
	return errors.Is(err, target)
}
