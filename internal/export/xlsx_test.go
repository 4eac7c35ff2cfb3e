package export

import (
	"bytes"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"github.com/tripspend/trip_tracker/internal/tracker"
	"github.com/xuri/excelize/v2"
)

func TestExpensesWorkbook(t *testing.T) {
	expenses := []tracker.Expense{
		{
			Date:     time.Date(2025, 4, 15, 0, 0, 0, 0, time.UTC),
			Type:     "Transportation",
			Vendor:   "Taxi Service",
			Location: "Chicago",
			Cost:     decimal.RequireFromString("89.99"),
			TripName: "Client Meeting in Chicago",
		},
		{
			Date:     time.Date(2025, 4, 16, 0, 0, 0, 0, time.UTC),
			Type:     "Meals",
			Vendor:   "Cafe Roma",
			Location: "Chicago",
			Cost:     decimal.RequireFromString("24.50"),
			TripName: "Client Meeting in Chicago",
		},
	}

	buf, err := ExpensesWorkbook(expenses)
	require.NoError(t, err)

	file, err := excelize.OpenReader(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	defer file.Close()

	vendor, err := file.GetCellValue(sheetName, "C2")
	require.NoError(t, err)
	require.Equal(t, "Taxi Service", vendor)

	cost, err := file.GetCellValue(sheetName, "E2")
	require.NoError(t, err)
	require.Equal(t, "89.99", cost)

	total, err := file.GetCellValue(sheetName, "E4")
	require.NoError(t, err)
	require.Equal(t, "114.49", total)
}

func TestExpensesWorkbookEmpty(t *testing.T) {
	buf, err := ExpensesWorkbook(nil)
	require.NoError(t, err)
	require.NotZero(t, buf.Len())
}

func TestAttachmentName(t *testing.T) {
	require.Contains(t, AttachmentName("Chicago"), "Chicago_")
	require.Contains(t, AttachmentName(""), "all-expenses_")
}
