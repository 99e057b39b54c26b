package report

import (
	"bytes"
	"testing"

	"stockboard/internal/domain"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestWriteLowStock(t *testing.T) {
	groups := []domain.CategoryGroup{
		{
			Category: domain.CategoryCarFrames,
			Label:    "Car Frames",
			Products: []*domain.Product{
				{Name: "Red Frame", Stock: 0, Price: decimal.RequireFromString("12.5"), Enabled: true},
				{Name: "Blue Frame", Stock: 2, Price: decimal.NewFromInt(10)},
			},
		},
		{
			Category: domain.CategoryPosters,
			Label:    "Posters",
			Products: []*domain.Product{
				{Name: "Skyline", Stock: 1, Price: decimal.NewFromInt(3), Enabled: true},
			},
		},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteLowStock(&buf, groups))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{LowStockSheet}, f.GetSheetList())

	rows, err := f.GetRows(LowStockSheet)
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, []string{"Category", "Product", "Stock", "Price", "Enabled"}, rows[0])
	assert.Equal(t, []string{"Car Frames", "Red Frame", "0", "12.5", "yes"}, rows[1])
	assert.Equal(t, []string{"Car Frames", "Blue Frame", "2", "10", "no"}, rows[2])
	assert.Equal(t, []string{"Posters", "Skyline", "1", "3", "yes"}, rows[3])
}

func TestWriteLowStockEmpty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteLowStock(&buf, nil))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(LowStockSheet)
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}
