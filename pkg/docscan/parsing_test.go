package docscan

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseAmount(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want int64
		ok   bool
	}{
		{"plain integer", "1250", 125000, true},
		{"grouped with cents", "1,234.56", 123456, true},
		{"european grouping", "1.234,56", 123456, true},
		{"cents only", "12.50", 1250, true},
		{"zero", "0", 0, false},
		{"empty", "", 0, false},
		{"too long", "1234567890123", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := parseAmount(tt.raw)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestBestAmountInPrefersKeywordLines(t *testing.T) {
	text := "Item A 99.00\nItem B 1,500.00\nTotal due 1,599.00\n"
	got := bestAmountIn(text)
	assert.EqualValues(t, 159900, got.amount)
	assert.Greater(t, got.score, 0.5)
}

func TestBestAmountInFallsBackToLargestFigure(t *testing.T) {
	text := "qty 2\nfee 40.00\n80.00\n"
	got := bestAmountIn(text)
	assert.EqualValues(t, 8000, got.amount)
}

func TestBestAmountInRepairsDigitConfusions(t *testing.T) {
	// Tesseract commonly reads 0 as O in amount columns
	text := "Amount due 1O0.50\n"
	got := bestAmountIn(text)
	assert.EqualValues(t, 10050, got.amount)
}

func TestBestAmountInEmptyText(t *testing.T) {
	got := bestAmountIn("   \n\n")
	assert.Zero(t, got.amount)
	assert.Zero(t, got.score)
}

func TestIsImage(t *testing.T) {
	assert.True(t, IsImage("scan.JPG"))
	assert.True(t, IsImage("dir/receipt.png"))
	assert.False(t, IsImage("contract.pdf"))
	assert.False(t, IsImage("notes.txt"))
}
