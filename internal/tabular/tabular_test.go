package tabular

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chitieu/internal/normalize"
)

func TestParseWithHeader(t *testing.T) {
	in := "\ufeffNgày,Số tiền,Ghi chú,Danh mục\r\n" +
		"05/03/2024,\"45.000\",\"Bún chả, Hàng Mành\",Ăn uống\r\n" +
		"\r\n" +
		"06/03/2024,20000,Grab,\n"
	recs := Parse(in)
	require.Len(t, recs, 2)
	assert.Equal(t, "05/03/2024", recs[0]["Ngày"])
	assert.Equal(t, "45.000", recs[0]["Số tiền"])
	assert.Equal(t, "Bún chả, Hàng Mành", recs[0]["Ghi chú"])
	assert.Equal(t, "Ăn uống", recs[0]["Danh mục"])
	assert.Equal(t, "", recs[1]["Danh mục"])
}

func TestParsePositional(t *testing.T) {
	in := "2024-03-05,30000,Phở\n2024-03-06,15000,Cà phê sữa,COFFEE\n"
	recs := Parse(in)
	require.Len(t, recs, 2)
	assert.Equal(t, normalize.Record{
		ColDate: "2024-03-05", ColAmount: "30000", ColNote: "Phở", ColCategory: "Phở",
	}, recs[0])
	assert.Equal(t, "COFFEE", recs[1][ColCategory])
}

func TestParseSkipsShortRows(t *testing.T) {
	recs := Parse("2024-03-05\n2024-03-05,12000\n")
	require.Len(t, recs, 1)
	assert.Equal(t, "12000", recs[0][ColAmount])
	_, hasNote := recs[0][ColNote]
	assert.False(t, hasNote)
}

func TestParseMalformedQuotesFallsBack(t *testing.T) {
	recs := Parse(`2024-03-05,"12000,Bánh mì "ngon"`)
	require.Len(t, recs, 1)
	assert.NotEmpty(t, recs[0][ColDate])
}

func TestIsHeader(t *testing.T) {
	assert.True(t, IsHeader([]string{"Transaction Date", "Value"}))
	assert.True(t, IsHeader([]string{"ngày", "tiền"}))
	assert.False(t, IsHeader([]string{"2024-03-05", "30000", "Phở"}))
}

func TestParseRowsEndToEnd(t *testing.T) {
	rows := [][]string{{"date", "amount", "note"}, {"05/03/2024", "1.250.000 đ", "Tiền nhà"}}
	recs := ParseRows(rows)
	require.Len(t, recs, 1)
	exp, ok := normalize.NormalizeRecord(recs[0])
	require.True(t, ok)
	assert.EqualValues(t, 1250000, exp.Amount)
}

func TestParseEmpty(t *testing.T) {
	assert.Empty(t, Parse(""))
	assert.Empty(t, Parse("\n\r\n  \n"))
}
