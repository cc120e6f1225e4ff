package report

import (
	"bytes"
	"context"
	"encoding/csv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/example/screenplay/internal/domain"
)

func sampleEntries() []Entry {
	return []Entry{
		{
			Name: "Alice", Age: 28, Gender: domain.GenderFemale, Occupation: "Pilot",
			Relations: []string{"Sibling"},
			Photos: []domain.Photo{
				{URL: "https://cdn.example/alice.png", Filename: "alice.png"},
				{URL: "https://cdn.example/alice-2.png", Filename: "alice-2.png"},
			},
		},
		{Name: "Bob", Age: 35, Gender: domain.GenderMale, Occupation: "Chef", Relations: []string{}},
	}
}

func padRow(row []string, n int) []string {
	for len(row) < n {
		row = append(row, "")
	}
	return row
}

func TestWriteCSV_RoundTrip(t *testing.T) {
	entries := sampleEntries()
	entries[1].Relations = []string{"Rival", "Mentor"}

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, entries))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, len(entries)+1)

	assert.Equal(t, Header, records[0])
	assert.Equal(t, []string{"Alice", "28", "female", "Pilot", "Sibling", "alice.png\nalice-2.png"}, records[1])
	assert.Equal(t, []string{"Bob", "35", "male", "Chef", "Rival, Mentor", ""}, records[2])
}

func TestWriteCSV_HeaderOnlyWhenEmpty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, nil))
	assert.Equal(t, "Name,Age,Gender,Occupation,Relations,Photos\n", buf.String())
}

func TestWriteXLSX_AliceAndBob(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteXLSX(&buf, sampleEntries()))

	f, err := excelize.OpenReader(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{SheetName}, f.GetSheetList())

	rows, err := f.GetRows(SheetName)
	require.NoError(t, err)
	require.Len(t, rows, 3, "header plus exactly two data rows")

	assert.Equal(t, Header, padRow(rows[0], len(Header)))
	assert.Equal(t, []string{"Alice", "28", "female", "Pilot", "Sibling", "alice.png\nalice-2.png"}, padRow(rows[1], len(Header)))
	assert.Equal(t, []string{"Bob", "35", "male", "Chef", "", ""}, padRow(rows[2], len(Header)))

	width, err := f.GetColWidth(SheetName, "E")
	require.NoError(t, err)
	assert.Equal(t, 40.0, width)

	linked, target, err := f.GetCellHyperLink(SheetName, "F2")
	require.NoError(t, err)
	assert.True(t, linked)
	assert.Equal(t, "https://cdn.example/alice.png", target)
}

func TestBuildTabular_ProducesBothFormats(t *testing.T) {
	tab, err := BuildTabular(context.Background(), sampleEntries())
	require.NoError(t, err)

	assert.True(t, bytes.HasPrefix(tab.XLSX, []byte("PK")), "xlsx is a zip container")
	assert.True(t, bytes.HasPrefix(tab.CSV, []byte("Name,Age,Gender")))
}

func TestRows(t *testing.T) {
	rows := Rows(sampleEntries())
	require.Len(t, rows, 2)
	assert.Equal(t, "Sibling", rows[0][4])
	assert.Equal(t, "", rows[1][4])
}
