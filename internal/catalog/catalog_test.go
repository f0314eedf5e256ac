package catalog

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/agenthands/ctreview/internal/core/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeCSV(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "catalog.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestCSVCatalog_Load(t *testing.T) {
	path := writeCSV(t, "CaseID,ImagePath,Classification\n"+
		"case_003,img3.png,\n"+
		" case_001 , img1.png ,Real\n"+
		"case_002,img2.png,\n")

	cases, err := NewCSVCatalog(path).Load(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []model.Case{
		{CaseID: "case_003", ImageRef: "img3.png"},
		{CaseID: "case_001", ImageRef: "img1.png"},
		{CaseID: "case_002", ImageRef: "img2.png"},
	}, cases, "order and trimming must be preserved")
}

func TestCSVCatalog_CustomColumnsAndBOM(t *testing.T) {
	path := writeCSV(t, "\ufeffid,note,file\nx1,hello,a.png\n\nx2,,b.png\n")
	cat := &CSVCatalog{Path: path, IDColumn: "id", ImageColumn: "file"}

	cases, err := cat.Load(context.Background())
	require.NoError(t, err)
	require.Len(t, cases, 2)
	assert.Equal(t, "b.png", cases[1].ImageRef)
}

func TestCSVCatalog_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"empty file", "", "missing header"},
		{"missing id column", "ImagePath\na.png\n", `missing column "CaseID"`},
		{"missing image column", "CaseID\nA\n", `missing column "ImagePath"`},
		{"duplicate id", "CaseID,ImagePath\nA,a.png\nA,b.png\n", "duplicate case id"},
		{"empty id", "CaseID,ImagePath\n,a.png\n", "empty CaseID"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewCSVCatalog(writeCSV(t, tt.content)).Load(context.Background())
			require.Error(t, err)
			assert.ErrorIs(t, err, model.ErrCatalogUnavailable)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestCSVCatalog_MissingFile(t *testing.T) {
	_, err := NewCSVCatalog(filepath.Join(t.TempDir(), "nope.csv")).Load(context.Background())
	assert.ErrorIs(t, err, model.ErrCatalogUnavailable)
}

func TestParse_EmptyBody(t *testing.T) {
	cases, err := Parse(context.Background(), strings.NewReader("CaseID,ImagePath\n"), "", "")
	require.NoError(t, err)
	assert.Empty(t, cases)
}

func TestStatic_ReturnsCopy(t *testing.T) {
	s := Static{{CaseID: "A"}}
	cases, err := s.Load(context.Background())
	require.NoError(t, err)
	cases[0].CaseID = "changed"
	assert.Equal(t, "A", s[0].CaseID)
}
