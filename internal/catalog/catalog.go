package catalog

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/agenthands/ctreview/internal/core/model"
)

const (
	DefaultIDColumn    = "CaseID"
	DefaultImageColumn = "ImagePath"
)

// Source yields the ordered case list for one task. The order is the
// review order and must be stable between loads.
type Source interface {
	Load(ctx context.Context) ([]model.Case, error)
}

// CSVCatalog reads cases from a CSV file with a header row. Columns other
// than the id and image columns are ignored.
type CSVCatalog struct {
	Path        string
	IDColumn    string
	ImageColumn string
}

func NewCSVCatalog(path string) *CSVCatalog {
	return &CSVCatalog{Path: path, IDColumn: DefaultIDColumn, ImageColumn: DefaultImageColumn}
}

func (c *CSVCatalog) Load(ctx context.Context) ([]model.Case, error) {
	f, err := os.Open(c.Path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrCatalogUnavailable, err)
	}
	defer f.Close()

	cases, err := Parse(ctx, f, c.IDColumn, c.ImageColumn)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", model.ErrCatalogUnavailable, c.Path, err)
	}
	return cases, nil
}

// Parse decodes a catalog table. Case IDs must be non-empty and unique.
func Parse(ctx context.Context, r io.Reader, idColumn, imageColumn string) ([]model.Case, error) {
	if idColumn == "" {
		idColumn = DefaultIDColumn
	}
	if imageColumn == "" {
		imageColumn = DefaultImageColumn
	}

	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("missing header row")
		}
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	idIdx, imgIdx := -1, -1
	for i, name := range header {
		switch strings.TrimSpace(strings.TrimPrefix(name, "\ufeff")) {
		case idColumn:
			idIdx = i
		case imageColumn:
			imgIdx = i
		}
	}
	if idIdx < 0 {
		return nil, fmt.Errorf("missing column %q", idColumn)
	}
	if imgIdx < 0 {
		return nil, fmt.Errorf("missing column %q", imageColumn)
	}

	var cases []model.Case
	seen := make(map[string]int)
	for line := 2; ; line++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		if len(row) == 1 && strings.TrimSpace(row[0]) == "" {
			continue
		}
		if idIdx >= len(row) || imgIdx >= len(row) {
			return nil, fmt.Errorf("line %d: too few fields", line)
		}

		id := strings.TrimSpace(row[idIdx])
		if id == "" {
			return nil, fmt.Errorf("line %d: empty %s", line, idColumn)
		}
		if prev, dup := seen[id]; dup {
			return nil, fmt.Errorf("line %d: duplicate case id %q (first on line %d)", line, id, prev)
		}
		seen[id] = line

		cases = append(cases, model.Case{CaseID: id, ImageRef: strings.TrimSpace(row[imgIdx])})
	}
	return cases, nil
}

// Static serves a fixed case list. Useful for tests and demos.
type Static []model.Case

func (s Static) Load(ctx context.Context) ([]model.Case, error) {
	out := make([]model.Case, len(s))
	copy(out, s)
	return out, nil
}
