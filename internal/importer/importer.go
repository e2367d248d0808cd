package importer

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"soapstore/internal/domain"
)

type ProductWriter interface {
	Upsert(ctx context.Context, product domain.Product) (*domain.Product, error)
}

// CSVImporter reads catalog CSV exports and inserts/updates products.
// Expected header: name,price,stock,image_path. Price is in euros and is
// converted to cents once here; everything downstream works in cents.
type CSVImporter struct {
	reader      *csv.Reader
	productRepo ProductWriter
}

func NewCSVImporter(r io.Reader, repo ProductWriter) *CSVImporter {
	csvr := csv.NewReader(r)
	csvr.FieldsPerRecord = -1 // rows may have trailing commas
	return &CSVImporter{
		reader:      csvr,
		productRepo: repo,
	}
}

// Run imports all rows and returns the number of products written.
func (i *CSVImporter) Run(ctx context.Context) (int, error) {
	header, err := i.reader.Read()
	if err != nil {
		return 0, fmt.Errorf("read header: %w", err)
	}
	cols := make(map[string]int, len(header))
	for idx, name := range header {
		cols[strings.ToLower(strings.TrimSpace(name))] = idx
	}
	for _, required := range []string{"name", "price"} {
		if _, ok := cols[required]; !ok {
			return 0, fmt.Errorf("missing required column %q", required)
		}
	}

	count := 0
	for {
		row, err := i.reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return count, fmt.Errorf("read row %d: %w", count+1, err)
		}

		product, err := parseRow(row, cols)
		if err != nil {
			return count, fmt.Errorf("row %d: %w", count+1, err)
		}
		if _, err := i.productRepo.Upsert(ctx, product); err != nil {
			return count, fmt.Errorf("upsert %q: %w", product.Name, err)
		}
		count++
	}
	return count, nil
}

func parseRow(row []string, cols map[string]int) (domain.Product, error) {
	field := func(name string) string {
		idx, ok := cols[name]
		if !ok || idx >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[idx])
	}

	name := field("name")
	if name == "" {
		return domain.Product{}, errors.New("empty name")
	}

	price, err := strconv.ParseFloat(field("price"), 64)
	if err != nil || price < 0 {
		return domain.Product{}, fmt.Errorf("invalid price %q", field("price"))
	}

	stock := 0
	if raw := field("stock"); raw != "" {
		stock, err = strconv.Atoi(raw)
		if err != nil || stock < 0 {
			return domain.Product{}, fmt.Errorf("invalid stock %q", raw)
		}
	}

	return domain.Product{
		Name:       name,
		PriceCents: int64(price*100 + 0.5),
		Stock:      stock,
		ImagePath:  field("image_path"),
	}, nil
}
