package catalog

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/tealeg/xlsx"
)

var exportHeaders = []string{
	"ID", "Name", "Description", "Category", "Price", "Stock", "Rating", "Image", "CreatedAt", "UpdatedAt",
}

// Export writes the whole catalog to w as an xlsx workbook with one
// "Products" sheet.
func (s *Service) Export(ctx context.Context, w io.Writer) error {
	products, err := s.repo.ListProducts(ctx, "")
	if err != nil {
		return err
	}

	file := xlsx.NewFile()
	sheet, err := file.AddSheet("Products")
	if err != nil {
		return fmt.Errorf("create sheet: %w", err)
	}

	headerRow := sheet.AddRow()
	for _, h := range exportHeaders {
		headerRow.AddCell().SetValue(h)
	}

	for _, p := range products {
		row := sheet.AddRow()
		row.AddCell().SetValue(p.ID)
		row.AddCell().SetValue(p.Name)
		row.AddCell().SetValue(p.Description)
		row.AddCell().SetValue(p.Category)
		row.AddCell().SetFloat(p.Price.InexactFloat64())
		row.AddCell().SetInt(p.Stock)
		row.AddCell().SetFloat(p.Rating)
		row.AddCell().SetValue(p.ImageURL)
		row.AddCell().SetValue(p.CreatedAt.Format(time.RFC3339))
		row.AddCell().SetValue(p.UpdatedAt.Format(time.RFC3339))
	}

	if err := file.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	s.logger.InfoContext(ctx, "catalog exported", "products", len(products))
	return nil
}
