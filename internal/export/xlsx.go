// Пакет export — выгрузка выбранных записей истории в XLSX.
package export

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/bigkaa/goartstore/inspection-module/internal/domain/model"
)

// ContentType — MIME-тип XLSX.
const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// sheetName — лист по умолчанию новой книги excelize.
const sheetName = "Sheet1"

// ErrEmptySelection — не выбрано ни одной записи.
var ErrEmptySelection = errors.New("не выбрано ни одной записи")

// columns — заголовки столбцов и извлечение значений.
var columns = []struct {
	title string
	value func(r model.InspectionRecord) string
}{
	{"ID", func(r model.InspectionRecord) string { return r.ID.String() }},
	{"날짜", func(r model.InspectionRecord) string { return r.Date }},
	{"현장명", func(r model.InspectionRecord) string { return r.Site }},
	{"관할청", func(r model.InspectionRecord) string { return string(r.Office) }},
	{"담당자", func(r model.InspectionRecord) string { return r.Manager }},
	{"상태", func(r model.InspectionRecord) string { return string(r.Status) }},
	{"결과", func(r model.InspectionRecord) string { return string(r.Result) }},
	{"상세", func(r model.InspectionRecord) string { return r.Details }},
	{"사진", func(r model.InspectionRecord) string { return strings.Join(r.Photos, ",") }},
}

// Select отбирает записи с указанными id, сохраняя порядок records.
// Неизвестные id игнорируются. Пустой список id — ErrEmptySelection.
func Select(records []model.InspectionRecord, ids []model.RecordID) ([]model.InspectionRecord, error) {
	if len(ids) == 0 {
		return nil, ErrEmptySelection
	}

	wanted := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		wanted[model.NewRecordID(id.String()).String()] = struct{}{}
	}

	out := make([]model.InspectionRecord, 0, len(ids))
	for _, r := range records {
		if _, ok := wanted[model.NewRecordID(r.ID.String()).String()]; ok {
			out = append(out, r.Clone())
		}
	}
	if len(out) == 0 {
		return nil, ErrEmptySelection
	}
	return out, nil
}

// WriteXLSX пишет книгу с заголовком и одной строкой на запись.
func WriteXLSX(w io.Writer, records []model.InspectionRecord) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	for col, c := range columns {
		if err := setCell(f, col+1, 1, c.title); err != nil {
			return err
		}
	}

	for i, r := range records {
		row := i + 2
		for col, c := range columns {
			if err := setCell(f, col+1, row, c.value(r)); err != nil {
				return err
			}
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("запись XLSX: %w", err)
	}
	return nil
}

// setCell записывает значение в ячейку по номеру столбца и строки (с 1).
func setCell(f *excelize.File, col, row int, value string) error {
	cell, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return fmt.Errorf("адрес ячейки: %w", err)
	}
	if err := f.SetCellValue(sheetName, cell, value); err != nil {
		return fmt.Errorf("ячейка %s: %w", cell, err)
	}
	return nil
}
