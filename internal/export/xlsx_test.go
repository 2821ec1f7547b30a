package export

import (
	"bytes"
	"errors"
	"testing"

	"github.com/xuri/excelize/v2"

	"github.com/bigkaa/goartstore/inspection-module/internal/domain/model"
)

func testRecords() []model.InspectionRecord {
	return []model.InspectionRecord{
		{ID: "A", Date: "2024-03-01", Site: "현장 A", Office: model.OfficeSeoul, Manager: "김", Status: model.StatusCompleted, Result: model.ResultGood, Photos: []string{"a.jpg", "b.jpg"}},
		{ID: "B", Date: "2024-02-01", Site: "현장 B", Office: model.OfficeJeju, Manager: "이", Status: model.StatusPending, Result: model.ResultUnset, Photos: []string{}},
		{ID: "C", Date: "2024-01-01", Site: "현장 C", Office: model.OfficeWonju, Manager: "박", Status: model.StatusPending, Result: model.ResultUnset, Photos: []string{}},
	}
}

func TestSelect(t *testing.T) {
	got, err := Select(testRecords(), []model.RecordID{"C", " A ", "missing"})
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if len(got) != 2 || got[0].ID != "A" || got[1].ID != "C" {
		t.Errorf("Select = %+v, ожидались [A C] в порядке записей", got)
	}
}

func TestSelect_Empty(t *testing.T) {
	if _, err := Select(testRecords(), nil); !errors.Is(err, ErrEmptySelection) {
		t.Errorf("пустой список: err = %v, ожидался ErrEmptySelection", err)
	}
	if _, err := Select(testRecords(), []model.RecordID{"missing"}); !errors.Is(err, ErrEmptySelection) {
		t.Errorf("неизвестные id: err = %v, ожидался ErrEmptySelection", err)
	}
}

func TestWriteXLSX(t *testing.T) {
	var buf bytes.Buffer
	records := testRecords()[:2]
	if err := WriteXLSX(&buf, records); err != nil {
		t.Fatalf("WriteXLSX: %v", err)
	}

	f, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatalf("OpenReader: %v", err)
	}
	defer func() { _ = f.Close() }()

	rows, err := f.GetRows(sheetName)
	if err != nil {
		t.Fatalf("GetRows: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("строк = %d, ожидалось 3 (заголовок + 2)", len(rows))
	}
	if rows[0][0] != "ID" || rows[0][1] != "날짜" {
		t.Errorf("заголовок = %v", rows[0])
	}
	if rows[1][0] != "A" || rows[2][0] != "B" {
		t.Errorf("id = [%s %s], ожидались [A B]", rows[1][0], rows[2][0])
	}
	if rows[1][8] != "a.jpg,b.jpg" {
		t.Errorf("photos = %q, ожидалось %q", rows[1][8], "a.jpg,b.jpg")
	}
}
