package model

import (
	"encoding/json"
	"testing"
	"time"
)

// TestRecordID_UnmarshalJSON проверяет приём ID как строкой, так и числом.
func TestRecordID_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected RecordID
	}{
		{name: "строка", input: `"INS-1"`, expected: "INS-1"},
		{name: "строка с пробелами", input: `"  42 "`, expected: "42"},
		{name: "целое число", input: `42`, expected: "42"},
		{name: "дробное число", input: `4.5`, expected: "4.5"},
		{name: "null", input: `null`, expected: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var id RecordID
			if err := json.Unmarshal([]byte(tt.input), &id); err != nil {
				t.Fatalf("Unmarshal(%s) вернул ошибку: %v", tt.input, err)
			}
			if id != tt.expected {
				t.Errorf("id = %q, ожидался %q", id, tt.expected)
			}
		})
	}
}

// TestRecordID_Equal проверяет сравнение в нормализованной форме.
func TestRecordID_Equal(t *testing.T) {
	if !RecordID("42").Equal(" 42 ") {
		t.Error("ожидалось равенство 42 и ' 42 '")
	}
	if RecordID("42").Equal("43") {
		t.Error("не ожидалось равенство 42 и 43")
	}

	var fromNumber RecordID
	if err := json.Unmarshal([]byte(`42`), &fromNumber); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if !fromNumber.Equal("42") {
		t.Errorf("числовой ID %q должен совпадать со строковым \"42\"", fromNumber)
	}
}

// TestOffice_Known проверяет закрытый набор управлений.
func TestOffice_Known(t *testing.T) {
	for _, o := range Offices {
		if !o.Known() {
			t.Errorf("%q должно быть известным управлением", o)
		}
	}
	if Office("부산청").Known() {
		t.Error("부산청 не входит в набор")
	}
	if Office("").Known() {
		t.Error("пустое управление не должно быть известным")
	}
}

// TestInspectionRecord_Merge проверяет поверхностное слияние полей.
func TestInspectionRecord_Merge(t *testing.T) {
	base := InspectionRecord{
		ID:      "INS-1",
		Date:    "2024-02-10",
		Site:    "현장 A",
		Office:  OfficeSeoul,
		Manager: "김철수",
		Status:  StatusPending,
		Result:  ResultUnset,
		Photos:  []string{"a.jpg"},
	}

	status := StatusCompleted
	result := ResultGood
	details := "이상 없음"
	merged := base.Merge(Fields{
		Status:  &status,
		Result:  &result,
		Details: &details,
		Photos:  []string{"b.jpg", "c.jpg"},
	})

	if merged.ID != "INS-1" {
		t.Errorf("ID = %q, ожидался INS-1", merged.ID)
	}
	if merged.Site != "현장 A" {
		t.Errorf("Site = %q, ожидался неизменным", merged.Site)
	}
	if merged.Status != StatusCompleted || merged.Result != ResultGood || merged.Details != details {
		t.Errorf("поля не применены: %+v", merged)
	}
	if len(merged.Photos) != 2 || merged.Photos[0] != "b.jpg" {
		t.Errorf("Photos = %v, ожидались [b.jpg c.jpg]", merged.Photos)
	}
	if len(base.Photos) != 1 || base.Photos[0] != "a.jpg" {
		t.Errorf("исходная запись изменена: %v", base.Photos)
	}
}

// TestInspectionRecord_Wire проверяет форму для write endpoint.
func TestInspectionRecord_Wire(t *testing.T) {
	now := time.Date(2025, 3, 7, 12, 0, 0, 0, time.UTC)

	rec := InspectionRecord{ID: "INS-1", Photos: []string{"a.jpg", "b.jpg"}}
	wire := rec.Wire(now)
	if wire.Date != "2025-03-07" {
		t.Errorf("Date = %q, ожидалась текущая дата 2025-03-07", wire.Date)
	}
	if wire.Photos != "a.jpg,b.jpg" {
		t.Errorf("Photos = %q, ожидалось a.jpg,b.jpg", wire.Photos)
	}

	rec.Date = "2024-01-01"
	rec.Photos = []string{}
	wire = rec.Wire(now)
	if wire.Date != "2024-01-01" {
		t.Errorf("Date = %q, ожидалась исходная дата", wire.Date)
	}
	if wire.Photos != "" {
		t.Errorf("Photos = %q, ожидалась пустая строка", wire.Photos)
	}
}
