package store

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/bigkaa/goartstore/inspection-module/internal/domain/model"
)

//go:embed seed.yaml
var defaultSeed []byte

// LoadSeed загружает резервный набор записей.
// path — путь к YAML-файлу (IM_SEED_FILE); пустая строка — встроенный набор.
func LoadSeed(path string) ([]model.InspectionRecord, error) {
	data := defaultSeed
	if path != "" {
		var err error
		data, err = os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("чтение seed-файла: %w", err)
		}
	}
	return ParseSeed(data)
}

// ParseSeed разбирает YAML-список записей.
// Каждая запись обязана иметь ID, ID не должны повторяться.
func ParseSeed(data []byte) ([]model.InspectionRecord, error) {
	var records []model.InspectionRecord
	if err := yaml.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("разбор seed: %w", err)
	}

	seen := make(map[model.RecordID]struct{}, len(records))
	for i := range records {
		records[i].ID = model.NewRecordID(records[i].ID.String())
		if records[i].ID.IsZero() {
			return nil, fmt.Errorf("seed: запись %d без id", i)
		}
		if _, dup := seen[records[i].ID]; dup {
			return nil, fmt.Errorf("seed: повторный id %q", records[i].ID)
		}
		seen[records[i].ID] = struct{}{}
		if records[i].Photos == nil {
			records[i].Photos = []string{}
		}
	}
	return records, nil
}
