package harness

import (
	"fmt"
	"path/filepath"

	"github.com/xuri/excelize/v2"
)

// defaultSheet is the single sheet of the bare fixtures
const defaultSheet = "Sheet"

// fixtures builds each scenario workbook on top of a new file holding Sheet1
var fixtures = map[string]func(*excelize.File) error{
	"simple.xlsx": func(f *excelize.File) error {
		return f.SetCellValue("Sheet1", "A1", "Test")
	},
	"with_numbers.xlsx": func(f *excelize.File) error {
		if err := f.SetSheetName("Sheet1", defaultSheet); err != nil {
			return err
		}
		for i, v := range []int{10, 20, 30, 40, 50} {
			if err := f.SetCellValue(defaultSheet, fmt.Sprintf("A%d", i+1), v); err != nil {
				return err
			}
		}
		return nil
	},
	"sample_data.xlsx": func(f *excelize.File) error {
		return setRows(f, "Sheet1", [][]any{
			{"Name", "Age", "City"},
			{"Alice", 30, "New York"},
			{"Bob", 25, "Los Angeles"},
			{"Charlie", 35, "Chicago"},
		})
	},
	"multi_sheet.xlsx": func(f *excelize.File) error {
		for _, name := range []string{"Sheet2", "Summary"} {
			if _, err := f.NewSheet(name); err != nil {
				return err
			}
		}
		return nil
	},
	"empty.xlsx": func(f *excelize.File) error {
		return f.SetSheetName("Sheet1", defaultSheet)
	},
	"data_table.xlsx": func(f *excelize.File) error {
		rows := [][]any{{"ID", "Product", "Quantity", "Price"}}
		for i := 1; i <= 10; i++ {
			rows = append(rows, []any{i, fmt.Sprintf("Product %d", i), i * 3, float64(i) * 9.5})
		}
		return setRows(f, "Sheet1", rows)
	},
}

// FixtureNames returns the workbook names WriteFixture accepts
func FixtureNames() []string {
	names := make([]string, 0, len(fixtures))
	for name := range fixtures {
		names = append(names, name)
	}
	return names
}

// WriteFixture creates the named fixture workbook in dir and returns its path
func WriteFixture(dir, name string) (string, error) {
	build, ok := fixtures[name]
	if !ok {
		return "", fmt.Errorf("unknown fixture workbook '%s'", name)
	}

	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := build(f); err != nil {
		return "", fmt.Errorf("failed to build fixture %s: %w", name, err)
	}
	path := filepath.Join(dir, name)
	if err := f.SaveAs(path); err != nil {
		return "", fmt.Errorf("failed to save fixture %s: %w", name, err)
	}
	return path, nil
}

func setRows(f *excelize.File, sheet string, rows [][]any) error {
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return err
		}
	}
	return nil
}
