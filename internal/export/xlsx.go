package export

import (
	"sort"

	"github.com/xuri/excelize/v2"

	"github.com/san-kum/eprsim/internal/storage"
)

const (
	sheetSummary  = "Summary"
	sheetRadicals = "Radicals"
	sheetSpectrum = "Spectrum"
)

// XLSX writes a workbook with Summary, Radicals and Spectrum sheets.
func XLSX(path string, run storage.Run) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheetSummary); err != nil {
		return err
	}
	summary := [][2]any{
		{"Name", run.Name},
		{"ID", run.ID},
		{"Timestamp", run.Timestamp.Format("2006-01-02 15:04:05")},
		{"Seed", run.Seed},
		{"Sweep", run.Settings.Sweep},
		{"Points", run.Settings.Points},
		{"Iterations", run.Iterations},
		{"Accepted", run.Accepted},
		{"Sigma", run.Sigma},
		{"Norm", run.Norm},
	}
	names := make([]string, 0, len(run.Metrics))
	for k := range run.Metrics {
		names = append(names, k)
	}
	sort.Strings(names)
	for _, k := range names {
		summary = append(summary, [2]any{k, run.Metrics[k]})
	}
	for i, kv := range summary {
		if err := setRow(f, sheetSummary, i+1, kv[0], kv[1]); err != nil {
			return err
		}
	}

	if _, err := f.NewSheet(sheetRadicals); err != nil {
		return err
	}
	if err := setRow(f, sheetRadicals, 1, "Radical", "Nucleus", "Field", "Sub", "Value"); err != nil {
		return err
	}
	for i, p := range ParamRows(run.Radicals) {
		var nuc any = ""
		if p.Nucleus >= 0 {
			nuc = p.Nucleus
		}
		if err := setRow(f, sheetRadicals, i+2, p.Radical, nuc, p.Field, p.Sub, p.Value); err != nil {
			return err
		}
	}

	if _, err := f.NewSheet(sheetSpectrum); err != nil {
		return err
	}
	header := make([]any, len(spectrumHeader))
	for i, h := range spectrumHeader {
		header[i] = h
	}
	if err := setRow(f, sheetSpectrum, 1, header...); err != nil {
		return err
	}
	n := max(len(run.Experimental), len(run.Theoretical))
	for i := 0; i < n; i++ {
		row := []any{i, run.Settings.Field(i)}
		hasExp, hasTeor := i < len(run.Experimental), i < len(run.Theoretical)
		if hasExp {
			row = append(row, run.Experimental[i])
		} else {
			row = append(row, "")
		}
		if hasTeor {
			row = append(row, run.Theoretical[i])
		} else {
			row = append(row, "")
		}
		if hasExp && hasTeor {
			row = append(row, run.Experimental[i]-run.Theoretical[i])
		}
		if err := setRow(f, sheetSpectrum, i+2, row...); err != nil {
			return err
		}
	}

	return f.SaveAs(path)
}

func setRow(f *excelize.File, sheet string, row int, values ...any) error {
	for col, v := range values {
		cell, err := excelize.CoordinatesToCellName(col+1, row)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(sheet, cell, v); err != nil {
			return err
		}
	}
	return nil
}
