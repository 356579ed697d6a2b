// Package export writes fit runs as JSON, CSV, TSV or XLSX reports.
package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/san-kum/eprsim/internal/epr"
	"github.com/san-kum/eprsim/internal/storage"
)

type Format string

const (
	FormatJSON Format = "json"
	FormatCSV  Format = "csv"
	FormatTSV  Format = "tsv"
	FormatXLSX Format = "xlsx"
)

func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(s)); f {
	case FormatJSON, FormatCSV, FormatTSV, FormatXLSX:
		return f, nil
	}
	return "", fmt.Errorf("unknown export format %q", s)
}

// FormatFromPath picks the format from the file extension.
func FormatFromPath(path string) (Format, error) {
	return ParseFormat(strings.TrimPrefix(filepath.Ext(path), "."))
}

var spectrumHeader = []string{"index", "field", "experimental", "theoretical", "residual"}

// spectrumRows lays out the spectra of run sample by sample. Columns with no
// data are left empty.
func spectrumRows(run storage.Run) [][]string {
	n := max(len(run.Experimental), len(run.Theoretical))
	rows := make([][]string, n)
	for i := 0; i < n; i++ {
		row := []string{strconv.Itoa(i), formatFloat(run.Settings.Field(i)), "", "", ""}
		hasExp, hasTeor := i < len(run.Experimental), i < len(run.Theoretical)
		if hasExp {
			row[2] = formatFloat(run.Experimental[i])
		}
		if hasTeor {
			row[3] = formatFloat(run.Theoretical[i])
		}
		if hasExp && hasTeor {
			row[4] = formatFloat(run.Experimental[i] - run.Theoretical[i])
		}
		rows[i] = row
	}
	return rows
}

// ParamRow is one scalar of a radical set. Nucleus is -1 for radical fields.
type ParamRow struct {
	Radical int
	Nucleus int
	Field   string
	Sub     string
	Value   float64
}

// ParamRows flattens rads in editor order.
func ParamRows(rads []epr.Radical) []ParamRow {
	var rows []ParamRow
	for ri, r := range rads {
		for _, f := range epr.RadicalFields() {
			v, _ := r.Get(f)
			name, sub := f.Names()
			rows = append(rows, ParamRow{Radical: ri, Nucleus: -1, Field: name, Sub: sub, Value: v})
		}
		for ni := range r.Nucs {
			for _, f := range epr.NucleusFields() {
				v, _ := r.GetNucleus(ni, f)
				name, sub := f.Names()
				rows = append(rows, ParamRow{Radical: ri, Nucleus: ni, Field: name, Sub: sub, Value: v})
			}
		}
	}
	return rows
}

func JSON(w io.Writer, run storage.Run) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(run)
}

func CSV(w io.Writer, run storage.Run) error {
	return writeDelimited(w, ',', run)
}

func TSV(w io.Writer, run storage.Run) error {
	return writeDelimited(w, '\t', run)
}

func writeDelimited(w io.Writer, comma rune, run storage.Run) error {
	cw := csv.NewWriter(w)
	cw.Comma = comma
	if err := cw.Write(spectrumHeader); err != nil {
		return err
	}
	if err := cw.WriteAll(spectrumRows(run)); err != nil {
		return err
	}
	return cw.Error()
}

// ToFile writes run to path. An empty format is taken from the extension.
func ToFile(path string, format Format, run storage.Run) error {
	if format == "" {
		f, err := FormatFromPath(path)
		if err != nil {
			return err
		}
		format = f
	}

	if format == FormatXLSX {
		return XLSX(path, run)
	}

	fp, err := os.Create(path)
	if err != nil {
		return err
	}
	defer fp.Close()

	switch format {
	case FormatJSON:
		err = JSON(fp, run)
	case FormatCSV:
		err = CSV(fp, run)
	case FormatTSV:
		err = TSV(fp, run)
	default:
		err = fmt.Errorf("unknown export format %q", format)
	}
	if err != nil {
		return err
	}
	return fp.Close()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
