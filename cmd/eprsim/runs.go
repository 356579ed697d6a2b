package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/guptarohit/asciigraph"
	"github.com/spf13/cobra"

	"github.com/san-kum/eprsim/internal/config"
	"github.com/san-kum/eprsim/internal/export"
	"github.com/san-kum/eprsim/internal/storage"
)

func listRuns(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	st, err := openStore(ctx, cmd, nil)
	if err != nil {
		return err
	}
	defer storage.CloseIfSupported(st)

	runs, err := st.ListRuns(ctx)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("no runs found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tWHEN\tPOINTS\tRADICALS\tITERATIONS\tSIGMA")
	for _, run := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%s\t%.6g\n",
			run.ID,
			run.Name,
			humanize.Time(run.Timestamp),
			run.Settings.Points,
			len(run.Radicals),
			humanize.Comma(int64(run.Iterations)),
			run.Sigma,
		)
	}
	return w.Flush()
}

func loadRun(cmd *cobra.Command, id string) (storage.Run, error) {
	ctx := cmd.Context()
	st, err := openStore(ctx, cmd, nil)
	if err != nil {
		return storage.Run{}, err
	}
	defer storage.CloseIfSupported(st)

	run, ok, err := st.GetRun(ctx, id)
	if err != nil {
		return storage.Run{}, err
	}
	if !ok {
		return storage.Run{}, fmt.Errorf("run not found: %s", id)
	}
	return run, nil
}

func plotRun(cmd *cobra.Command, args []string) error {
	run, err := loadRun(cmd, args[0])
	if err != nil {
		return err
	}
	if len(run.Theoretical) == 0 {
		return fmt.Errorf("no data to plot")
	}

	fmt.Printf("run: %s\n", run.ID)
	fmt.Printf("sigma: %.6g\n", run.Sigma)
	fmt.Printf("samples: %d\n\n", len(run.Theoretical))

	series := [][]float64{run.Theoretical}
	colors := []asciigraph.AnsiColor{asciigraph.Green}
	caption := "fitted"
	if len(run.Experimental) == len(run.Theoretical) {
		series = [][]float64{run.Experimental, run.Theoretical}
		colors = []asciigraph.AnsiColor{asciigraph.Default, asciigraph.Green}
		caption = "experimental / fitted (green)"
	}
	fmt.Println(asciigraph.PlotMany(series,
		asciigraph.Height(15),
		asciigraph.Width(80),
		asciigraph.SeriesColors(colors...),
		asciigraph.Caption(caption),
	))
	fmt.Println()
	printParams(run)
	return nil
}

func exportRun(cmd *cobra.Command, args []string) error {
	run, err := loadRun(cmd, args[0])
	if err != nil {
		return err
	}

	var format export.Format
	if exportFormat != "" {
		if format, err = export.ParseFormat(exportFormat); err != nil {
			return err
		}
	}

	if outFile != "" {
		if err := export.ToFile(outFile, format, run); err != nil {
			return err
		}
		fmt.Printf("exported %s to %s\n", run.ID, outFile)
		return nil
	}

	switch format {
	case "", export.FormatJSON:
		return export.JSON(os.Stdout, run)
	case export.FormatCSV:
		return export.CSV(os.Stdout, run)
	case export.FormatTSV:
		return export.TSV(os.Stdout, run)
	}
	return fmt.Errorf("%s export needs --out", format)
}

func listPresets(cmd *cobra.Command, args []string) error {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "PRESET\tRADICALS\tNUCLEI")
	for _, name := range config.ListPresets() {
		rads := config.Presets[name]()
		nuclei := 0
		for _, r := range rads {
			nuclei += len(r.Nucs)
		}
		fmt.Fprintf(w, "%s\t%d\t%d\n", name, len(rads), nuclei)
	}
	return w.Flush()
}
