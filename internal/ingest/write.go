package ingest

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
)

// Write emits intensity in the three-column layout ParseSpectrum reads:
// sample index, field position and intensity. The field axis starts at
// -sweep/2 and spans sweep.
func Write(w io.Writer, intensity []float64, sweep float64) error {
	bw := bufio.NewWriter(w)
	step := 0.0
	if len(intensity) > 1 {
		step = sweep / float64(len(intensity)-1)
	}
	for i, v := range intensity {
		field := -sweep/2 + float64(i)*step
		if _, err := fmt.Fprintf(bw, "%d %s %s\n", i,
			strconv.FormatFloat(field, 'g', -1, 64),
			strconv.FormatFloat(v, 'g', -1, 64)); err != nil {
			return err
		}
	}
	return bw.Flush()
}
