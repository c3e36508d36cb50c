package bank

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"
)

// ReadASCII parses "psi0 psi3 fcut layer" lines. The layer column is
// optional and defaults to 0. '#' starts a comment line.
func ReadASCII(r io.Reader) ([]Template, error) {
	var out []Template

	sc := bufio.NewScanner(r)
	line := 0

	for sc.Scan() {
		line++

		fields := strings.Fields(sc.Text())
		if len(fields) == 0 || strings.HasPrefix(fields[0], "#") {
			continue
		}

		if len(fields) < 3 {
			return nil, fmt.Errorf("bank: line %d: want at least 3 columns, got %d", line, len(fields))
		}

		var vals [3]float64
		for i := range vals {
			v, err := strconv.ParseFloat(fields[i], 64)
			if err != nil {
				return nil, fmt.Errorf("bank: line %d: %w", line, err)
			}

			vals[i] = v
		}

		tmpl := Template{Psi0: vals[0], Psi3: vals[1], FCutoff: vals[2]}

		if len(fields) > 3 {
			layer, err := strconv.Atoi(fields[3])
			if err != nil {
				return nil, fmt.Errorf("bank: line %d: %w", line, err)
			}

			tmpl.Layer = layer
		}

		if !(tmpl.Psi0 > 0) || !(tmpl.FCutoff > 0) {
			return nil, fmt.Errorf("bank: line %d: psi0 and fcut must be > 0", line)
		}

		out = append(out, tmpl)
	}

	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("bank: read failed: %w", err)
	}

	return out, nil
}

// WriteASCII writes templates in the ReadASCII format.
func WriteASCII(w io.Writer, templates []Template) error {
	bw := bufio.NewWriter(w)

	for _, t := range templates {
		if _, err := fmt.Fprintf(bw, "%e %e %f %d\n", t.Psi0, t.Psi3, t.FCutoff, t.Layer); err != nil {
			return err
		}
	}

	return bw.Flush()
}

// WriteTable prints an aligned human-readable listing.
func WriteTable(w io.Writer, templates []Template) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)

	fmt.Fprintln(tw, "#\tpsi0\tpsi3\tfcut (Hz)\tlayer\tmass (Msun)")

	for i, t := range templates {
		fmt.Fprintf(tw, "%d\t%.1f\t%.2f\t%.2f\t%d\t%.2f\n",
			i, t.Psi0, t.Psi3, t.FCutoff, t.Layer, TotalMass(t.Psi0, t.Psi3))
	}

	return tw.Flush()
}
