package psd

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// ReadASCII reads a two-column "frequency power" file into a spectrum of
// bins points. Line j fills bin j+1; the DC bin is zero. The file must hold
// exactly bins-1 points. Blank lines and lines starting with '#' are ignored.
func ReadASCII(r io.Reader, bins int, deltaF float64) (*Spectrum, error) {
	if bins < 2 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidLength, bins)
	}

	data := make([]float64, bins)
	sc := bufio.NewScanner(r)
	count := 0
	line := 0

	for sc.Scan() {
		line++

		text := strings.TrimSpace(sc.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}

		fields := strings.Fields(text)
		if len(fields) < 2 {
			return nil, fmt.Errorf("psd: line %d: want 2 columns, got %d", line, len(fields))
		}

		v, err := strconv.ParseFloat(fields[1], 64)
		if err != nil {
			return nil, fmt.Errorf("psd: line %d: %w", line, err)
		}

		count++
		if count >= bins {
			return nil, fmt.Errorf("%w: more than %d points", ErrPointCount, bins-1)
		}

		data[count] = v
	}

	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("psd: read failed: %w", err)
	}

	if count != bins-1 {
		return nil, fmt.Errorf("%w: read %d, want %d (deltaF %g)", ErrPointCount, count, bins-1, deltaF)
	}

	return New(data, 0, deltaF)
}

// WriteASCII writes every bin except DC as "frequency power" lines.
func WriteASCII(w io.Writer, s *Spectrum) error {
	bw := bufio.NewWriter(w)

	for k := 1; k < len(s.Data); k++ {
		if _, err := fmt.Fprintf(bw, "%f %e\n", s.Frequency(k), s.Data[k]); err != nil {
			return err
		}
	}

	return bw.Flush()
}

// ReadSeries reads an ASCII time series, one sample per line. The last
// column of each line is the sample, so "t x" pairs read as x. Blank
// lines and lines starting with '#' are skipped.
func ReadSeries(r io.Reader) ([]float64, error) {
	var out []float64

	sc := bufio.NewScanner(r)
	line := 0

	for sc.Scan() {
		line++

		fields := strings.Fields(sc.Text())
		if len(fields) == 0 || strings.HasPrefix(fields[0], "#") {
			continue
		}

		v, err := strconv.ParseFloat(fields[len(fields)-1], 64)
		if err != nil {
			return nil, fmt.Errorf("psd: line %d: %w", line, err)
		}

		out = append(out, v)
	}

	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("psd: read failed: %w", err)
	}

	return out, nil
}
