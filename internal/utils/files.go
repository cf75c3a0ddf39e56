package utils

import (
	"bufio"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"

	"github.com/wildstyl3r/octfield/internal/octree"
)

// scanColumns calls fn with the numbers of every data line of filename. Blank lines and lines starting with '#'
// are skipped; any other line must hold exactly columns numbers.
func scanColumns(filename string, columns int, fn func(values []float64) error) error {
	file, err := os.Open(filename)
	if err != nil {
		return errors.Wrap(err, "error opening file")
	}
	defer file.Close()

	values := make([]float64, columns)
	scanner := bufio.NewScanner(file)
	for lineNumber := 1; scanner.Scan(); lineNumber++ {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.Fields(line)
		if len(parts) != columns {
			return errors.Errorf("%s:%d: expected %d numbers, got %d", filename, lineNumber, columns, len(parts))
		}
		for i := range parts {
			values[i], err = strconv.ParseFloat(parts[i], 64)
			if err != nil {
				return errors.Wrapf(err, "%s:%d", filename, lineNumber)
			}
		}
		if err := fn(values); err != nil {
			return errors.Wrapf(err, "%s:%d", filename, lineNumber)
		}
	}

	if err := scanner.Err(); err != nil {
		return errors.Wrapf(err, "error reading %s", filename)
	}
	return nil
}

// ScanSamples streams the "x y z value" lines of filename into fn.
func ScanSamples(filename string, fn func(s octree.Sample) error) error {
	return scanColumns(filename, 4, func(v []float64) error {
		return fn(octree.Sample{P: r3.Vector{X: v[0], Y: v[1], Z: v[2]}, V: v[3]})
	})
}

func ReadSamples(filename string) ([]octree.Sample, error) {
	var samples []octree.Sample
	err := ScanSamples(filename, func(s octree.Sample) error {
		samples = append(samples, s)
		return nil
	})
	return samples, err
}

// ReadPoints reads "x y z" lines.
func ReadPoints(filename string) ([]r3.Vector, error) {
	var points []r3.Vector
	err := scanColumns(filename, 3, func(v []float64) error {
		points = append(points, r3.Vector{X: v[0], Y: v[1], Z: v[2]})
		return nil
	})
	return points, err
}

func GetFilename(filePath string) string {
	base := filepath.Base(filePath)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func OpenFile(makeDir bool, outputPath string, fileSuffix, modelName string) (*os.File, error) {
	if makeDir && fileSuffix != "" && fileSuffix != "." {
		dir := filepath.Join(outputPath, modelName)
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, err
		}
		return os.Create(filepath.Join(dir, fileSuffix+".csv"))
	}
	if outputPath != "" {
		if err := os.MkdirAll(outputPath, 0o750); err != nil {
			return nil, err
		}
	}
	return os.Create(filepath.Join(outputPath, modelName+"_"+fileSuffix+".csv"))
}
