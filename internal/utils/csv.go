package utils

import (
	"encoding/csv"
	"sort"

	"github.com/facette/natsort"
	"go.uber.org/multierr"
)

type CSV [][]string

func (data CSV) Less(i, j int) bool {
	return natsort.Compare(data[i][0], data[j][0])
}

func (data CSV) Len() int {
	return len(data)
}

func (data CSV) Swap(i, j int) {
	data[i], data[j] = data[j], data[i]
}

// SortNatural orders the rows naturally on their first column ("q2" before "q10").
func (data CSV) SortNatural() {
	sort.Stable(data)
}

// WriteAsCSV writes columns followed by data in the order given.
func WriteAsCSV(data CSV, makeDir bool, path, subpath, filename string, columns []string) (err error) {
	file, err := OpenFile(makeDir, path, subpath, GetFilename(filename))
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Append(err, file.Close())
	}()

	w := csv.NewWriter(file)
	if err := w.Write(columns); err != nil {
		return err
	}
	if err := w.WriteAll(data); err != nil {
		return err
	}
	return w.Error()
}
