package model

import (
	"strconv"

	"github.com/spf13/pflag"

	"github.com/wildstyl3r/octfield/internal/config"
	"github.com/wildstyl3r/octfield/internal/utils"
)

type DataItem struct {
	saveFlag   *bool
	fileSuffix string
}

// TableDataItem is one savable CSV. columns and rows receive the output units of the model. Rows of a natural
// table are sorted on their first column before writing; the others keep the order rows returns.
type TableDataItem struct {
	DataItem
	natural bool
	columns func(de *DataExtractor, units []string) []string
	rows    func(de *DataExtractor, units []string) utils.CSV
}

type DataFlags struct {
	all        *bool
	tables     map[string]TableDataItem
	outputPath string
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func withUnit(name string, classes []config.UnitElement, units []string) string {
	return name + " (" + config.UnitLabel(classes, units) + ")"
}

func NewDataFlags(fs *pflag.FlagSet) DataFlags {
	return DataFlags{
		all: fs.Bool("all", false, "save every available output"),
		tables: map[string]TableDataItem{
			"Probes": {
				DataItem: DataItem{
					saveFlag:   fs.BoolP("probes", "p", true, "save probe values"),
					fileSuffix: "probes",
				},
				natural: true,
				columns: func(de *DataExtractor, units []string) []string {
					return []string{
						"probe",
						withUnit("x", config.LengthUnit, units),
						withUnit("y", config.LengthUnit, units),
						withUnit("z", config.LengthUnit, units),
						withUnit("value", de.valueUnits(), units),
						withUnit("distance", config.LengthUnit, units),
						"found",
						"out_of_domain",
					}
				},
				rows: func(de *DataExtractor, units []string) (rows utils.CSV) {
					for i, r := range de.model.Results() {
						row := []string{
							probeID(i),
							formatFloat(config.SI(r.Point.X, config.LengthUnit, units, false)),
							formatFloat(config.SI(r.Point.Y, config.LengthUnit, units, false)),
							formatFloat(config.SI(r.Point.Z, config.LengthUnit, units, false)),
						}
						if r.OutOfDomain {
							row = append(row, "", "", "false", "true")
						} else {
							row = append(row,
								formatFloat(config.SI(r.Match.Value, de.valueUnits(), units, false)),
								formatFloat(config.SI(r.Match.Distance, config.LengthUnit, units, false)),
								strconv.FormatBool(r.Match.Found),
								"false")
						}
						rows = append(rows, row)
					}
					return rows
				},
			},
			"Samples": {
				DataItem: DataItem{
					saveFlag:   fs.BoolP("samples", "s", false, "save indexed samples in tree order"),
					fileSuffix: "samples",
				},
				natural: true,
				columns: func(de *DataExtractor, units []string) []string {
					return []string{
						"sample",
						withUnit("x", config.LengthUnit, units),
						withUnit("y", config.LengthUnit, units),
						withUnit("z", config.LengthUnit, units),
						withUnit("value", de.valueUnits(), units),
					}
				},
				rows: func(de *DataExtractor, units []string) (rows utils.CSV) {
					for i, s := range de.model.Tree().Samples() {
						rows = append(rows, []string{
							"s" + strconv.Itoa(i+1),
							formatFloat(config.SI(s.P.X, config.LengthUnit, units, false)),
							formatFloat(config.SI(s.P.Y, config.LengthUnit, units, false)),
							formatFloat(config.SI(s.P.Z, config.LengthUnit, units, false)),
							formatFloat(config.SI(s.V, de.valueUnits(), units, false)),
						})
					}
					return rows
				},
			},
			"Depths": {
				DataItem: DataItem{
					saveFlag:   fs.BoolP("depths", "d", false, "save histogram of filled leaf depths"),
					fileSuffix: "depths",
				},
				natural: true,
				columns: func(*DataExtractor, []string) []string {
					return []string{"depth", "leaves"}
				},
				rows: func(de *DataExtractor, _ []string) (rows utils.CSV) {
					for _, bin := range de.depths.Binning.Bins {
						rows = append(rows, []string{
							strconv.Itoa(int(bin.XMid())),
							strconv.FormatInt(bin.Entries(), 10),
						})
					}
					return rows
				},
			},
			"Summary": {
				DataItem: DataItem{
					saveFlag:   fs.Bool("summary", true, "save tree and probe statistics"),
					fileSuffix: "summary",
				},
				columns: func(*DataExtractor, []string) []string {
					return []string{"metric", "value", "unit"}
				},
				rows: func(de *DataExtractor, units []string) utils.CSV {
					return de.summary(units)
				},
			},
		},
	}
}

func probeID(i int) string {
	return "q" + strconv.Itoa(i+1)
}

func (df *DataFlags) SetOutputPath(path string) {
	df.outputPath = path
}

func (df *DataFlags) GetOutputPath() string {
	return df.outputPath
}
