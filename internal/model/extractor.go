package model

import (
	"math"
	"slices"
	"strconv"

	"go-hep.org/x/hep/hbook"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/stat"

	"github.com/wildstyl3r/octfield/internal/config"
	"github.com/wildstyl3r/octfield/internal/constants"
	"github.com/wildstyl3r/octfield/internal/octree"
	"github.com/wildstyl3r/octfield/internal/utils"
)

type DataExtractor struct {
	model *Model
	stats octree.Stats

	depths      *hbook.H1D // filled leaves per depth
	leafDepths  []int
	bucketSizes []int

	values    []float64 // found probe values, scaled, SI
	distances []float64 // sorted
	found     []int     // probe index of values[i]

	outOfDomain int
	degenerate  int

	valueMean, valueVariance    float64
	distanceMedian, distanceP95 float64
}

func NewDataExtractor(model *Model) *DataExtractor {
	de := DataExtractor{
		model: model,
		stats: model.Tree().Stats(),
	}

	de.depths = hbook.NewH1D(de.stats.MaxDepth+1, -0.5, float64(de.stats.MaxDepth)+0.5)
	model.Tree().Root().Walk(func(n *octree.Node) bool {
		if n.Kind() == octree.LeafNodeFilled {
			de.depths.Fill(float64(n.Depth()), 1)
			de.leafDepths = append(de.leafDepths, n.Depth())
			if k := len(n.Samples()); k > 1 {
				de.bucketSizes = append(de.bucketSizes, k)
			}
		}
		return true
	})

	for i, r := range model.Results() {
		switch {
		case r.OutOfDomain:
			de.outOfDomain++
		case !r.Match.Found:
			de.degenerate++
		default:
			de.values = append(de.values, r.Match.Value)
			de.distances = append(de.distances, r.Match.Distance)
			de.found = append(de.found, i)
		}
	}

	de.valueMean = utils.Average(de.values)
	de.valueVariance = utils.Variance(de.values, true)
	de.distanceMedian, de.distanceP95 = math.NaN(), math.NaN()
	if len(de.distances) > 0 {
		slices.Sort(de.distances)
		de.distanceMedian = stat.Quantile(0.5, stat.Empirical, de.distances, nil)
		de.distanceP95 = stat.Quantile(constants.Quantile95, stat.Empirical, de.distances, nil)
	}

	if model.Parameters.Verbose() {
		model.logger.Info("probe statistics",
			zap.Int("found", len(de.values)),
			zap.Float64("valueMean", de.valueMean),
			zap.Float64("valueStdDev", math.Sqrt(de.valueVariance)),
			zap.Float64("distanceMedian", de.distanceMedian),
			zap.Float64("distanceP95", de.distanceP95))
	}
	return &de
}

func (de *DataExtractor) valueUnits() []config.UnitElement {
	return de.model.Parameters.ValueUnits()
}

// summary holds one row per metric: name, value in output units, unit label.
func (de *DataExtractor) summary(units []string) utils.CSV {
	count := func(name string, v int) []string {
		return []string{name, strconv.Itoa(v), ""}
	}
	measure := func(name string, v float64, classes []config.UnitElement) []string {
		return []string{name, formatFloat(config.SI(v, classes, units, false)), config.UnitLabel(classes, units)}
	}

	rows := utils.CSV{
		count("samples", de.stats.Samples),
		count("nodes", de.stats.Nodes),
		count("internal_nodes", de.stats.Internal),
		count("empty_leaves", de.stats.EmptyLeaves),
		count("filled_leaves", de.stats.FilledLeaves),
		count("bucket_leaves", de.stats.Buckets),
		count("bucket_samples", utils.SumSlice(de.bucketSizes)),
		{"mean_leaf_depth", formatFloat(utils.Average(de.leafDepths)), ""},
		count("max_depth", de.stats.MaxDepth),
		count("probes", len(de.model.Results())),
		count("probes_found", len(de.values)),
		count("probes_out_of_domain", de.outOfDomain),
		count("probes_no_data", de.degenerate),
		measure("value_mean", de.valueMean, de.valueUnits()),
		measure("value_std_dev", math.Sqrt(de.valueVariance), de.valueUnits()),
		measure("distance_median", de.distanceMedian, config.LengthUnit),
		measure("distance_p95", de.distanceP95, config.LengthUnit),
	}
	if len(de.values) > 0 {
		magnitudes := make([]float64, len(de.values))
		for i, v := range de.values {
			magnitudes[i] = math.Abs(v)
		}
		k := utils.Argmax(magnitudes)
		rows = append(rows,
			[]string{"max_abs_value_probe", probeID(de.found[k]), ""},
			measure("max_abs_value", de.values[k], de.valueUnits()))
	}
	return rows
}

// Save writes every output whose flag is set, or all of them with --all. A failing output does not stop the
// others; the errors are combined.
func (de *DataExtractor) Save(modelName string, df DataFlags) (err error) {
	units := de.model.Parameters.OutputUnits()
	for name, output := range df.tables {
		if !*output.saveFlag && !*df.all {
			continue
		}
		rows := output.rows(de, units)
		if output.natural {
			rows.SortNatural()
		}
		saveErr := utils.WriteAsCSV(rows, de.model.Parameters.MakeDir,
			df.outputPath, output.fileSuffix, modelName, output.columns(de, units))
		if saveErr != nil {
			err = multierr.Append(err, saveErr)
			de.model.logger.Error("unable to save "+name, zap.Error(saveErr))
			continue
		}
		de.model.logger.Debug(name + " saved")
	}
	return err
}
