package config

import (
	"fmt"
	"math"
	"reflect"
	"slices"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"github.com/wildstyl3r/octfield/internal/constants"
)

type Config struct {
	OutputDir string
	Models    map[string]ModelParameters
	ModelParameters

	InputUnits  []string
	OutputUnits []string
}

func LoadConfig(configFileName string) (Config, toml.MetaData, error) {
	var config Config
	configFileName = strings.TrimSuffix(configFileName, ".toml") + ".toml"
	meta, err := toml.DecodeFile(configFileName, &config)
	if err != nil {
		return config, meta, errors.Wrapf(err, "unable to load config %s", configFileName)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return config, meta, errors.Errorf("unknown config keys: %v", undecoded)
	}

	var unitsConflict, unitsUnknown []string
	config.InputUnits, unitsConflict, unitsUnknown = checkUnits(config.InputUnits)
	if len(unitsConflict) > 0 || len(unitsUnknown) > 0 {
		return config, meta, errors.Errorf("found input unit problem: conflicting %v, unknown %v", unitsConflict, unitsUnknown)
	}
	if len(config.OutputUnits) == 0 {
		config.OutputUnits = config.InputUnits
	}
	config.OutputUnits, unitsConflict, unitsUnknown = checkUnits(config.OutputUnits)
	if len(unitsConflict) > 0 || len(unitsUnknown) > 0 {
		return config, meta, errors.Errorf("found output unit problem: conflicting %v, unknown %v", unitsConflict, unitsUnknown)
	}

	if len(config.Models) == 0 {
		return config, meta, errors.New("no models provided")
	}
	return config, meta, nil
}

type ModelParameters struct {
	Samples         []string
	Probes          string
	ProbeGrid       []int // probes per axis, placed at cell centers of the domain
	Quantity        string
	LowerBounds     []float64 // [m]
	UpperBounds     []float64 // [m]
	ScaleFactor     float64
	MaxDepth        int
	SkipOutOfDomain bool
	MakeDir         bool

	_inputUnits  []string
	_outputUnits []string
	_verbose     bool
	_threads     int
}

func (p *ModelParameters) InputUnits() []string {
	return p._inputUnits
}

func (p *ModelParameters) SetInputUnits(u []string) {
	p._inputUnits = u
}

func (p *ModelParameters) OutputUnits() []string {
	return p._outputUnits
}

func (p *ModelParameters) SetOutputUnits(u []string) {
	p._outputUnits = u
}

func (p *ModelParameters) Verbose() bool {
	return p._verbose
}

func (p *ModelParameters) SetVerbosity(verbose bool) {
	p._verbose = verbose
}

func (p *ModelParameters) Threads() int {
	return max(p._threads, 1)
}

func (p *ModelParameters) SetThreads(threads int) {
	p._threads = threads
}

func (p *ModelParameters) HasBounds() bool {
	return len(p.LowerBounds) == 3 && len(p.UpperBounds) == 3
}

func (p *ModelParameters) ValueUnits() []UnitElement {
	return QuantityUnits[p.Quantity]
}

var defaultValues = map[string]any{
	"Quantity":        "Scalar",
	"ScaleFactor":     constants.DefaultScaleFactor,
	"MaxDepth":        constants.DefaultMaxDepth,
	"SkipOutOfDomain": false,
	"MakeDir":         true,
}

var fieldsXor = map[string][]string{
	"Probes":    {"ProbeGrid"},
	"ProbeGrid": {"Probes"},
}

var fieldsAnd = map[string][]string{
	"LowerBounds": {"UpperBounds"},
	"UpperBounds": {"LowerBounds"},
}

var valueUnits = map[string][]UnitElement{
	"LowerBounds": LengthUnit,
	"UpperBounds": LengthUnit,
}

func (modelConfig *ModelParameters) toSI(parameterNames, units []string) {
	modelConfigReflect := reflect.ValueOf(modelConfig).Elem()
	for _, name := range parameterNames {
		field := modelConfigReflect.FieldByName(name)
		switch {
		case field.CanFloat():
			field.SetFloat(SI(field.Float(), valueUnits[name], units, true))
		case field.Kind() == reflect.Slice && field.Type().Elem().Kind() == reflect.Float64:
			for i := range field.Len() {
				field.Index(i).SetFloat(SI(field.Index(i).Float(), valueUnits[name], units, true))
			}
		}
	}
}

func isDefined(path []string, meta *toml.MetaData) bool {
	return meta.IsDefined(path...)
}

func checkAmbiguities(path []string, meta *toml.MetaData) (ambiguities [][]string) {
	for field := range fieldsXor {
		if isDefined(append(slices.Clone(path), field), meta) {
			var foundAlternatives []string
			for _, alternative := range fieldsXor[field] {
				if isDefined(append(slices.Clone(path), alternative), meta) {
					foundAlternatives = append(foundAlternatives, alternative)
				}
			}
			// the table is symmetric, report each pair once
			if len(foundAlternatives) > 0 && field < foundAlternatives[0] {
				ambiguities = append(ambiguities, append([]string{field}, foundAlternatives...))
			}
		}
	}
	return
}

func cloneValue(v reflect.Value) reflect.Value {
	if v.Kind() != reflect.Slice || v.IsNil() {
		return v
	}
	c := reflect.MakeSlice(v.Type(), v.Len(), v.Len())
	reflect.Copy(c, v)
	return c
}

/*
field value priority:
1. local
2. global (unless an alternative is set locally)
3. default

dependencies are checked on the merged set, so a global LowerBounds may pair
with a local UpperBounds
*/

func (modelConfig *ModelParameters) CheckAndUnify(modelName string, config *Config, meta *toml.MetaData) error {
	localPath := []string{"Models", modelName}
	globalAmbiguities := checkAmbiguities(nil, meta)
	localAmbiguities := checkAmbiguities(localPath, meta)
	if len(globalAmbiguities) > 0 {
		return errors.Errorf("found global ambiguities %v", globalAmbiguities)
	}
	if len(localAmbiguities) > 0 {
		return errors.Errorf("model %s: found ambiguities %v", modelName, localAmbiguities)
	}

	var discoveredParameters []string
	excludeFromLoadingDefaultOrOuter := map[string]struct{}{}

	modelConfigReflect := reflect.ValueOf(modelConfig).Elem()
	modelConfigType := modelConfigReflect.Type()
	for i := range modelConfigType.NumField() {
		fieldName := modelConfigType.Field(i).Name
		if !modelConfigType.Field(i).IsExported() {
			continue
		}
		if isDefined(append(slices.Clone(localPath), fieldName), meta) {
			discoveredParameters = append(discoveredParameters, fieldName)
			excludeFromLoadingDefaultOrOuter[fieldName] = struct{}{}
			for _, x := range fieldsXor[fieldName] {
				excludeFromLoadingDefaultOrOuter[x] = struct{}{}
			}
		}
	}

	globalConfigReflect := reflect.ValueOf(&config.ModelParameters).Elem()
	for i := range modelConfigType.NumField() {
		fieldName := modelConfigType.Field(i).Name
		if !modelConfigType.Field(i).IsExported() {
			continue
		}
		if _, some := excludeFromLoadingDefaultOrOuter[fieldName]; !some && meta.IsDefined(fieldName) {
			modelConfigReflect.Field(i).Set(cloneValue(globalConfigReflect.Field(i)))
			discoveredParameters = append(discoveredParameters, fieldName)
			excludeFromLoadingDefaultOrOuter[fieldName] = struct{}{}
			for _, x := range fieldsXor[fieldName] {
				excludeFromLoadingDefaultOrOuter[x] = struct{}{}
			}
		}
	}

	modelConfig.toSI(discoveredParameters, config.InputUnits)

	for fieldName, value := range defaultValues {
		if _, x := excludeFromLoadingDefaultOrOuter[fieldName]; !x {
			modelConfigReflect.FieldByName(fieldName).Set(reflect.ValueOf(value))
		}
	}

	modelConfig._inputUnits = config.InputUnits
	modelConfig._outputUnits = config.OutputUnits

	return modelConfig.validate(modelName, discoveredParameters)
}

func (modelConfig *ModelParameters) validate(modelName string, definedFields []string) (err error) {
	problem := func(format string, args ...any) {
		err = multierr.Append(err, fmt.Errorf("model %s: "+format, append([]any{modelName}, args...)...))
	}

	for _, field := range definedFields {
		for _, requirement := range fieldsAnd[field] {
			if !slices.Contains(definedFields, requirement) {
				problem("parameter %s requires %s", field, requirement)
			}
		}
	}

	if len(modelConfig.Samples) == 0 {
		problem("no sample files")
	}
	if _, known := QuantityUnits[modelConfig.Quantity]; !known {
		problem("unknown quantity %q", modelConfig.Quantity)
	}
	if modelConfig.MaxDepth < 0 {
		problem("MaxDepth must not be negative, got %d", modelConfig.MaxDepth)
	}
	if math.IsNaN(modelConfig.ScaleFactor) || math.IsInf(modelConfig.ScaleFactor, 0) {
		problem("ScaleFactor must be finite")
	}
	if len(modelConfig.LowerBounds) > 0 || len(modelConfig.UpperBounds) > 0 {
		if len(modelConfig.LowerBounds) != 3 || len(modelConfig.UpperBounds) != 3 {
			problem("bounds need 3 components, got %d and %d", len(modelConfig.LowerBounds), len(modelConfig.UpperBounds))
		} else {
			for axis := range 3 {
				if modelConfig.LowerBounds[axis] > modelConfig.UpperBounds[axis] {
					problem("lower bound %v exceeds upper bound %v on axis %d",
						modelConfig.LowerBounds[axis], modelConfig.UpperBounds[axis], axis)
				}
			}
		}
	}
	if len(modelConfig.ProbeGrid) > 0 {
		if len(modelConfig.ProbeGrid) != 3 {
			problem("ProbeGrid needs 3 components, got %d", len(modelConfig.ProbeGrid))
		}
		for _, n := range modelConfig.ProbeGrid {
			if n < 1 {
				problem("ProbeGrid counts must be positive, got %v", modelConfig.ProbeGrid)
				break
			}
		}
	}
	return err
}
