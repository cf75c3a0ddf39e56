package config

import (
	"strconv"

	"github.com/wildstyl3r/octfield/internal/utils"
)

var unitToSI = map[string]float64{
	"m":    1,    // [m]
	"cm":   1e-2, // [m]
	"mm":   1e-3, // [m]
	"um":   1e-6, // [m]
	"T":    1,    // [T]
	"kG":   1e-1, // [T]
	"mT":   1e-3, // [T]
	"G":    1e-4, // [T]
	"V/m":  1,    // [V/m]
	"kV/m": 1e3,  // [V/m]
	"MV/m": 1e6,  // [V/m]
}

type UnitClass int

const (
	Length UnitClass = iota
	MagneticField
	ElectricField
)

var unitsInClass = map[UnitClass][]string{
	Length:        {"um", "mm", "cm", "m"},
	MagneticField: {"G", "kG", "mT", "T"},
	ElectricField: {"V/m", "kV/m", "MV/m"},
}

var classesOfUnits = map[string]UnitClass{
	"m":    Length,
	"cm":   Length,
	"mm":   Length,
	"um":   Length,
	"T":    MagneticField,
	"kG":   MagneticField,
	"mT":   MagneticField,
	"G":    MagneticField,
	"V/m":  ElectricField,
	"kV/m": ElectricField,
	"MV/m": ElectricField,
}

type UnitElement = struct {
	Class UnitClass
	Power int
}

var defaultUnits = []string{"m", "T", "V/m"}

// sample values carry the unit of their quantity
var QuantityUnits = map[string][]UnitElement{
	"Scalar":        {},
	"MagneticField": {{Class: MagneticField, Power: 1}},
	"ElectricField": {{Class: ElectricField, Power: 1}},
}

var LengthUnit = []UnitElement{{Class: Length, Power: 1}}

func checkUnits(units []string) (extended, conflicts, unknown []string) {
	classes := map[UnitClass]struct{}{}
	for _, unit := range units {
		class, known := classesOfUnits[unit]
		if !known {
			unknown = append(unknown, unit)
			continue
		}
		if _, some := classes[class]; some {
			conflicts = append(conflicts, unit)
		} else {
			classes[class] = struct{}{}
			extended = append(extended, unit)
		}
	}
	for _, unit := range defaultUnits {
		if _, some := classes[classesOfUnits[unit]]; !some {
			extended = append(extended, unit)
		}
	}
	return
}

func SI(v float64, classes []UnitElement, units []string, direct bool) float64 {
	for i := range classes {
		uc := classes[i]
		unit := utils.Intersect(unitsInClass[uc.Class], units)
		if unit == nil {
			continue
		}
		absPower := utils.IntAbs(uc.Power)
		if direct == (uc.Power > 0) {
			for range absPower {
				v *= unitToSI[*unit]
			}
		} else {
			for range absPower {
				v /= unitToSI[*unit]
			}
		}
	}
	return v
}

// UnitLabel renders the unit of classes in units, e.g. "cm" or "T".
func UnitLabel(classes []UnitElement, units []string) string {
	label := ""
	for _, uc := range classes {
		unit := utils.Intersect(unitsInClass[uc.Class], units)
		if unit == nil {
			continue
		}
		if label != "" {
			label += " "
		}
		label += *unit
		if uc.Power != 1 {
			label += "^" + strconv.Itoa(uc.Power)
		}
	}
	if label == "" {
		return "1"
	}
	return label
}
