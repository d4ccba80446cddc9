package types

// Param names one measured water-quality parameter.
type Param string

// Parameters tracked by every record.
const (
	PH          Param = "ph"
	Turbidity   Param = "turbidity"
	Temperature Param = "temperature"
)

// Params is the fixed reporting order.
var Params = []Param{PH, Turbidity, Temperature}

// Valid reports whether p is one of the known parameters.
func (p Param) Valid() bool {
	switch p {
	case PH, Turbidity, Temperature:
		return true
	default:
		return false
	}
}

// Record is one validated row of measurements.
type Record struct {
	Timestamp   string
	Location    string
	PH          float64
	Turbidity   float64 // NTU
	Temperature float64 // °C

	// Extra holds any additional columns from the input, keyed by header name.
	Extra map[string]string
}

// Value returns the measurement for p. The boolean is false for unknown params.
func (r Record) Value(p Param) (float64, bool) {
	switch p {
	case PH:
		return r.PH, true
	case Turbidity:
		return r.Turbidity, true
	case Temperature:
		return r.Temperature, true
	default:
		return 0, false
	}
}

// Alert is one out-of-range observation. A record may produce several.
type Alert struct {
	Timestamp string
	Location  string
	Param     Param
	Value     float64
}
