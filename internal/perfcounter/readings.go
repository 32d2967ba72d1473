package perfcounter

// Lookup is a multi-valued mapping from counter name to the values collected
// for it during one window.
type Lookup interface {
	Values(name string) []float64
}

// Readings is the map-backed Lookup produced by every Source. A nil Readings
// is a valid empty Lookup but cannot be written to; build one with
// NewReadings or make.
type Readings map[string][]float64

// NewReadings returns an empty, writable Readings.
func NewReadings() Readings {
	return make(Readings)
}

// Values returns the values recorded for name, or nil.
func (r Readings) Values(name string) []float64 {
	return r[name]
}

// Add appends a value for name. Like any map write it panics on a nil Readings.
func (r Readings) Add(name string, value float64) {
	r[name] = append(r[name], value)
}

// Set replaces the values for the given counter with a single value.
func (r Readings) Set(n Name, value float64) {
	r[n.String()] = []float64{value}
}

// First returns the first value recorded for n, or 0 when there is none.
//
// More than one value for a name is a collection-side configuration problem;
// the first value wins and the rest are ignored.
func First(lookup Lookup, n Name) float64 {
	if lookup == nil {
		return 0
	}
	values := lookup.Values(n.String())
	if len(values) == 0 {
		return 0
	}
	return values[0]
}
