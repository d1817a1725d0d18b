package domain

import "fmt"

// MicrosPerUnit is the number of micros in one currency unit.
const MicrosPerUnit = 1_000_000

// Micros is a fixed-point monetary amount where 1,000,000 micros = 1 currency unit.
// Every amount inside the service is kept in micros; conversion to floats only
// happens when rendering text or computing ratios.
type Micros int64

// Units returns the amount in whole currency units.
func (m Micros) Units() float64 {
	return float64(m) / MicrosPerUnit
}

// String formats the amount with two decimals, e.g. "1340.00".
func (m Micros) String() string {
	return fmt.Sprintf("%.2f", m.Units())
}
