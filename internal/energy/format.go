package energy

import (
	"fmt"
	"strconv"
	"strings"
)

// Decimal separators accepted by FormatKWh.
const (
	SeparatorComma  = ","
	SeparatorPeriod = "."
)

// FormatKWh renders v in its shortest exact decimal form using sep as the
// decimal separator. No digit grouping is applied: 3.5 with "," is "3,5",
// 4 is "4" and 1234.5 is "1234,5".
func FormatKWh(v float64, sep string) string {
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if sep != SeparatorPeriod {
		s = strings.Replace(s, ".", sep, 1)
	}
	return s
}

// OverloadMessage returns the alert text for a usage figure.
func OverloadMessage(usageKWh float64, sep string) string {
	return fmt.Sprintf("Overload detected: %s kWh used!", FormatKWh(usageKWh, sep))
}

// ValidateSeparator checks sep is "," or ".".
func ValidateSeparator(sep string) error {
	switch sep {
	case SeparatorComma, SeparatorPeriod:
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrInvalidSeparator, sep)
	}
}
