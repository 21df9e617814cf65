// Package lotcode composes traceability lot codes from their catalog
// segments. Composition is pure: the consecutive number is allocated
// elsewhere and passed in.
package lotcode

import (
	"fmt"
	"regexp"
	"strconv"
)

// Operation type codes as stored in the operation_types catalog.
const (
	OpReceiving        = "AC-"
	OpNationalShipment = "NL-"
	OpExportShipment   = "EX-"
)

// Key identifies one consecutive counter. Two allocations share a counter
// only when every segment matches.
type Key struct {
	OperationCode string
	OriginCode    string
	ProductCode   string
	WarehouseCode string
	YearCode      string
	Year          int
}

// String renders the key for logs and diagnostics.
func (k Key) String() string {
	return fmt.Sprintf("%s%s%s%s%s/%d",
		k.OperationCode, k.OriginCode, k.ProductCode, k.WarehouseCode, k.YearCode, k.Year)
}

// Compose builds a lot code from its segments:
// {operation}{origin}{product}{warehouse}{yearCode}-{consecutive}.
// The consecutive is zero-padded to three digits; values past 999 widen
// the suffix rather than truncate.
func Compose(operationCode, originCode, productCode, warehouseCode, yearCode string, consecutive int) string {
	return fmt.Sprintf("%s%s%s%s%s-%03d",
		operationCode, originCode, productCode, warehouseCode, yearCode, consecutive)
}

// ComposeKey builds a lot code from a counter key and consecutive.
func ComposeKey(k Key, consecutive int) string {
	return Compose(k.OperationCode, k.OriginCode, k.ProductCode, k.WarehouseCode, k.YearCode, consecutive)
}

// Pattern matches a well-formed lot code: operation prefix ending in a
// dash, four 2-digit segments, a dash, and at least three digits.
var Pattern = regexp.MustCompile(`^[A-Z]{2,3}-\d{8}-\d{3,}$`)

// Valid reports whether code matches the lot code format.
func Valid(code string) bool {
	return Pattern.MatchString(code)
}

// YearCode returns the last two digits of the year, zero-padded.
func YearCode(year int) string {
	return fmt.Sprintf("%02d", year%100)
}

// Consecutive extracts the numeric suffix of a lot code. Returns an error
// when the code does not match the expected format.
func Consecutive(code string) (int, error) {
	m := regexp.MustCompile(`-(\d{3,})$`).FindStringSubmatch(code)
	if m == nil {
		return 0, fmt.Errorf("lot code %q has no consecutive suffix", code)
	}
	return strconv.Atoi(m[1])
}
