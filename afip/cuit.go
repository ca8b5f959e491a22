package afip

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
)

// CUIT is Argentina's unique taxpayer identifier: eleven digits, the last
// one a checksum.
type CUIT uint64

var (
	ErrInvalidCUITFormat   = errors.New("CUIT must be 11 digits")
	ErrInvalidCUITChecksum = errors.New("invalid CUIT checksum")
)

var cuitNonDigits = regexp.MustCompile(`\D`)

// ParseCUIT accepts "20-32964233-0" style strings as well as bare digits.
func ParseCUIT(s string) (CUIT, error) {
	digits := cuitNonDigits.ReplaceAllString(s, "")
	if len(digits) != 11 {
		return 0, ErrInvalidCUITFormat
	}
	n, err := strconv.ParseUint(digits, 10, 64)
	if err != nil {
		return 0, ErrInvalidCUITFormat
	}
	c := CUIT(n)
	if !c.Valid() {
		return 0, ErrInvalidCUITChecksum
	}
	return c, nil
}

// Valid reports whether the check digit matches the mod-11 algorithm.
func (c CUIT) Valid() bool {
	s := fmt.Sprintf("%011d", uint64(c))
	if len(s) != 11 {
		return false
	}

	multipliers := []int{5, 4, 3, 2, 7, 6, 5, 4, 3, 2}
	sum := 0
	for i := 0; i < 10; i++ {
		sum += int(s[i]-'0') * multipliers[i]
	}

	check := 11 - sum%11
	switch check {
	case 11:
		check = 0
	case 10:
		// no valid CUIT produces 10; AFIP assigns a different prefix instead
		return false
	}
	return check == int(s[10]-'0')
}

func (c CUIT) String() string {
	return strconv.FormatUint(uint64(c), 10)
}
