// Package validators resolves the validator names rules refer to.
//
// Rules carry validator names as opaque strings; a scanner resolves them here
// and calls the function on the matched text.
package validators

import (
	"sort"
	"strings"
)

// Func reports whether matched text passes semantic verification.
type Func func(match string) bool

// Lookup resolves validator names.
type Lookup interface {
	Validator(name string) (Func, bool)
}

// Registry is a fixed name -> Func table.
type Registry struct {
	funcs map[string]Func
}

// NewRegistry builds a registry from funcs.
func NewRegistry(funcs map[string]Func) *Registry {
	r := &Registry{funcs: make(map[string]Func, len(funcs))}
	for name, fn := range funcs {
		r.funcs[name] = fn
	}
	return r
}

// Default returns the built-in validators.
func Default() *Registry {
	return NewRegistry(map[string]Func{
		"chinese_mainland_id_number": ChineseMainlandID,
		"luhn":                       Luhn,
	})
}

// Validator returns the function registered under name.
func (r *Registry) Validator(name string) (Func, bool) {
	fn, ok := r.funcs[name]
	return fn, ok
}

// Names returns the registered names, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.funcs))
	for name := range r.funcs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

var idWeights = [17]int{7, 9, 10, 5, 8, 4, 2, 1, 6, 3, 7, 9, 10, 5, 8, 4, 2}

const idCheckDigits = "10X98765432"

// ChineseMainlandID verifies the ISO 7064 MOD 11-2 check digit of an
// 18-character resident identity number.
func ChineseMainlandID(match string) bool {
	id := strings.ToUpper(strings.TrimSpace(match))
	if len(id) != 18 {
		return false
	}

	sum := 0
	for i := 0; i < 17; i++ {
		c := id[i]
		if c < '0' || c > '9' {
			return false
		}
		sum += int(c-'0') * idWeights[i]
	}

	return id[17] == idCheckDigits[sum%11]
}

// Luhn verifies the Luhn checksum of a number, ignoring spaces and dashes.
func Luhn(match string) bool {
	digits := make([]int, 0, len(match))
	for _, r := range match {
		switch {
		case r == ' ' || r == '-':
			continue
		case r >= '0' && r <= '9':
			digits = append(digits, int(r-'0'))
		default:
			return false
		}
	}
	if len(digits) < 2 {
		return false
	}

	sum := 0
	double := false
	for i := len(digits) - 1; i >= 0; i-- {
		d := digits[i]
		if double {
			d *= 2
			if d > 9 {
				d -= 9
			}
		}
		sum += d
		double = !double
	}

	return sum%10 == 0
}
