// Package utils provides small, generic helper functions used across
// different layers of the application, mostly for reading query parameters.
// These utilities are independent of domain or business logic.
package utils

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/tbourn/smm-pipeline/internal/sysutil"
)

// AtoiDefault converts a string to an int using strconv.Atoi.
// If the string is empty or cannot be parsed as an integer,
// it returns the provided default value instead.
//
// Example:
//
//	n := utils.AtoiDefault("42", 0) // returns 42
//	n = utils.AtoiDefault("", 10)   // returns 10
//	n = utils.AtoiDefault("x", 5)   // returns 5
func AtoiDefault(s string, def int) int {
	if s == "" {
		return def
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	return def
}

// ParseInt is the strict variant of AtoiDefault: an empty string yields def,
// anything else must be an integer.
func ParseInt(name, s string, def int) (int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer", name)
	}
	return n, nil
}

// ParseBoolDefault reads a boolean flag. Blank yields def; otherwise the
// truthy spellings of sysutil.IsTruthy are true and everything else false.
func ParseBoolDefault(s string, def bool) bool {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return sysutil.IsTruthy(s)
}
