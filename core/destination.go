package core

import (
	"fmt"
	"net/mail"
	"regexp"
	"strings"
)

// Method selects the delivery channel for a destination.
type Method string

const (
	MethodPhone Method = "phone"
	MethodEmail Method = "email"
)

var (
	reE164 = regexp.MustCompile(`^\+[1-9]\d{10,14}$`)
	// Supported phone region: Indian mobile numbers, 10 digits starting 6-9.
	reIndianMobile = regexp.MustCompile(`^[6-9]\d{9}$`)
)

// NormalizeDestination validates and canonicalizes a destination for the
// given method. Phones come back in E.164 form (+91...), emails lowercased.
// Failures wrap ErrValidation with a human-readable reason.
func NormalizeDestination(raw string, method Method) (string, error) {
	raw = strings.TrimSpace(raw)
	switch method {
	case MethodPhone:
		return normalizePhone(raw)
	case MethodEmail:
		return normalizeEmail(raw)
	default:
		return "", fmt.Errorf("%w: unknown method %q", ErrValidation, method)
	}
}

func normalizePhone(raw string) (string, error) {
	digits := strings.NewReplacer(" ", "", "-", "").Replace(raw)
	if reIndianMobile.MatchString(digits) {
		digits = "+91" + digits
	}
	if !reE164.MatchString(digits) {
		return "", fmt.Errorf("%w: phone must be 10 digits starting with 6-9, or E.164 (e.g. +919876543210)", ErrValidation)
	}
	return digits, nil
}

func normalizeEmail(raw string) (string, error) {
	addr, err := mail.ParseAddress(raw)
	if err != nil || addr.Address != raw {
		return "", fmt.Errorf("%w: must be a valid email", ErrValidation)
	}
	return strings.ToLower(raw), nil
}

// MethodForDestination guesses the channel from the destination shape.
// Used by the HTTP adapter, where the request carries only a destination.
func MethodForDestination(destination string) Method {
	if strings.Contains(destination, "@") {
		return MethodEmail
	}
	return MethodPhone
}
