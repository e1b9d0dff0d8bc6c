// Package services – payload validation
//
// ValidateApartment turns a raw webhook body into a normalized
// domain.Apartment or rejects it with a field-level *ValidationError.
//
// Strings are NFC-normalized, trimmed and clipped by rune count. Numeric
// bounds are checked with the validator engine gin uses for request binding,
// so the rules read the same as binding tags elsewhere.
package services

import (
	"encoding/json"
	"strings"
	"unicode/utf8"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"golang.org/x/text/unicode/norm"

	"github.com/tbourn/realty-dashboard/internal/domain"
)

// Field limits for sanitized strings, in runes.
const (
	MaxIDRunes     = 50
	MaxAgencyRunes = 100
)

// numericRule bounds area and price: strictly positive, at most 1000.
const numericRule = "gt=0,lte=1000"

// ValidateApartment parses body and applies the ingestion rules:
//
//   - apartment_id, agency: required strings; normalized, trimmed, clipped
//     to MaxIDRunes / MaxAgencyRunes. Over-long values are truncated, not
//     rejected.
//   - area, price: optional numbers with 0 < x <= 1000.
//   - status: optional; null or "" means unknown, otherwise one of the
//     accepted literals, translated to the canonical code.
//
// The returned Apartment has no UpdatedAt; the store assigns it.
func ValidateApartment(body []byte) (domain.Apartment, error) {
	var raw map[string]any
	if err := json.Unmarshal(body, &raw); err != nil || raw == nil {
		return domain.Apartment{}, invalid("body", "request body must be a JSON object")
	}

	var a domain.Apartment

	id, ok := sanitizeString(raw["apartment_id"], MaxIDRunes)
	if !ok {
		return domain.Apartment{}, invalid("apartment_id", "apartment_id is required and must be a string")
	}
	a.ID = id

	agency, ok := sanitizeString(raw["agency"], MaxAgencyRunes)
	if !ok {
		return domain.Apartment{}, invalid("agency", "agency is required and must be a string")
	}
	a.Agency = agency

	var err error
	if a.Area, err = boundedNumber(raw, "area"); err != nil {
		return domain.Apartment{}, err
	}
	if a.Price, err = boundedNumber(raw, "price"); err != nil {
		return domain.Apartment{}, err
	}

	if v, present := raw["status"]; present && v != nil {
		s, isStr := v.(string)
		if !isStr {
			return domain.Apartment{}, invalid("status", statusMessage())
		}
		if s != "" {
			st, known := domain.ParseStatusLiteral(s)
			if !known {
				return domain.Apartment{}, invalid("status", statusMessage())
			}
			a.Status = st
		}
	}

	return a, nil
}

// sanitizeString extracts a non-empty string, then normalizes, trims and
// clips it. It reports false for missing, non-string or blank values.
func sanitizeString(v any, max int) (string, bool) {
	s, ok := v.(string)
	if !ok {
		return "", false
	}
	s = strings.TrimSpace(norm.NFC.String(s))
	if s == "" {
		return "", false
	}
	if utf8.RuneCountInString(s) > max {
		s = strings.TrimSpace(string([]rune(s)[:max]))
	}
	return s, true
}

// boundedNumber returns nil when field is absent and rejects JSON null,
// non-numbers and values outside numericRule.
func boundedNumber(raw map[string]any, field string) (*float64, error) {
	v, present := raw[field]
	if !present {
		return nil, nil
	}
	f, ok := v.(float64)
	if !ok || numberValidator().Var(f, numericRule) != nil {
		return nil, invalid(field, field+" must be a number greater than 0 and at most 1000")
	}
	return &f, nil
}

// numberValidator returns gin's shared validator engine.
func numberValidator() *validator.Validate {
	return binding.Validator.Engine().(*validator.Validate)
}

func statusMessage() string {
	return "status must be one of: " + strings.Join(domain.StatusLiterals, ", ")
}
