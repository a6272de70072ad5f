package password

import (
	"time"
	"unicode"

	"github.com/MultifactorLab/MultiDirectory/internal/store/model"
)

// Violation messages, in the exact wording the directory reports back to a
// bind or password-change attempt.
const (
	ViolationHistory    = "password history violation"
	ViolationMaxAge     = "password maximum age violation"
	ViolationMinAge     = "password minimum age violation"
	ViolationMinLength  = "password minimum length violation"
	ViolationComplexity = "password complexity violation"
)

// commonPasswords is checked as part of the complexity requirement; it is
// deliberately short, covering the handful of passwords every policy should
// reject outright regardless of character-class composition.
var commonPasswords = map[string]struct{}{
	"password":  {},
	"12345678":  {},
	"qwerty123": {},
	"letmein":   {},
	"admin123":  {},
}

// Validate checks a candidate plaintext password against policy, the
// user's password history, and lastSet (the time pwdLastSet was last
// stamped, zero if the account has never had a password). It returns every
// violated rule; a nil/empty slice means the password is acceptable.
//
// The history slice holds previously used hashes, newest first, and is
// compared with Verify so history entries may use either supported scheme.
func Validate(p model.PasswordPolicy, plaintext string, history []string, lastSet time.Time, now time.Time) []string {
	var violations []string

	if p.HistoryLength > 0 {
		limit := p.HistoryLength
		if limit > len(history) {
			limit = len(history)
		}
		for _, h := range history[:limit] {
			if Verify(plaintext, h) == nil {
				violations = append(violations, ViolationHistory)
				break
			}
		}
	}

	if !lastSet.IsZero() {
		age := now.Sub(lastSet)
		if p.MaxAgeDays > 0 && age > time.Duration(p.MaxAgeDays)*24*time.Hour {
			violations = append(violations, ViolationMaxAge)
		}
		if p.MinAgeDays > 0 && age < time.Duration(p.MinAgeDays)*24*time.Hour {
			violations = append(violations, ViolationMinAge)
		}
	}

	if len(plaintext) < p.MinLength {
		violations = append(violations, ViolationMinLength)
	}

	if p.ComplexityRequired && !meetsComplexity(plaintext) {
		violations = append(violations, ViolationComplexity)
	}

	return violations
}

func meetsComplexity(plaintext string) bool {
	if _, common := commonPasswords[plaintext]; common {
		return false
	}
	var hasUpper, hasLower, hasDigit bool
	for _, r := range plaintext {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsDigit(r):
			hasDigit = true
		}
	}
	return hasUpper && hasLower && hasDigit
}
