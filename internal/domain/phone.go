/**
 * @description
 * E.164 phone number validation shared by the submission controller (client
 * phone precondition) and the call scheduling adapter (both phones).
 */

package domain

import "regexp"

// E.164: a plus sign followed by 9 to 15 digits, first digit non-zero.
var e164Pattern = regexp.MustCompile(`^\+[1-9][0-9]{8,14}$`)

// IsValidE164 reports whether the phone number is a syntactically valid
// E.164 number.
func IsValidE164(phone string) bool {
	return e164Pattern.MatchString(phone)
}
