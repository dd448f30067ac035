// Package anonymize derives display-only pseudonyms for auction participants.
//
// The tokens are intentionally non-cryptographic: they exist to stop casual
// correlation of bidders across the UI, not to provide unlinkability. Real
// identity exchange happens through the reveal gate outside this service.
package anonymize

import (
	"fmt"
	"hash/fnv"
	"strings"
)

const (
	tokenMin  = 10000
	tokenSpan = 90000 // tokens are 5-digit: [10000, 99999]

	maskMarker = "***"
)

// PseudonymToken returns a stable 5-digit numeric token for realID within the
// given scope (auction or conversation id). The same pair always yields the
// same token; the same realID under a different scope is expected to yield a
// different-looking token, which prevents cross-auction correlation.
func PseudonymToken(scopeID, realID string) int {
	h := fnv.New32a()
	// The separator keeps ("ab","c") and ("a","bc") from colliding.
	h.Write([]byte(scopeID))
	h.Write([]byte{0})
	h.Write([]byte(realID))
	return tokenMin + int(h.Sum32()%tokenSpan)
}

// Pseudonym returns the display form of PseudonymToken.
func Pseudonym(scopeID, realID string) string {
	return fmt.Sprintf("Bidder %d", PseudonymToken(scopeID, realID))
}

// MaskName obscures a display name, keeping the first and last rune of each
// space-separated token: "Yossi Cohen" -> "Y***i C***n". Single-rune tokens
// are replaced entirely. Display only; carries no uniqueness guarantee.
func MaskName(fullName string) string {
	tokens := strings.Fields(fullName)
	masked := make([]string, 0, len(tokens))
	for _, tok := range tokens {
		runes := []rune(tok)
		if len(runes) < 2 {
			masked = append(masked, maskMarker)
			continue
		}
		masked = append(masked, string(runes[0])+maskMarker+string(runes[len(runes)-1]))
	}
	return strings.Join(masked, " ")
}
