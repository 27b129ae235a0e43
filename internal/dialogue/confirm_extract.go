package dialogue

import "strings"

// Confirmation is the outcome of yes/no extraction.
type Confirmation int

const (
	ConfirmationNone Confirmation = iota
	ConfirmationYes
	ConfirmationNo
)

var confirmPhrases = map[string]struct{}{
	"yes": {}, "y": {}, "confirm": {}, "ok": {}, "okay": {},
	"sure": {}, "proceed": {}, "book it": {},
}

var cancelPhrases = map[string]struct{}{
	"no": {}, "n": {}, "cancel": {}, "don't": {}, "dont": {},
	"not": {}, "stop": {}, "nevermind": {}, "never mind": {},
}

// ExtractConfirmation matches the trimmed, case-insensitive input against the
// closed confirmation and cancellation phrase sets. Anything else is neither.
func ExtractConfirmation(text string) Confirmation {
	phrase := strings.ToLower(strings.TrimSpace(text))
	phrase = strings.TrimRight(phrase, ".!? ")
	if _, ok := confirmPhrases[phrase]; ok {
		return ConfirmationYes
	}
	if _, ok := cancelPhrases[phrase]; ok {
		return ConfirmationNo
	}
	return ConfirmationNone
}
