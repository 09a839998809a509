package decoder

import "strings"

// JupiterAMM routes through Raydium pools; its transactions mention the
// Raydium program but are not pool creations we want to act on.
const JupiterAMM = "JUP6bkbZbjS1jKKwapdHNy74zcZ3tLUZoi5QNyVTaV4"

// Log substrings emitted by the two pool-creation instruction paths.
var poolCreationMarkers = []string{
	"InitializeInstruction2",
	"CreatePool",
}

// IsPoolCreationLog reports whether any log line indicates a pool-creation
// instruction. Everything else on the program's log stream is ignored.
func IsPoolCreationLog(logs []string) bool {
	for _, line := range logs {
		for _, marker := range poolCreationMarkers {
			if strings.Contains(line, marker) {
				return true
			}
		}
	}
	return false
}

// MentionsAccount reports whether the account-key list contains the address.
func MentionsAccount(accountKeys []string, address string) bool {
	for _, key := range accountKeys {
		if key == address {
			return true
		}
	}
	return false
}
