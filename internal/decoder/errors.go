package decoder

import "errors"

// Decode-stage errors. All of them are fatal to the event being decoded but
// never to the pipeline: callers log and skip the transaction.
var (
	// ErrMalformedInstruction is returned when the instruction is not a
	// recognized pool-creation opcode, the account list is shorter than the
	// layout requires, or reserve amounts cannot be read at their offsets.
	ErrMalformedInstruction = errors.New("malformed pool-creation instruction")

	// ErrUnsupportedLayoutVariant is returned when the account layout matches
	// neither of the two supported initialize2 variants.
	ErrUnsupportedLayoutVariant = errors.New("unsupported account layout variant")

	// ErrIncompleteAccountData is returned when an auxiliary account (pool
	// state or market state) is shorter than the layout requires.
	ErrIncompleteAccountData = errors.New("incomplete account data")
)
