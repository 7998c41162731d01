package decipher

// State is a step of a decryption run.
type State int

const (
	// StateInit is the state before anything was read.
	StateInit State = iota
	// StateHeaderParsed means the header was read and its magic and digest are valid.
	StateHeaderParsed
	// StateKeyDerived means the cipher was set up from the secret.
	StateKeyDerived
	// StateStreaming means the body is being decrypted chunk by chunk.
	StateStreaming
	// StateFinalizing means the last chunk is being decrypted and unpadded.
	StateFinalizing
	// StateVerified means the plaintext digest matched the header.
	StateVerified
	// StateMismatched means the plaintext digest differs from the header.
	StateMismatched
	// StateCommitted is terminal: the output is kept and the source consumed if requested.
	StateCommitted
	// StateRolledBack is terminal: the digest did not match and the output was removed.
	StateRolledBack
	// StateFailed is terminal: the run stopped on an error and the source was kept.
	StateFailed
)

var stateNames = [...]string{
	StateInit:         "init",
	StateHeaderParsed: "header-parsed",
	StateKeyDerived:   "key-derived",
	StateStreaming:    "streaming",
	StateFinalizing:   "finalizing",
	StateVerified:     "verified",
	StateMismatched:   "mismatched",
	StateCommitted:    "committed",
	StateRolledBack:   "rolled-back",
	StateFailed:       "failed",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "unknown"
	}

	return stateNames[s]
}

// Terminal reports whether no further transition can happen.
func (s State) Terminal() bool {
	return s == StateCommitted || s == StateRolledBack || s == StateFailed
}
