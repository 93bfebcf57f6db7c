package vedirect

// Block is a decoded VE.Direct frame: an immutable mapping from ASCII key
// (PID, V, Checksum, ...) to ASCII value. Insertion order carries no
// semantic meaning.
type Block map[string]string
