package common

// WipeByteArray overwrites the contents of b with zeros. It is used to
// remove keys, content keys and plaintext chunks from memory after use.
//
// If the slice is nil, the function does nothing.
func WipeByteArray(b []byte) {
	if b == nil {
		return
	}
	for i := range b {
		b[i] = 0
	}
}
