package common

// WipeByteArray overwrites the buffer with zeros. Use it to clear
// passwords and other secrets once they are no longer needed.
func WipeByteArray(buf []byte) {
	for i := range buf {
		buf[i] = 0
	}
}
