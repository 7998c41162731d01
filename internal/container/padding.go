package container

import (
	"crypto/aes"
	"strconv"
)

// pkcs7Unpad strips PKCS#7 padding from the decrypted final block(s).
func pkcs7Unpad(data []byte) ([]byte, error) {
	length := len(data)
	if length == 0 {
		e := newError(KindInvalidPadding, "remove padding")
		e.Expected = "at least one block"
		e.Actual = "empty body"

		return nil, e
	}

	padding := int(data[length-1])
	if padding == 0 || padding > aes.BlockSize || padding > length {
		e := newError(KindInvalidPadding, "remove padding")
		e.Expected = "padding byte in 1.." + strconv.Itoa(aes.BlockSize)
		e.Actual = strconv.Itoa(padding)

		return nil, e
	}

	for i := length - padding; i < length; i++ {
		if data[i] != byte(padding) {
			e := newError(KindInvalidPadding, "remove padding")
			e.Offset = int64(i - (length - padding))
			e.Expected = strconv.Itoa(padding) + " bytes of " + strconv.Itoa(padding)
			e.Actual = "byte " + strconv.Itoa(int(data[i]))

			return nil, e
		}
	}

	return data[:length-padding], nil
}
