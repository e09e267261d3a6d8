// Package codec converts key material, nonces and other binary values to and
// from the text encodings stored in file metadata rows.
package codec

import (
	"encoding/base64"
	"encoding/hex"
	"fmt"

	"github.com/dmitrijs2005/lockbox/internal/common"
)

// EncodeBase64 returns the standard, padded base64 encoding of b.
func EncodeBase64(b []byte) string {
	return base64.StdEncoding.EncodeToString(b)
}

// DecodeBase64 reverses EncodeBase64. Characters outside the alphabet or a
// bad padding produce an error wrapping common.ErrFormat.
func DecodeBase64(s string) ([]byte, error) {
	b, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("%w: base64: %v", common.ErrFormat, err)
	}
	return b, nil
}

// EncodeHex returns the lowercase hex encoding of b.
func EncodeHex(b []byte) string {
	return hex.EncodeToString(b)
}

// DecodeHex reverses EncodeHex. Upper-case digits are accepted; odd length or
// non-hex characters produce an error wrapping common.ErrFormat.
func DecodeHex(s string) ([]byte, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("%w: hex: %v", common.ErrFormat, err)
	}
	return b, nil
}
