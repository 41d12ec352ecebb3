package core

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
)

// CodeLength is the number of decimal digits in a one-time code.
const CodeLength = 6

// generateCode returns a uniformly distributed numeric code of CodeLength
// digits. It reads from crypto/rand with rejection sampling so no digit is
// biased; codes are secrets and math/rand is not acceptable here.
func generateCode() string {
	buf := make([]byte, CodeLength)
	code := make([]byte, 0, CodeLength)
	for len(code) < CodeLength {
		if _, err := rand.Read(buf); err != nil {
			panic("authcore: crypto/rand unavailable: " + err.Error())
		}
		for _, b := range buf {
			// Reject 250-255 so b%10 stays uniform.
			if b >= 250 {
				continue
			}
			code = append(code, '0'+b%10)
			if len(code) == CodeLength {
				break
			}
		}
	}
	return string(code)
}

func sha256Hex(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}

func randB64(n int) string {
	b := make([]byte, n)
	_, _ = rand.Read(b)
	return base64.RawURLEncoding.EncodeToString(b)
}
