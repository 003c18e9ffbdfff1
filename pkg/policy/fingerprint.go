package policy

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

const fingerprintLength = 32

// Fingerprint derives a stable, non-reversible client key from the IP
func Fingerprint(key []byte, ip string) string {
	mac := hmac.New(sha256.New, key)
	mac.Write([]byte(ip))
	return hex.EncodeToString(mac.Sum(nil))[:fingerprintLength]
}
