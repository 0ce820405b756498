package cryptoutil

import (
	"crypto/sha1"
	"crypto/subtle"
	"encoding/hex"
	"strings"
)

// ssha1Prefix marks a transmission-style salted-SHA1 password hash.
const ssha1Prefix = "{"

// Ssha1 hashes plaintext with a fresh random salt and returns
// "{" + hex(sha1(plaintext + salt)) + salt, matching the RPC password format.
func Ssha1(plaintext string) string {
	salt := RandomSalt()
	return ssha1Prefix + sha1Hex(plaintext, salt) + salt
}

// Ssha1Matches recomputes the hash of plaintext using the salt embedded in
// hashed and compares in constant time.
func Ssha1Matches(hashed, plaintext string) bool {
	if !strings.HasPrefix(hashed, ssha1Prefix) {
		return false
	}
	rest := hashed[len(ssha1Prefix):]
	if len(rest) < sha1.Size*2 {
		return false
	}
	digestHex, salt := rest[:sha1.Size*2], rest[sha1.Size*2:]
	expected := sha1Hex(plaintext, salt)
	return subtle.ConstantTimeCompare([]byte(expected), []byte(digestHex)) == 1
}

func sha1Hex(plaintext, salt string) string {
	sum := sha1.Sum([]byte(plaintext + salt))
	return hex.EncodeToString(sum[:])
}
