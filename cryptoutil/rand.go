package cryptoutil

import (
	"crypto/rand"
	"math/big"
	mathrand "math/rand"
	"sync"
	"time"
)

// osRead is swapped out in tests to force the CSPRNG fallback path.
var osRead = rand.Read

var fallback = struct {
	sync.Mutex
	r *mathrand.Rand
}{r: mathrand.New(mathrand.NewSource(time.Now().UnixNano()))}

// Fill draws len(buf) bytes from the OS entropy source into buf. If the OS
// call fails, Fill falls back to a deterministic PRNG rather than returning
// an error — a torrent engine would rather generate a weak peer id/key than
// refuse to announce.
func Fill(buf []byte) {
	if n, err := osRead(buf); err == nil && n == len(buf) {
		return
	}
	fallback.Lock()
	defer fallback.Unlock()
	fallback.r.Read(buf)
}

const saltAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789./"

// RandomSalt returns a random 8-character salt drawn from [A-Za-z0-9./].
func RandomSalt() string {
	return randomAlphabetString(8)
}

func randomAlphabetString(n int) string {
	out := make([]byte, n)
	max := big.NewInt(int64(len(saltAlphabet)))
	var buf [8]byte
	for i := range out {
		Fill(buf[:])
		idx := new(big.Int).Mod(new(big.Int).SetBytes(buf[:]), max).Int64()
		out[i] = saltAlphabet[idx]
	}
	return string(out)
}
