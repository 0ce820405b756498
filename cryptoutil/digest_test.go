package cryptoutil

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSha1IncrementalMatchesOneShot(t *testing.T) {
	require := require.New(t)

	parts := [][]byte{[]byte("hello "), []byte("world")}

	s := NewSha1()
	for _, p := range parts {
		s.Add(p)
	}
	require.Equal(DigestSha1(parts...), s.Finish())
}

func TestSha1ClearResets(t *testing.T) {
	require := require.New(t)

	s := NewSha1()
	s.Add([]byte("garbage"))
	s.Clear()
	s.Add([]byte("abc"))

	require.Equal(DigestSha1([]byte("abc")), s.Finish())
}

func TestSha256IncrementalMatchesOneShot(t *testing.T) {
	require := require.New(t)

	s := NewSha256()
	s.Add([]byte("foo"))
	s.Add([]byte("bar"))

	require.Equal(DigestSha256([]byte("foo"), []byte("bar")), s.Finish())
}

func TestBase64RoundTrip(t *testing.T) {
	require := require.New(t)

	for _, s := range []string{"", "a", "hello world", string([]byte{0, 1, 2, 255})} {
		enc := EncodeBase64([]byte(s))
		dec, err := DecodeBase64(enc)
		require.NoError(err)
		require.Equal(s, string(dec))
	}
}

func TestBase64DecodeIgnoresNewlines(t *testing.T) {
	require := require.New(t)

	enc := EncodeBase64([]byte("hello world, this is a longer string to wrap"))
	wrapped := enc[:10] + "\r\n" + enc[10:20] + "\n" + enc[20:]

	dec, err := DecodeBase64(wrapped)
	require.NoError(err)

	clean, err := DecodeBase64(enc)
	require.NoError(err)
	require.Equal(clean, dec)
}

func TestSsha1MatchesRoundTrip(t *testing.T) {
	require := require.New(t)

	hashed := Ssha1("correct horse battery staple")
	require.True(Ssha1Matches(hashed, "correct horse battery staple"))
	require.False(Ssha1Matches(hashed, "wrong password"))
}

func TestFillUsesFallbackWhenOSReadFails(t *testing.T) {
	require := require.New(t)

	orig := osRead
	defer func() { osRead = orig }()
	osRead = func(p []byte) (int, error) {
		return 0, assertErr
	}

	buf := make([]byte, 16)
	Fill(buf)

	allZero := true
	for _, b := range buf {
		if b != 0 {
			allZero = false
		}
	}
	require.False(allZero, "fallback RNG should still produce entropy")
}

var assertErr = &fakeErr{}

type fakeErr struct{}

func (*fakeErr) Error() string { return "forced os entropy failure" }
