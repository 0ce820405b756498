package bandwidth

import (
	"testing"

	"github.com/c2h5oh/datasize"
	"github.com/stretchr/testify/require"
)

func rateConfig(bytesPerSec int) Config {
	return Config{
		DefaultUploadRate:   datasize.ByteSize(bytesPerSec),
		DefaultDownloadRate: datasize.ByteSize(bytesPerSec),
		TokenSize:           datasize.ByteSize(1),
	}
}

func TestLimiterClampGrantsFullRequestWithinBurst(t *testing.T) {
	require := require.New(t)

	l := New(rateConfig(10))
	tag := Tag{Direction: Upload, Group: "swarm-a"}

	require.Equal(5, l.Clamp(tag, 5))
}

func TestLimiterClampCapsAtRemainingTokens(t *testing.T) {
	require := require.New(t)

	l := New(rateConfig(10))
	tag := Tag{Direction: Upload, Group: "swarm-a"}

	require.Equal(8, l.Clamp(tag, 8))
	// Only 2 tokens remain in the bucket; a second request for 8 more bytes
	// is clamped down to what's actually available.
	require.LessOrEqual(l.Clamp(tag, 8), 2)
}

func TestLimiterClampNeverExceedsBurst(t *testing.T) {
	require := require.New(t)

	l := New(rateConfig(10))
	tag := Tag{Direction: Download, Group: ""}

	require.Equal(10, l.Clamp(tag, 1000))
}

func TestLimiterClampDisabledGrantsEverything(t *testing.T) {
	require := require.New(t)

	cfg := rateConfig(1)
	cfg.Disable = true
	l := New(cfg)
	tag := Tag{Direction: Upload}

	require.Equal(1_000_000, l.Clamp(tag, 1_000_000))
}

func TestLimiterClampPerGroupBucketsAreIndependent(t *testing.T) {
	require := require.New(t)

	l := New(rateConfig(5))
	a := Tag{Direction: Upload, Group: "a"}
	b := Tag{Direction: Upload, Group: "b"}

	require.Equal(5, l.Clamp(a, 5))
	// Draining group "a" must not affect group "b"'s independent bucket.
	require.Equal(5, l.Clamp(b, 5))
}

func TestLimiterClampPerDirectionBucketsAreIndependent(t *testing.T) {
	require := require.New(t)

	l := New(rateConfig(5))
	up := Tag{Direction: Upload, Group: "x"}
	down := Tag{Direction: Download, Group: "x"}

	require.Equal(5, l.Clamp(up, 5))
	// Upload and download share a group name but draw from separate
	// buckets, so download should still have its full burst available.
	require.Equal(5, l.Clamp(down, 5))
}

func TestLimiterClampZeroOrNegativeRequestGrantsNothing(t *testing.T) {
	require := require.New(t)

	l := New(rateConfig(10))
	tag := Tag{Direction: Upload}

	require.Equal(0, l.Clamp(tag, 0))
	require.Equal(0, l.Clamp(tag, -5))
}

func TestLimiterGroupOverrideAppliesOverDefault(t *testing.T) {
	require := require.New(t)

	cfg := rateConfig(100)
	cfg.Groups = map[string]GroupConfig{
		"throttled": {UploadRate: datasize.ByteSize(2)},
	}
	l := New(cfg)

	require.Equal(2, l.Clamp(Tag{Direction: Upload, Group: "throttled"}, 1000))
	require.Equal(100, l.Clamp(Tag{Direction: Upload, Group: "unthrottled"}, 1000))
}
