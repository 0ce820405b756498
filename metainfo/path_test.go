package metainfo

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSanitizePathComponentReplacesIllegalChars(t *testing.T) {
	require := require.New(t)

	require.Equal("a_b_c", sanitizePathComponent("a<b>c"))
	require.Equal("a_b", sanitizePathComponent("a/b"))
}

func TestSanitizePathComponentTrimsWhitespaceAndDots(t *testing.T) {
	require := require.New(t)

	require.Equal("name", sanitizePathComponent("  name..  "))
}

func TestSanitizePathComponentReservedNames(t *testing.T) {
	require := require.New(t)

	require.Equal("_CON", sanitizePathComponent("CON"))
	require.Equal("_con", sanitizePathComponent("con"))
	require.Equal("_NUL.txt", sanitizePathComponent("NUL.txt"))
}

// TestSanitizePathScenario6 is spec.md §8 scenario 6: ["foo", "CON", "bar."]
// must sanitize to "foo/_CON/bar" — the reserved name prefixed, not suffixed.
func TestSanitizePathScenario6(t *testing.T) {
	require := require.New(t)

	got, err := SanitizePath([]string{"foo", "CON", "bar."})
	require.NoError(err)
	require.Equal("foo/_CON/bar", got)
}

func TestSanitizePathComponentIsIdempotent(t *testing.T) {
	require := require.New(t)

	once := sanitizePathComponent("weird<name>.txt")
	twice := sanitizePathComponent(once)
	require.Equal(once, twice)
}

func TestSanitizePathNeutralizesDotDotComponents(t *testing.T) {
	require := require.New(t)

	p, err := SanitizePath([]string{"..", "etc", "passwd"})
	require.NoError(err)
	require.NotContains(p, "..")
}

func TestSanitizePathJoinsComponents(t *testing.T) {
	require := require.New(t)

	p, err := SanitizePath([]string{"a", "b", "c.txt"})
	require.NoError(err)
	require.Equal("a/b/c.txt", p)
}
