package announce

import (
	"fmt"
	"net"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kraken-torrent/engine/core"
)

func bstr(s string) string {
	return fmt.Sprintf("%d:%s", len(s), s)
}

func TestParseResponseCompactV4Peers(t *testing.T) {
	require := require.New(t)

	compact := string([]byte{192, 168, 1, 1, 0x1A, 0xE1}) // 192.168.1.1:6881
	raw := "d" +
		"8:intervali1800e" +
		"8:completei5e" +
		"10:incompletei2e" +
		"5:peers" + bstr(compact) +
		"e"

	resp, err := parseResponse([]byte(raw))
	require.NoError(err)
	require.Equal(1800, resp.Interval)
	require.Equal(5, resp.Complete)
	require.Equal(2, resp.Incomplete)
	require.Len(resp.Peers, 1)
	require.True(resp.Peers[0].IP.Equal(net.IPv4(192, 168, 1, 1)))
	require.Equal(uint16(6881), resp.Peers[0].Port)
}

func TestParseResponseDictListPeers(t *testing.T) {
	require := require.New(t)

	var peerID core.PeerID
	for i := range peerID {
		peerID[i] = byte(i)
	}
	peerIDStr := string(peerID[:])

	raw := "d" +
		"8:intervali900e" +
		"5:peers" + "l" +
		"d" + "7:peer id" + bstr(peerIDStr) + "2:ip" + bstr("10.0.0.5") + "4:porti51413e" + "e" +
		"e" +
		"e"

	resp, err := parseResponse([]byte(raw))
	require.NoError(err)
	require.Equal(900, resp.Interval)
	require.Len(resp.Peers, 1)
	require.True(resp.Peers[0].IP.Equal(net.ParseIP("10.0.0.5")))
	require.Equal(uint16(51413), resp.Peers[0].Port)
	require.NotNil(resp.Peers[0].ID)
	require.Equal(peerID, *resp.Peers[0].ID)
}

func TestParseResponseFailureReason(t *testing.T) {
	require := require.New(t)

	raw := "d" + "14:failure reason" + bstr("torrent not found") + "e"

	resp, err := parseResponse([]byte(raw))
	require.NoError(err)
	require.True(resp.Failed())
	require.Equal("torrent not found", resp.FailureReason)
}

func TestParseResponseCompactV6Peers(t *testing.T) {
	require := require.New(t)

	ip6 := net.ParseIP("2001:db8::1").To16()
	compact := string(ip6) + string([]byte{0x1A, 0xE1})

	raw := "d" + "6:peers6" + bstr(compact) + "e"

	resp, err := parseResponse([]byte(raw))
	require.NoError(err)
	require.Len(resp.Peers6, 1)
	require.True(resp.Peers6[0].IP.Equal(net.ParseIP("2001:db8::1")))
	require.Equal(uint16(6881), resp.Peers6[0].Port)
}

func TestParseScrapeResponse(t *testing.T) {
	require := require.New(t)

	var hash core.InfoHashV1
	hash[0] = 0xAB
	hashStr := string(hash[:])

	raw := "d" + "5:files" + "d" +
		bstr(hashStr) + "d" + "8:completei10e" + "10:incompletei3e" + "10:downloadedi99e" + "e" +
		"e" + "e"

	resp, err := parseScrapeResponse([]byte(raw))
	require.NoError(err)
	require.Contains(resp.Files, hash)
	stats := resp.Files[hash]
	require.Equal(10, stats.Complete)
	require.Equal(3, stats.Incomplete)
	require.Equal(99, stats.Downloaded)
}
