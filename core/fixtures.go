package core

import (
	"fmt"
	"math/rand"
)

// PeerIDFixture returns a randomly generated PeerID for use in tests.
func PeerIDFixture() PeerID {
	p, err := RandomPeerID()
	if err != nil {
		panic(err)
	}
	return p
}

// PeerContextFixture returns a PeerContext populated with random values for
// use in tests.
func PeerContextFixture() PeerContext {
	ip := fmt.Sprintf("10.%d.%d.%d", rand.Intn(256), rand.Intn(256), rand.Intn(256))
	port := 1024 + rand.Intn(60000)
	p, err := NewPeerContext(RandomPeerIDFactory, ip, port)
	if err != nil {
		panic(err)
	}
	return p
}

// PeerInfoFixture returns a PeerInfo populated with random values for use in
// tests.
func PeerInfoFixture() *PeerInfo {
	pctx := PeerContextFixture()
	return PeerInfoFromContext(pctx, false)
}

// InfoHashV1Fixture returns a randomly generated InfoHashV1 for use in tests.
func InfoHashV1Fixture() InfoHashV1 {
	var h InfoHashV1
	rand.Read(h[:])
	return h
}
