// Copyright (c) 2016-2019 Uber Technologies, Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
package core

import "errors"

// PeerContext identifies the local client to trackers and peers: the fields
// carried in every announce request.
type PeerContext struct {
	// IP and Port specify the address the client will announce itself as.
	// Port is the address the peer-wire listener is bound to; it may differ
	// from the address visible to a NATed tracker.
	IP   string `json:"ip"`
	Port int    `json:"port"`

	// PeerID the client identifies itself as. Fixed for the lifetime of the
	// process; regenerated on restart unless persisted.
	PeerID PeerID `json:"peer_id"`
}

// NewPeerContext creates a new PeerContext using f to generate the peer id.
func NewPeerContext(f PeerIDFactory, ip string, port int) (PeerContext, error) {
	if ip == "" {
		return PeerContext{}, errors.New("no ip supplied")
	}
	if port == 0 {
		return PeerContext{}, errors.New("no port supplied")
	}
	peerID, err := f.GeneratePeerID(ip, port)
	if err != nil {
		return PeerContext{}, err
	}
	return PeerContext{
		IP:     ip,
		Port:   port,
		PeerID: peerID,
	}, nil
}
