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

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewInfoHashV1FromHex(t *testing.T) {
	require := require.New(t)

	d, err := NewInfoHashV1FromHex("e3b0c44298fc1c149afbf4c8996fb92427ae41e4")
	require.NoError(err)
	require.Equal("e3b0c44298fc1c149afbf4c8996fb92427ae41e4", d.Hex())
	require.Equal("e3b0c44298fc1c149afbf4c8996fb92427ae41e4", d.String())
}

func TestNewInfoHashV1FromHexErrors(t *testing.T) {
	tests := []struct {
		desc  string
		input string
	}{
		{"empty", ""},
		{"too long", "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855"},
		{"invalid hex", "x3b0c44298fc1c149afbf4c8996fb92427ae41e4"},
	}
	for _, test := range tests {
		t.Run(test.desc, func(t *testing.T) {
			_, err := NewInfoHashV1FromHex(test.input)
			require.Error(t, err)
		})
	}
}

func TestNewInfoHashV1FromBytes(t *testing.T) {
	require := require.New(t)

	h := NewInfoHashV1FromBytes([]byte("some info dict bytes"))
	require.Len(h.Bytes(), 20)

	h2 := NewInfoHashV1FromBytes([]byte("some info dict bytes"))
	require.Equal(h, h2)

	h3 := NewInfoHashV1FromBytes([]byte("different bytes"))
	require.NotEqual(h, h3)
}

func TestNewInfoHashV2FromHex(t *testing.T) {
	require := require.New(t)

	hexStr := "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855"
	d, err := NewInfoHashV2FromHex(hexStr)
	require.NoError(err)
	require.Equal(hexStr, d.Hex())
}

func TestNewInfoHashV2FromHexErrors(t *testing.T) {
	_, err := NewInfoHashV2FromHex("too short")
	require.Error(t, err)
}

func TestNewInfoHashV2FromBytesAndTruncated(t *testing.T) {
	require := require.New(t)

	h := NewInfoHashV2FromBytes([]byte("v2 info dict"))
	require.Len(h.Bytes(), 32)

	trunc := h.Truncated()
	require.Equal(h.Bytes()[:20], trunc.Bytes())
}
