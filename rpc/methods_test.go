package rpc

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestRegistryDispatchSuccess(t *testing.T) {
	reg := NewRegistry()
	reg.Register("session-get", func(args json.RawMessage) (interface{}, error) {
		return map[string]string{"version": "1"}, nil
	})

	tag := 7
	resp := reg.Dispatch(Request{Method: "session-get", Tag: &tag})
	if resp.Result != "success" {
		t.Fatalf("got result %q", resp.Result)
	}
	if resp.Tag == nil || *resp.Tag != 7 {
		t.Fatal("expected tag to be echoed")
	}
}

func TestRegistryDispatchUnknownMethod(t *testing.T) {
	reg := NewRegistry()
	resp := reg.Dispatch(Request{Method: "bogus"})
	if resp.Result == "success" {
		t.Fatal("expected failure result for unknown method")
	}
}

func TestRegistryDispatchHandlerError(t *testing.T) {
	reg := NewRegistry()
	reg.Register("torrent-add", func(args json.RawMessage) (interface{}, error) {
		return nil, errors.New("invalid or corrupt torrent file")
	})
	resp := reg.Dispatch(Request{Method: "torrent-add"})
	if resp.Result != "invalid or corrupt torrent file" {
		t.Fatalf("got result %q", resp.Result)
	}
}
