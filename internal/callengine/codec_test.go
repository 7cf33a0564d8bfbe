package callengine

import "testing"

func TestCodecRoundTrip(t *testing.T) {
	c := NewCodec()
	c.SetCallID("call-123")

	in := CallMessage{
		FromUserID:    "alice",
		RemoteUserID:  "bob",
		MessageAction: ActionVideoCall,
	}
	payload, err := c.Encode(in)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	out, err := c.Decode(payload)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.CallID != "call-123" {
		t.Fatalf("expected stamped call id, got %q", out.CallID)
	}
	if out.FromUserID != in.FromUserID || out.RemoteUserID != in.RemoteUserID || out.MessageAction != in.MessageAction {
		t.Fatalf("round trip mismatch: got %+v, want %+v (with stamped callId)", out, in)
	}
}

func TestCodecEncodePreservesExplicitCallID(t *testing.T) {
	c := NewCodec()
	c.SetCallID("sticky")

	in := CallMessage{CallID: "explicit", MessageAction: ActionHangup}
	payload, err := c.Encode(in)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	out, err := c.Decode(payload)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.CallID != "explicit" {
		t.Fatalf("expected explicit call id to survive, got %q", out.CallID)
	}
}

func TestCodecResetClearsCallID(t *testing.T) {
	c := NewCodec()
	c.SetCallID("call-1")
	c.Reset()
	if c.CallID() != "" {
		t.Fatalf("expected empty call id after reset, got %q", c.CallID())
	}
}

func TestCodecDecodeInvalidPayload(t *testing.T) {
	c := NewCodec()
	if _, err := c.Decode("not json"); err == nil {
		t.Fatal("expected decode error for invalid payload")
	}
}
