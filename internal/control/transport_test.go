package control_test

import (
	"testing"
	"time"

	"github.com/samgwise/555nm-soundscape/internal/control"
)

func TestTransportBroadcastAndRecv(t *testing.T) {
	t.Parallel()

	receiver, err := control.Listen("127.0.0.1:0", nil, nil)
	if err != nil {
		t.Fatalf("Listen receiver: %v", err)
	}
	defer receiver.Close()

	sender, err := control.Listen("127.0.0.1:0", []string{receiver.LocalAddr().String()}, nil)
	if err != nil {
		t.Fatalf("Listen sender: %v", err)
	}
	defer sender.Close()

	sender.Broadcast(control.NewMasterAlive(42))

	type result struct {
		msg control.Message
		err error
	}
	done := make(chan result, 1)
	go func() {
		msg, err := receiver.Recv()
		done <- result{msg, err}
	}()

	select {
	case r := <-done:
		if r.err != nil {
			t.Fatalf("Recv: %v", r.err)
		}
		if r.msg.Kind != control.MasterAlive || r.msg.ElapsedMs != 42 {
			t.Errorf("Recv = %+v, want MasterAlive(42)", r.msg)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for broadcast packet")
	}
}
