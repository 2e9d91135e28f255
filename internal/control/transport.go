package control

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"strconv"

	"github.com/samgwise/555nm-soundscape/internal/observe"
)

// Transport is a pair of UDP control-plane sockets: a receive socket bound
// to the configured listen address, and a separate send socket bound to
// port+1 on the same host. spec.md §5's shared-resource policy assigns
// these to different threads ("the outbound control socket is owned by
// the event-loop thread (send-only); the inbound socket is owned by the
// receiver thread (receive-only)") — two distinct *net.UDPConn values are
// how that ownership split is enforced: [Transport.Recv] only ever touches
// recvConn, [Transport.Broadcast] only ever touches sendConn.
//
// This type talks to raw net.UDPConn directly rather than through an OSC
// library: spec.md §1/§6 places the OSC wire codec itself out of scope as
// a collaborator concern, and this module's dependency set carries no OSC
// implementation, so the engine's actual collaborator boundary here is
// [net.UDPConn] plus this package's [Encode]/[Decode] framing.
type Transport struct {
	logger  *slog.Logger
	metrics *observe.Metrics

	recvConn    *net.UDPConn
	sendConn    *net.UDPConn
	subscribers []*net.UDPAddr
}

// SetMetrics attaches the installation's [observe.Metrics] instance so
// decode failures are counted. Safe to call with nil to detach.
func (t *Transport) SetMetrics(m *observe.Metrics) {
	t.metrics = m
}

// Listen opens the receive socket bound to addr and the send socket bound
// to addr's host on port+1 (spec.md §6: "bind address for control
// receive; send socket binds to port+1"), and configures the send socket
// to target the given subscriber addresses.
func Listen(addr string, subscribers []string, logger *slog.Logger) (*Transport, error) {
	if logger == nil {
		logger = slog.Default()
	}
	recvAddr, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return nil, fmt.Errorf("control: resolve listen address %q: %w", addr, err)
	}
	recvConn, err := net.ListenUDP("udp", recvAddr)
	if err != nil {
		return nil, fmt.Errorf("control: listen %q: %w", addr, err)
	}
	boundAddr := recvConn.LocalAddr().(*net.UDPAddr)

	sendAddr := &net.UDPAddr{IP: boundAddr.IP, Port: boundAddr.Port + 1, Zone: boundAddr.Zone}
	sendConn, err := net.ListenUDP("udp", sendAddr)
	if err != nil {
		recvConn.Close()
		return nil, fmt.Errorf("control: listen send socket %q: %w", net.JoinHostPort(sendAddr.IP.String(), strconv.Itoa(sendAddr.Port)), err)
	}

	subs := make([]*net.UDPAddr, 0, len(subscribers))
	for _, s := range subscribers {
		a, err := net.ResolveUDPAddr("udp", s)
		if err != nil {
			recvConn.Close()
			sendConn.Close()
			return nil, fmt.Errorf("control: resolve subscriber %q: %w", s, err)
		}
		subs = append(subs, a)
	}

	return &Transport{logger: logger, recvConn: recvConn, sendConn: sendConn, subscribers: subs}, nil
}

// Close releases both underlying sockets.
func (t *Transport) Close() error {
	err := t.recvConn.Close()
	if sendErr := t.sendConn.Close(); sendErr != nil && err == nil {
		err = sendErr
	}
	return err
}

// LocalAddr returns the address the receive socket is bound to.
func (t *Transport) LocalAddr() net.Addr {
	return t.recvConn.LocalAddr()
}

// Broadcast sends msg to every configured subscriber from the send
// socket. A send failure to one subscriber is logged and does not prevent
// sending to the rest, per spec.md §7's ControlSend policy.
func (t *Transport) Broadcast(msg Message) {
	packet, err := Encode(msg)
	if err != nil {
		t.logger.Error("control: encode failed", "error", err)
		return
	}
	for _, sub := range t.subscribers {
		if _, err := t.sendConn.WriteToUDP(packet, sub); err != nil {
			t.logger.Error("control: send failed", "subscriber", sub.String(), "error", err)
		}
	}
}

// Recv reads and decodes one inbound packet from the receive socket,
// blocking until one arrives or the socket is closed. A receive error is
// not logged here: Recv returns (Message{NoAction}, err) and the caller's
// read loop logs it and continues, per spec.md §7's ControlRecv policy. A
// packet that fails to decode is logged, counted, and returned as
// (Message{NoAction}, nil).
func (t *Transport) Recv() (Message, error) {
	buf := make([]byte, 512)
	n, _, err := t.recvConn.ReadFromUDP(buf)
	if err != nil {
		return Message{Kind: NoAction}, fmt.Errorf("control: recv: %w", err)
	}
	msg, err := Decode(buf[:n])
	if err != nil {
		t.logger.Warn("control: dropping malformed packet", "error", err)
		if t.metrics != nil {
			t.metrics.ControlDecodeErrors.Add(context.Background(), 1)
		}
		return Message{Kind: NoAction}, nil
	}
	return msg, nil
}
