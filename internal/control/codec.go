package control

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Wire format: [kind byte][payload...], big-endian integers. Each kind has
// a fixed payload length so Decode never needs a length prefix.
const (
	kindMasterAlive       byte = 1
	kindChangeScene       byte = 2
	kindRefreshBackground byte = 3
	kindVolume            byte = 4
)

// Encode serialises msg to its wire representation.
func Encode(msg Message) ([]byte, error) {
	switch msg.Kind {
	case MasterAlive:
		buf := make([]byte, 9)
		buf[0] = kindMasterAlive
		binary.BigEndian.PutUint64(buf[1:], uint64(msg.ElapsedMs))
		return buf, nil
	case ChangeScene:
		buf := make([]byte, 13)
		buf[0] = kindChangeScene
		binary.BigEndian.PutUint32(buf[1:], uint32(msg.Index))
		binary.BigEndian.PutUint64(buf[5:], uint64(msg.AtTick))
		return buf, nil
	case RefreshBackground:
		return []byte{kindRefreshBackground}, nil
	case Volume:
		buf := make([]byte, 9)
		buf[0] = kindVolume
		binary.BigEndian.PutUint64(buf[1:], math.Float64bits(msg.VolumeValue))
		return buf, nil
	default:
		return nil, fmt.Errorf("control: encode: unsupported kind %v", msg.Kind)
	}
}

// Decode parses a wire packet into a [Message]. A malformed packet yields
// Message{Kind: NoAction} and a non-nil error — callers treat both
// identically (spec.md §7's Decode error policy: log and drop).
func Decode(packet []byte) (Message, error) {
	if len(packet) == 0 {
		return Message{Kind: NoAction}, fmt.Errorf("control: decode: empty packet")
	}
	switch packet[0] {
	case kindMasterAlive:
		if len(packet) < 9 {
			return Message{Kind: NoAction}, fmt.Errorf("control: decode: truncated MasterAlive")
		}
		return Message{Kind: MasterAlive, ElapsedMs: int64(binary.BigEndian.Uint64(packet[1:9]))}, nil
	case kindChangeScene:
		if len(packet) < 13 {
			return Message{Kind: NoAction}, fmt.Errorf("control: decode: truncated ChangeScene")
		}
		return Message{
			Kind:   ChangeScene,
			Index:  int32(binary.BigEndian.Uint32(packet[1:5])),
			AtTick: int64(binary.BigEndian.Uint64(packet[5:13])),
		}, nil
	case kindRefreshBackground:
		return Message{Kind: RefreshBackground}, nil
	case kindVolume:
		if len(packet) < 9 {
			return Message{Kind: NoAction}, fmt.Errorf("control: decode: truncated Volume")
		}
		return Message{Kind: Volume, VolumeValue: math.Float64frombits(binary.BigEndian.Uint64(packet[1:9]))}, nil
	default:
		return Message{Kind: NoAction}, fmt.Errorf("control: decode: unknown kind byte %d", packet[0])
	}
}
