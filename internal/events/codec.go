// Package events encodes program events as discriminator-prefixed borsh
// payloads, decodes them back, and fans committed batches out to sinks.
package events

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	bin "github.com/gagliardetto/binary"

	"liquidityAMM/internal/model"
)

// LogPrefix marks event lines in program logs.
const LogPrefix = "Program data: "

var ErrUnknownEvent = errors.New("unknown event discriminator")

type decodeFunc func(payload []byte) (model.Event, error)

var registry = map[model.Discriminator]decodeFunc{
	model.EventDiscriminator(model.EventInitializeLiquidityPool): decodeAs[model.InitializeLiquidityPoolEvent],
	model.EventDiscriminator(model.EventDeposit):                 decodeAs[model.DepositEvent],
	model.EventDiscriminator(model.EventSwap):                    decodeAs[model.SwapEvent],
	model.EventDiscriminator(model.EventWithdraw):                decodeAs[model.WithdrawEvent],
}

func decodeAs[T model.Event](payload []byte) (model.Event, error) {
	var ev T
	if err := bin.NewBorshDecoder(payload).Decode(&ev); err != nil {
		return nil, err
	}
	return ev, nil
}

// Encode serializes ev as discriminator || borsh(ev).
func Encode(ev model.Event) ([]byte, error) {
	disc := model.EventDiscriminator(ev.EventName())
	buf := new(bytes.Buffer)
	buf.Write(disc[:])
	if err := bin.NewBorshEncoder(buf).Encode(ev); err != nil {
		return nil, fmt.Errorf("encode %s: %w", ev.EventName(), err)
	}
	return buf.Bytes(), nil
}

// Decode parses bytes produced by Encode.
func Decode(data []byte) (model.Event, error) {
	if len(data) < len(model.Discriminator{}) {
		return nil, fmt.Errorf("event data too short: %d bytes", len(data))
	}
	var disc model.Discriminator
	copy(disc[:], data)
	decode, ok := registry[disc]
	if !ok {
		return nil, fmt.Errorf("%w: %x", ErrUnknownEvent, disc[:])
	}
	ev, err := decode(data[len(disc):])
	if err != nil {
		return nil, fmt.Errorf("decode event %x: %w", disc[:], err)
	}
	return ev, nil
}

// LogLine renders event bytes the way program logs carry them.
func LogLine(data []byte) string {
	return LogPrefix + base64.StdEncoding.EncodeToString(data)
}

// ParseLogLine extracts event bytes from a program log line. ok is false for
// lines that do not carry event data.
func ParseLogLine(line string) (data []byte, ok bool) {
	rest, found := strings.CutPrefix(strings.TrimSpace(line), strings.TrimSpace(LogPrefix))
	if !found {
		return nil, false
	}
	data, err := base64.StdEncoding.DecodeString(strings.TrimSpace(rest))
	if err != nil || len(data) < len(model.Discriminator{}) {
		return nil, false
	}
	return data, true
}
