package events

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/require"

	"liquidityAMM/internal/ledger"
	"liquidityAMM/internal/model"
)

func TestEncodeDecode(t *testing.T) {
	ev := model.InitializeLiquidityPoolEvent{
		LiquidityProvider: solana.NewWallet().PublicKey(),
		BaseMint:          solana.NewWallet().PublicKey(),
		QuoteMint:         solana.NewWallet().PublicKey(),
		BaseAmount:        2_000_000_000,
		QuoteAmount:       1_000_000_000,
	}
	data, err := Encode(ev)
	require.NoError(t, err)
	disc := model.EventDiscriminator(model.EventInitializeLiquidityPool)
	require.Equal(t, disc[:], data[:8])
	require.Len(t, data, 8+32*3+8*2)

	decoded, err := Decode(data)
	require.NoError(t, err)
	require.Equal(t, ev, decoded)
}

func TestDecodeRejectsUnknown(t *testing.T) {
	_, err := Decode([]byte{1, 2, 3})
	require.Error(t, err)

	_, err = Decode(make([]byte, 40))
	require.ErrorIs(t, err, ErrUnknownEvent)
}

func TestLogLine(t *testing.T) {
	data, err := Encode(model.SwapEvent{AmountIn: 10, AmountOut: 4})
	require.NoError(t, err)

	line := LogLine(data)
	require.Contains(t, line, "Program data: ")

	parsed, ok := ParseLogLine(line)
	require.True(t, ok)
	require.Equal(t, data, parsed)

	_, ok = ParseLogLine("Program log: Instruction: Swap")
	require.False(t, ok)
	_, ok = ParseLogLine("Program data: !!!")
	require.False(t, ok)
}

func TestNewRecords(t *testing.T) {
	pool := solana.NewWallet().PublicKey()
	good, err := Encode(model.DepositEvent{Pool: pool, BaseAmount: 5, QuoteAmount: 3, LPAmount: 2})
	require.NoError(t, err)

	entries := []ledger.LogEntry{
		{Seq: 1, TxID: "a", Data: good, Timestamp: 100},
		{Seq: 2, TxID: "b", Data: []byte("not an event at all"), Timestamp: 101},
	}
	records, failed := NewRecords(entries)
	require.Len(t, records, 1)
	require.Len(t, failed, 1)

	require.Equal(t, model.EventDeposit, records[0].EventName)
	require.Equal(t, pool.String(), records[0].Pool)
	require.Equal(t, uint64(1), records[0].Seq)
	require.Equal(t, uint64(2), failed[0].Seq)
}

type fakeSink struct {
	name     string
	failures int32
	calls    atomic.Int32
	mu       sync.Mutex
	batches  []model.EventBatch
}

func (s *fakeSink) Name() string { return s.name }

func (s *fakeSink) Put(_ context.Context, batch model.EventBatch) error {
	if n := s.calls.Add(1); n <= s.failures {
		return errors.New("temporary failure")
	}
	s.mu.Lock()
	s.batches = append(s.batches, batch)
	s.mu.Unlock()
	return nil
}

func fastBackOff() backoff.BackOff {
	return backoff.NewConstantBackOff(time.Millisecond)
}

func TestDispatcherRetriesEachSink(t *testing.T) {
	flaky := &fakeSink{name: "flaky", failures: 2}
	steady := &fakeSink{name: "steady"}
	d := NewDispatcher(nil, []Sink{flaky, steady}, WithMaxTries(3), WithBackOff(fastBackOff))

	batch := model.EventBatch{Records: []model.EventRecord{{Seq: 1}}}
	require.NoError(t, d.Publish(context.Background(), batch))

	require.Equal(t, int32(3), flaky.calls.Load())
	require.Equal(t, int32(1), steady.calls.Load())
	require.Len(t, flaky.batches, 1)
	require.Len(t, steady.batches, 1)
}

func TestDispatcherReportsExhaustedSink(t *testing.T) {
	broken := &fakeSink{name: "broken", failures: 100}
	steady := &fakeSink{name: "steady"}
	d := NewDispatcher(nil, []Sink{broken, steady}, WithMaxTries(2), WithBackOff(fastBackOff))

	err := d.Publish(context.Background(), model.EventBatch{Records: []model.EventRecord{{Seq: 1}}})
	require.Error(t, err)
	require.Equal(t, int32(2), broken.calls.Load())
	require.Len(t, steady.batches, 1)
}

func TestDispatcherSkipsEmptyBatch(t *testing.T) {
	s := &fakeSink{name: "s"}
	d := NewDispatcher(nil, []Sink{s})
	require.NoError(t, d.Publish(context.Background(), model.EventBatch{}))
	require.Zero(t, s.calls.Load())
}

func TestExponentialBackOffIntervals(t *testing.T) {
	b, ok := ExponentialBackOff(0, 0)().(*backoff.ExponentialBackOff)
	require.True(t, ok)
	require.Equal(t, DefaultBackOffInitial, b.InitialInterval)
	require.Equal(t, DefaultBackOffMax, b.MaxInterval)

	b, ok = ExponentialBackOff(50*time.Millisecond, time.Second)().(*backoff.ExponentialBackOff)
	require.True(t, ok)
	require.Equal(t, 50*time.Millisecond, b.InitialInterval)
	require.Equal(t, time.Second, b.MaxInterval)

	b, ok = ExponentialBackOff(2*time.Second, time.Second)().(*backoff.ExponentialBackOff)
	require.True(t, ok)
	require.Equal(t, 2*time.Second, b.MaxInterval, "max never drops below the first interval")
}

func TestNewDispatcherUsesDefaultIntervals(t *testing.T) {
	d := NewDispatcher(nil, nil)
	b, ok := d.newBackOff().(*backoff.ExponentialBackOff)
	require.True(t, ok)
	require.Equal(t, 200*time.Millisecond, b.InitialInterval)
	require.Equal(t, 5*time.Second, b.MaxInterval)
}
