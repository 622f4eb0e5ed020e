package eventlog

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/go-cmp/cmp"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/bitfsorg/libreceipt-go/account"
	"github.com/bitfsorg/libreceipt-go/store"
)

func makeAddr(seed byte) account.Address {
	var a account.Address
	for i := range a {
		a[i] = seed
	}
	return a
}

var epoch = time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

// ---------------------------------------------------------------------------
// Revenue events
// ---------------------------------------------------------------------------

func TestAppendRevenue_IDsAndHistory(t *testing.T) {
	s := store.NewMemStore()
	agentA, agentB := makeAddr(0xA), makeAddr(0xB)

	var ids []uint64
	for _, agent := range []account.Address{agentA, agentB, agentA} {
		require.NoError(t, s.Update(func(tx store.Tx) error {
			id, err := AppendRevenue(tx, &RevenueEvent{
				Agent: agent, Source: "tips", Amount: 1000, IsNative: true,
				OwnerAmount: 700, TreasuryAmount: 300, Timestamp: epoch,
			})
			ids = append(ids, id)
			return err
		}))
	}
	assert.Equal(t, []uint64{0, 1, 2}, ids)

	require.NoError(t, s.View(func(tx store.Tx) error {
		assert.Equal(t, uint64(3), Count(tx))

		hist, err := History(tx, agentA)
		require.NoError(t, err)
		assert.Equal(t, []uint64{0, 2}, hist)

		ev, err := Revenue(tx, 1)
		require.NoError(t, err)
		want := &RevenueEvent{
			ID: 1, Agent: agentB, Source: "tips", Amount: 1000, IsNative: true,
			OwnerAmount: 700, TreasuryAmount: 300, Timestamp: epoch,
		}
		if diff := cmp.Diff(want, ev); diff != "" {
			t.Errorf("revenue event mismatch (-want +got):\n%s", diff)
		}
		assert.Equal(t, account.Native, ev.Currency())

		_, err = Revenue(tx, 3)
		assert.ErrorIs(t, err, ErrEventNotFound)
		return nil
	}))
}

func TestAppendRevenue_RolledBack(t *testing.T) {
	s := store.NewMemStore()
	boom := errors.New("boom")
	err := s.Update(func(tx store.Tx) error {
		if _, err := AppendRevenue(tx, &RevenueEvent{Agent: makeAddr(1), Amount: 5}); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)
	require.NoError(t, s.View(func(tx store.Tx) error {
		assert.Zero(t, Count(tx))
		return nil
	}))
}

// ---------------------------------------------------------------------------
// Outbox
// ---------------------------------------------------------------------------

func TestEmitAndSince(t *testing.T) {
	s := store.NewMemStore()
	require.NoError(t, s.Update(func(tx store.Tx) error {
		for i := 0; i < 5; i++ {
			if _, err := Emit(tx, "call-1", epoch, KindEarningsClaimed, EarningsClaimed{
				Recipient: makeAddr(byte(i + 1)), Currency: "native", Amount: uint64(i),
			}); err != nil {
				return err
			}
		}
		return nil
	}))

	require.NoError(t, s.View(func(tx store.Tx) error {
		assert.Equal(t, uint64(5), LastSeq(tx))

		all, err := Since(tx, 0, 0)
		require.NoError(t, err)
		require.Len(t, all, 5)
		assert.Equal(t, uint64(1), all[0].Seq)

		page, err := Since(tx, 2, 2)
		require.NoError(t, err)
		require.Len(t, page, 2)
		assert.Equal(t, uint64(3), page[0].Seq)
		assert.Equal(t, uint64(4), page[1].Seq)

		var payload EarningsClaimed
		require.NoError(t, page[0].Decode(&payload))
		assert.Equal(t, makeAddr(3), payload.Recipient)
		assert.Equal(t, "call-1", page[0].CallID)
		return nil
	}))
}

// ---------------------------------------------------------------------------
// Sinks
// ---------------------------------------------------------------------------

func sampleEvents() []Event {
	return []Event{
		{Seq: 1, Kind: KindRevenueDistributed, CallID: "c", Time: epoch, Data: []byte(`{}`)},
		{Seq: 2, Kind: KindContributorCredited, CallID: "c", Time: epoch, Data: []byte(`{}`)},
	}
}

type fakeJetStream struct {
	mu       sync.Mutex
	subjects []string
	err      error
}

func (f *fakeJetStream) Publish(_ context.Context, subject string, _ []byte, opts ...jetstream.PublishOpt) (*jetstream.PubAck, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	f.subjects = append(f.subjects, subject)
	return &jetstream.PubAck{Stream: "RECEIPT", Sequence: uint64(len(f.subjects))}, nil
}

func TestNATSSink_Subjects(t *testing.T) {
	js := &fakeJetStream{}
	sink := NewNATSSink(js, "")
	require.NoError(t, sink.Publish(context.Background(), sampleEvents()))
	assert.Equal(t, []string{
		"receipt.events.RevenueDistributed",
		"receipt.events.ContributorCredited",
	}, js.subjects)

	js.err = errors.New("no responders")
	err := sink.Publish(context.Background(), sampleEvents())
	assert.ErrorContains(t, err, "no responders")
}

func TestRedisSink_Publish(t *testing.T) {
	mr := miniredis.NewMiniRedis()
	require.NoError(t, mr.Start())
	t.Cleanup(mr.Close)

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	ctx := context.Background()
	sink := NewRedisSink(rdb, "test")

	sub := rdb.Subscribe(ctx, sink.Channel(KindRevenueDistributed))
	t.Cleanup(func() { _ = sub.Close() })
	_, err := sub.Receive(ctx)
	require.NoError(t, err)

	require.NoError(t, sink.Publish(ctx, sampleEvents()))

	msg, err := sub.ReceiveMessage(ctx)
	require.NoError(t, err)
	assert.Equal(t, "test:RevenueDistributed", msg.Channel)
	assert.Contains(t, msg.Payload, `"seq":1`)

	last, err := sink.LastSeq(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), last)
}

func TestRedisSink_LastSeqOnlyRises(t *testing.T) {
	mr := miniredis.NewMiniRedis()
	require.NoError(t, mr.Start())
	t.Cleanup(mr.Close)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	ctx := context.Background()
	sink := NewRedisSink(rdb, "test")
	ev := func(seq uint64) []Event {
		return []Event{{Seq: seq, Kind: KindRevenueDistributed, Data: json.RawMessage(`{}`)}}
	}

	// two dispatchers finishing out of order
	require.NoError(t, sink.Publish(ctx, ev(12)))
	require.NoError(t, sink.Publish(ctx, ev(9)))
	last, err := sink.LastSeq(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(12), last)

	require.NoError(t, sink.Publish(ctx, ev(100)))
	require.NoError(t, sink.Publish(ctx, ev(99)))
	last, err = sink.LastSeq(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(100), last)
}

func TestRedisSink_LastSeqEmpty(t *testing.T) {
	mr := miniredis.NewMiniRedis()
	require.NoError(t, mr.Start())
	t.Cleanup(mr.Close)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	last, err := NewRedisSink(rdb, "").LastSeq(context.Background())
	require.NoError(t, err)
	assert.Zero(t, last)
}

// ---------------------------------------------------------------------------
// Dispatcher
// ---------------------------------------------------------------------------

type failingSink struct{}

func (failingSink) Name() string { return "failing" }
func (failingSink) Publish(context.Context, []Event) error {
	return errors.New("sink down")
}

func TestDispatcher_Sync(t *testing.T) {
	a, b := &MemSink{}, &MemSink{}
	d := NewDispatcher(nil, a, b)
	require.NoError(t, d.Publish(context.Background(), sampleEvents()))
	assert.Len(t, a.Events(), 2)
	assert.Len(t, b.OfKind(KindContributorCredited), 1)
	assert.NoError(t, d.Publish(context.Background(), nil))
}

func TestDispatcher_SinkFailureIsolated(t *testing.T) {
	good := &MemSink{}
	d := NewDispatcher(nil, good, failingSink{})
	err := d.Publish(context.Background(), sampleEvents())
	assert.ErrorContains(t, err, "sink down")
	assert.Len(t, good.Events(), 2, "healthy sinks still receive the batch")
}

func TestDispatcher_AsyncDrainsOnClose(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	sink := &MemSink{}
	d := NewDispatcher(nil, sink)
	d.Start(1)
	for i := 0; i < 10; i++ {
		require.NoError(t, d.Publish(context.Background(), []Event{{Seq: uint64(i + 1), Kind: KindParamsChanged}}))
	}
	d.Close()

	got := sink.Events()
	require.Len(t, got, 10)
	for i, ev := range got {
		assert.Equal(t, uint64(i+1), ev.Seq, "delivery keeps commit order")
	}

	err := d.Publish(context.Background(), sampleEvents())
	assert.ErrorIs(t, err, ErrDispatcherClosed)
	d.Close()
}
