package eventbus

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/gomodule/redigo/redis"
	"github.com/hashicorp/go-hclog"
	"github.com/stretchr/testify/require"

	"gotokenbridge/types"
)

type publisherFunc func(ctx context.Context, ev types.Event) error

func (f publisherFunc) Publish(ctx context.Context, ev types.Event) error { return f(ctx, ev) }

func testEvent(seq uint64) types.Event {
	return types.Event{
		Seq:     seq,
		Name:    types.EventSwapOut,
		Payload: json.RawMessage(`{"kind":"burn","id":1}`),
	}
}

func TestRedis(t *testing.T) {
	srv := miniredis.RunT(t)
	addr := srv.Addr()
	pool := &redis.Pool{Dial: func() (redis.Conn, error) { return redis.Dial("tcp", addr) }}
	defer pool.Close()

	pub := NewRedis(pool, "")
	ctx := context.Background()

	require.NoError(t, pub.Publish(ctx, testEvent(1)))
	require.NoError(t, pub.Publish(ctx, testEvent(2)))

	backlog, err := pub.Backlog(ctx)
	require.NoError(t, err)
	require.Len(t, backlog, 2)
	require.Equal(t, uint64(1), backlog[0].Seq)
	require.Equal(t, uint64(2), backlog[1].Seq)
	require.JSONEq(t, `{"kind":"burn","id":1}`, string(backlog[1].Payload))

	list, err := srv.List(DefaultChannel)
	require.NoError(t, err)
	require.Len(t, list, 2)

	srv.Close()
	require.Error(t, pub.Publish(ctx, testEvent(3)))
}

func TestFanout(t *testing.T) {
	var seen []uint64
	ok := publisherFunc(func(_ context.Context, ev types.Event) error {
		seen = append(seen, ev.Seq)
		return nil
	})
	broken := publisherFunc(func(context.Context, types.Event) error {
		return errors.New("broken")
	})

	f := Fanout{NewLog(hclog.NewNullLogger()), broken, ok}

	err := f.Publish(context.Background(), testEvent(5))
	require.ErrorContains(t, err, "broken")
	// a failing publisher does not starve the rest
	require.Equal(t, []uint64{5}, seen)

	require.NoError(t, Fanout{ok}.Publish(context.Background(), testEvent(6)))
	require.Equal(t, []uint64{5, 6}, seen)
}
