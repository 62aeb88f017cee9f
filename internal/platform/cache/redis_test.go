package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/require"
)

func TestConnectPingsServer(t *testing.T) {
	srv := miniredis.RunT(t)

	client, err := Connect(context.Background(), srv.Addr(), time.Second)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	require.NoError(t, client.Set(context.Background(), "k", "v", 0).Err())
	got, err := srv.Get("k")
	require.NoError(t, err)
	require.Equal(t, "v", got)
}

func TestConnectFailsWhenServerDown(t *testing.T) {
	srv := miniredis.RunT(t)
	addr := srv.Addr()
	srv.Close()

	_, err := Connect(context.Background(), addr, 200*time.Millisecond)
	require.Error(t, err)
	require.Contains(t, err.Error(), "platform/cache: ping")
}
