package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/aristath/cryptofolio/internal/domain"
)

func testSentiment(overall domain.SentimentClass) domain.MarketSentiment {
	return domain.MarketSentiment{
		Overall:        overall,
		FearGreedIndex: 50,
	}
}

func TestStreamDeliversLatestOnSubscribe(t *testing.T) {
	stream := NewSentimentStream(zerolog.Nop())

	stream.BroadcastSentiment(testSentiment(domain.SentimentBearish))

	ch := stream.subscribe()
	defer stream.unsubscribe(ch)

	select {
	case ms := <-ch:
		assert.Equal(t, domain.SentimentBearish, ms.Overall)
	default:
		t.Fatal("expected the latest sentiment to be queued on subscribe")
	}
}

func TestStreamBroadcastFansOut(t *testing.T) {
	stream := NewSentimentStream(zerolog.Nop())

	a := stream.subscribe()
	b := stream.subscribe()
	defer stream.unsubscribe(a)
	defer stream.unsubscribe(b)

	stream.BroadcastSentiment(testSentiment(domain.SentimentBullish))

	for _, ch := range []chan domain.MarketSentiment{a, b} {
		select {
		case ms := <-ch:
			assert.Equal(t, domain.SentimentBullish, ms.Overall)
		case <-time.After(time.Second):
			t.Fatal("subscriber did not receive the broadcast")
		}
	}
}

func TestStreamDropsWhenSubscriberFull(t *testing.T) {
	stream := NewSentimentStream(zerolog.Nop())

	ch := stream.subscribe()
	defer stream.unsubscribe(ch)

	// Overfill the buffered channel; broadcasts must not block.
	done := make(chan struct{})
	go func() {
		for i := 0; i < streamBufferSize*3; i++ {
			stream.BroadcastSentiment(testSentiment(domain.SentimentNeutral))
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("broadcast blocked on a slow subscriber")
	}
}

func TestStreamUnsubscribeRemovesClient(t *testing.T) {
	stream := NewSentimentStream(zerolog.Nop())

	ch := stream.subscribe()
	require.Equal(t, 1, stream.SubscriberCount())

	stream.unsubscribe(ch)
	assert.Equal(t, 0, stream.SubscriberCount())
}

func TestStreamWebSocketEndToEnd(t *testing.T) {
	stream := NewSentimentStream(zerolog.Nop())

	srv := httptest.NewServer(http.HandlerFunc(stream.ServeHTTP))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.Dial(ctx, wsURL, nil)
	require.NoError(t, err)
	defer conn.Close(websocket.StatusNormalClosure, "")

	// Wait for the subscription to register before broadcasting.
	require.Eventually(t, func() bool {
		return stream.SubscriberCount() == 1
	}, time.Second, 10*time.Millisecond)

	stream.BroadcastSentiment(testSentiment(domain.SentimentBullish))

	var got domain.MarketSentiment
	require.NoError(t, wsjson.Read(ctx, conn, &got))
	assert.Equal(t, domain.SentimentBullish, got.Overall)
}
