package server

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/aristath/cryptofolio/internal/domain"
)

const (
	streamWriteWait  = 10 * time.Second
	streamBufferSize = 8
)

// SentimentStream fans market sentiment updates out to WebSocket
// subscribers. The scheduler pushes a fresh sentiment after every
// market refresh; late joiners get the latest one on connect.
type SentimentStream struct {
	log         zerolog.Logger
	mu          sync.RWMutex
	subscribers map[chan domain.MarketSentiment]struct{}
	latest      *domain.MarketSentiment
}

// NewSentimentStream creates a new sentiment stream
func NewSentimentStream(log zerolog.Logger) *SentimentStream {
	return &SentimentStream{
		log:         log.With().Str("component", "sentiment_stream").Logger(),
		subscribers: make(map[chan domain.MarketSentiment]struct{}),
	}
}

// BroadcastSentiment pushes a sentiment update to all subscribers.
// Slow subscribers have the update dropped rather than blocking the
// refresh job.
func (s *SentimentStream) BroadcastSentiment(ms domain.MarketSentiment) {
	s.mu.Lock()
	s.latest = &ms
	subs := make([]chan domain.MarketSentiment, 0, len(s.subscribers))
	for ch := range s.subscribers {
		subs = append(subs, ch)
	}
	s.mu.Unlock()

	for _, ch := range subs {
		select {
		case ch <- ms:
		default:
			s.log.Warn().Msg("Subscriber channel full, dropping sentiment update")
		}
	}
}

// SubscriberCount returns the number of connected stream clients.
func (s *SentimentStream) SubscriberCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.subscribers)
}

func (s *SentimentStream) subscribe() chan domain.MarketSentiment {
	ch := make(chan domain.MarketSentiment, streamBufferSize)
	s.mu.Lock()
	s.subscribers[ch] = struct{}{}
	if s.latest != nil {
		ch <- *s.latest
	}
	s.mu.Unlock()
	return ch
}

func (s *SentimentStream) unsubscribe(ch chan domain.MarketSentiment) {
	s.mu.Lock()
	delete(s.subscribers, ch)
	s.mu.Unlock()
}

// ServeHTTP handles GET /api/sentiment/stream (WebSocket).
func (s *SentimentStream) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true,
	})
	if err != nil {
		s.log.Warn().Err(err).Msg("WebSocket accept failed")
		return
	}
	defer conn.Close(websocket.StatusInternalError, "stream closed")

	ch := s.subscribe()
	defer s.unsubscribe(ch)

	s.log.Info().Int("subscribers", s.SubscriberCount()).Msg("Client connected to sentiment stream")

	ctx := r.Context()
	heartbeat := time.NewTicker(30 * time.Second)
	defer heartbeat.Stop()

	for {
		select {
		case <-ctx.Done():
			s.log.Info().Msg("Client disconnected from sentiment stream")
			conn.Close(websocket.StatusNormalClosure, "")
			return

		case ms := <-ch:
			if err := s.write(ctx, conn, ms); err != nil {
				s.log.Warn().Err(err).Msg("Failed to write sentiment update")
				return
			}

		case <-heartbeat.C:
			pingCtx, cancel := context.WithTimeout(ctx, streamWriteWait)
			err := conn.Ping(pingCtx)
			cancel()
			if err != nil {
				s.log.Debug().Err(err).Msg("Heartbeat ping failed, closing stream")
				return
			}
		}
	}
}

func (s *SentimentStream) write(ctx context.Context, conn *websocket.Conn, ms domain.MarketSentiment) error {
	writeCtx, cancel := context.WithTimeout(ctx, streamWriteWait)
	defer cancel()
	return wsjson.Write(writeCtx, conn, ms)
}
