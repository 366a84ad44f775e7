package collector

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"CoinSentinel/internal/model"
)

// errResubscribe ends a connection whose asset list changed.
var errResubscribe = errors.New("asset list changed")

// PriceStream keeps the latest trade price per asset from a CoinCap-style
// WebSocket feed. Each message is a JSON object of asset id to price string.
type PriceStream struct {
	ReconnectDelay    time.Duration
	MaxReconnectDelay time.Duration

	base   url.URL
	log    *zap.Logger
	resub  chan struct{}
	mu     sync.RWMutex
	assets []string
	prices map[string]model.PricePoint
}

// NewPriceStream subscribes to assets on baseURL, e.g. wss://ws.coincap.io/prices.
func NewPriceStream(baseURL string, assets []string, log *zap.Logger) (*PriceStream, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse stream url: %w", err)
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &PriceStream{
		ReconnectDelay:    2 * time.Second,
		MaxReconnectDelay: 30 * time.Second,
		base:              *u,
		log:               log.With(zap.String("component", "price_stream")),
		resub:             make(chan struct{}, 1),
		assets:            append([]string(nil), assets...),
		prices:            make(map[string]model.PricePoint),
	}, nil
}

// URL is the subscription URL for the current asset list.
func (s *PriceStream) URL() string {
	s.mu.RLock()
	assets := strings.Join(s.assets, ",")
	s.mu.RUnlock()

	u := s.base
	q := u.Query()
	q.Set("assets", assets)
	u.RawQuery = q.Encode()
	return u.String()
}

// SetAssets replaces the subscription. A running stream reconnects with the new list.
func (s *PriceStream) SetAssets(assets []string) {
	s.mu.Lock()
	s.assets = append([]string(nil), assets...)
	s.mu.Unlock()

	select {
	case s.resub <- struct{}{}:
	default:
	}
}

// Latest returns the most recent price seen for asset.
func (s *PriceStream) Latest(asset string) (model.PricePoint, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.prices[asset]
	return p, ok
}

// Run connects and reads until ctx is cancelled, reconnecting with exponential backoff.
func (s *PriceStream) Run(ctx context.Context) error {
	delay := s.ReconnectDelay
	for {
		if ctx.Err() != nil {
			return nil
		}

		err := s.runOnce(ctx)
		if err == nil {
			return nil
		}
		if errors.Is(err, errResubscribe) {
			s.log.Info("resubscribing", zap.String("url", s.URL()))
			delay = s.ReconnectDelay
			continue
		}
		s.log.Warn("stream disconnected", zap.Error(err), zap.Duration("retry_in", delay))

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(delay):
		}

		delay *= 2
		if delay > s.MaxReconnectDelay {
			delay = s.MaxReconnectDelay
		}
	}
}

// runOnce returns nil only when ctx was cancelled.
func (s *PriceStream) runOnce(ctx context.Context) error {
	// The URL below already reflects any pending change.
	select {
	case <-s.resub:
	default:
	}

	target := s.URL()
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, target, nil)
	if err != nil {
		return err
	}
	defer conn.Close()
	s.log.Info("stream connected", zap.String("url", target))

	var resubscribing atomic.Bool
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, "shutdown"))
			conn.Close()
		case <-s.resub:
			resubscribing.Store(true)
			conn.Close()
		case <-done:
		}
	}()

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			if resubscribing.Load() {
				return errResubscribe
			}
			return err
		}
		if err := s.apply(raw, time.Now().UTC()); err != nil {
			s.log.Debug("skipping message", zap.Error(err), zap.ByteString("raw", raw))
		}
	}
}

func (s *PriceStream) apply(raw []byte, at time.Time) error {
	var msg map[string]string
	if err := json.Unmarshal(raw, &msg); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for asset, v := range msg {
		price, err := toFloat(v)
		if err != nil || price <= 0 {
			continue
		}
		s.prices[asset] = model.PricePoint{Time: at, Price: price}
	}
	return nil
}
