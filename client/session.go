// Package client is the player side of the arena channel. A Session speaks the
// websocket envelope protocol, sends the owned player's join, update and leave
// and merges every snapshot it receives into a local world.
package client

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/4cecoder/blobarena/config"
	"github.com/4cecoder/blobarena/game"
	"github.com/4cecoder/blobarena/models"
	"github.com/gorilla/websocket"
)

// ErrClosed is returned by sends on a closed session.
var ErrClosed = errors.New("session closed")

const writeWait = 10 * time.Second

// Session is one connection to the arena server. It implements game.Channel.
type Session struct {
	conn    *websocket.Conn
	writeMu sync.Mutex

	mu    sync.Mutex
	world *game.World

	configs   chan config.Game
	done      chan struct{}
	closeOnce sync.Once
	err       error
}

var _ game.Channel = (*Session)(nil)

// Dial connects to url and starts reading. Snapshots are ignored until a world
// is attached.
func Dial(ctx context.Context, url string) (*Session, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", url, err)
	}
	s := &Session{
		conn:    conn,
		configs: make(chan config.Game, 1),
		done:    make(chan struct{}),
	}
	go s.readLoop()
	return s, nil
}

// Attach routes incoming snapshots into w.
func (s *Session) Attach(w *game.World) {
	s.mu.Lock()
	s.world = w
	s.mu.Unlock()
}

// FetchConfig sends getConfig and waits for the server's postConfig.
func (s *Session) FetchConfig(ctx context.Context) (config.Game, error) {
	if err := s.send(models.EventGetConfig, nil); err != nil {
		return config.Game{}, err
	}
	select {
	case cfg := <-s.configs:
		return cfg.Normalize(), nil
	case <-s.done:
		return config.Game{}, s.Err()
	case <-ctx.Done():
		return config.Game{}, ctx.Err()
	}
}

func (s *Session) Join(rec models.PlayerRecord) error {
	return s.send(models.EventAddPlayer, rec)
}

func (s *Session) Update(rec models.PlayerRecord) error {
	return s.send(models.EventPostPlayer, rec)
}

func (s *Session) Leave(guid string) error {
	return s.send(models.EventRemovePlayer, guid)
}

func (s *Session) send(eventType string, payload any) error {
	select {
	case <-s.done:
		return ErrClosed
	default:
	}
	frame, err := models.Encode(eventType, payload)
	if err != nil {
		return err
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := s.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
		return fmt.Errorf("write %s: %w", eventType, err)
	}
	return nil
}

func (s *Session) readLoop() {
	for {
		_, msg, err := s.conn.ReadMessage()
		if err != nil {
			s.closeWith(err)
			return
		}
		env, err := models.DecodeEnvelope(msg)
		if err != nil {
			log.Printf("[client] %v", err)
			continue
		}
		switch env.Type {
		case models.EventPostConfig:
			cfg, err := models.DecodePayload[config.Game](env)
			if err != nil {
				log.Printf("[client] bad postConfig: %v", err)
				continue
			}
			select {
			case s.configs <- cfg:
			default:
			}
		case models.EventGetGameData:
			s.applySnapshot(env.Payload)
		default:
			log.Printf("[client] unknown message type %q", env.Type)
		}
	}
}

func (s *Session) applySnapshot(payload []byte) {
	s.mu.Lock()
	w := s.world
	s.mu.Unlock()
	if w == nil {
		return
	}
	records, dropped, err := models.DecodeGameData(payload)
	if err != nil {
		log.Printf("[client] %v", err)
		return
	}
	if dropped > 0 {
		log.Printf("[client] dropped %d malformed snapshot entries", dropped)
	}
	w.Reconcile(records)
}

// Done is closed when the connection ends.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Err is the reason the session ended, or nil while it is open.
func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

func (s *Session) closeWith(err error) {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		if err == nil {
			err = ErrClosed
		}
		s.err = err
		s.mu.Unlock()
		close(s.done)
		s.conn.Close()
	})
}

// Close sends a close frame and tears the connection down.
func (s *Session) Close() error {
	s.writeMu.Lock()
	_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
	_ = s.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	s.writeMu.Unlock()
	s.closeWith(ErrClosed)
	return nil
}
