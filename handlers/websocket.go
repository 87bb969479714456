package handlers

import (
	"errors"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/4cecoder/blobarena/config"
	"github.com/4cecoder/blobarena/models"
	"github.com/4cecoder/blobarena/store"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// Server is the arena's network surface: it relays player records between
// websocket clients and the state store.
type Server struct {
	store    *store.Store
	cfg      config.Game
	queue    *MessageQueue
	upgrader websocket.Upgrader

	clientsMutex sync.Mutex
	clients      map[string]*Client
}

func NewServer(st *store.Store, cfg config.Game) *Server {
	return &Server{
		store: st,
		cfg:   cfg,
		queue: NewMessageQueue(DefaultQueueLimit),
		upgrader: websocket.Upgrader{
			ReadBufferSize:    1024,
			WriteBufferSize:   1024,
			CheckOrigin:       func(r *http.Request) bool { return true },
			EnableCompression: false,
		},
		clients: make(map[string]*Client),
	}
}

func (s *Server) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Println(err)
		return
	}

	client := NewClient(conn, uuid.New().String(), s.queue)
	s.clientsMutex.Lock()
	s.clients[client.ID] = client
	s.clientsMutex.Unlock()
	log.Printf("[ws] client %s connected from %s", client.ID, r.RemoteAddr)

	go client.WritePump()
	client.ReadPump(s.handleMessage)

	s.disconnect(client)
}

// disconnect leaves every guid the client registered so a lost removePlayer
// does not leave its record behind.
func (s *Server) disconnect(c *Client) {
	for _, guid := range c.Guids() {
		if s.store.Leave(guid) {
			log.Printf("[ws] client %s closed, removed player %s", c.ID, guid)
		}
	}
	s.clientsMutex.Lock()
	delete(s.clients, c.ID)
	s.clientsMutex.Unlock()
	log.Printf("[ws] client %s disconnected", c.ID)
}

// ClientCount is the number of open connections.
func (s *Server) ClientCount() int {
	s.clientsMutex.Lock()
	defer s.clientsMutex.Unlock()
	return len(s.clients)
}

func (s *Server) handleMessage(c *Client, message []byte) {
	env, err := models.DecodeEnvelope(message)
	if err != nil {
		log.Printf("[ws] client %s: %v", c.ID, err)
		return
	}

	switch env.Type {
	case models.EventGetConfig:
		s.send(c, models.EventPostConfig, s.cfg)

	case models.EventAddPlayer:
		rec, err := models.DecodeRecord(env.Payload)
		if err != nil {
			log.Printf("[ws] client %s: addPlayer: %v", c.ID, err)
			return
		}
		if err := s.store.Join(rec); err != nil {
			log.Printf("[ws] client %s: addPlayer: %v", c.ID, err)
			return
		}
		c.register(rec.GUID)
		log.Printf("[ws] client %s joined player %s (%s)", c.ID, rec.GUID, rec.Name)
		if c.startBroadcast() {
			go s.broadcastLoop(c)
		}

	case models.EventPostPlayer:
		rec, err := models.DecodeRecord(env.Payload)
		if err != nil {
			log.Printf("[ws] client %s: postPlayer: %v", c.ID, err)
			return
		}
		if !c.owns(rec.GUID) {
			log.Printf("[ws] client %s: postPlayer for player %s it did not join", c.ID, rec.GUID)
			return
		}
		err = s.store.Update(rec)
		if errors.Is(err, store.ErrUnknownGuid) {
			// The store reaped the record while its owner was still connected.
			log.Printf("[ws] client %s: player %s was reaped, joining it again", c.ID, rec.GUID)
			err = s.store.Join(rec)
		}
		if err != nil {
			log.Printf("[ws] client %s: postPlayer: %v", c.ID, err)
		}

	case models.EventRemovePlayer:
		guid, err := models.DecodePayload[string](env)
		if err != nil || guid == "" {
			log.Printf("[ws] client %s: removePlayer: bad guid payload", c.ID)
			return
		}
		if !c.owns(guid) {
			log.Printf("[ws] client %s: removePlayer for player %s it did not join", c.ID, guid)
			return
		}
		c.unregister(guid)
		s.store.Leave(guid)
		log.Printf("[ws] client %s removed player %s", c.ID, guid)

	default:
		log.Printf("[ws] client %s: unknown message type %q", c.ID, env.Type)
	}
}

// broadcastLoop pushes a full snapshot to c once per tick until it closes.
func (s *Server) broadcastLoop(c *Client) {
	ticker := time.NewTicker(s.cfg.TickPeriod())
	defer ticker.Stop()
	for {
		select {
		case <-c.Done():
			return
		case <-ticker.C:
			s.send(c, models.EventGetGameData, models.GameData{Players: s.store.Snapshot()})
		}
	}
}

func (s *Server) send(c *Client, eventType string, payload any) {
	frame, err := models.Encode(eventType, payload)
	if err != nil {
		log.Printf("[ws] error encoding %s: %v", eventType, err)
		return
	}
	c.SendMessage(frame)
}
