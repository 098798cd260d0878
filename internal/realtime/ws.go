package realtime

import (
	"sync"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"
)

// Conn is the part of *websocket.Conn the manager writes to.
type Conn interface {
	WriteMessage(messageType int, data []byte) error
	Close() error
}

type Client struct {
	conn     Conn
	writeMu  sync.Mutex
	WorldID  string
	ClientID string
}

func NewClient(conn Conn, worldID, clientID string) *Client {
	return &Client{conn: conn, WorldID: worldID, ClientID: clientID}
}

// Send writes one text frame. gorilla connections allow a single writer, so
// broadcasts and direct replies are serialised here.
func (c *Client) Send(msg []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.conn.WriteMessage(websocket.TextMessage, msg)
}

type RoomManager struct {
	mu    sync.RWMutex
	rooms map[string][]*Client // worldID -> clients
}

var Manager = NewRoomManager()

func NewRoomManager() *RoomManager {
	return &RoomManager{
		rooms: make(map[string][]*Client),
	}
}

func (m *RoomManager) AddClient(c *Client) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rooms[c.WorldID] = append(m.rooms[c.WorldID], c)
}

func (m *RoomManager) RemoveClient(c *Client) {
	m.mu.Lock()
	defer m.mu.Unlock()

	clients := m.rooms[c.WorldID]
	newList := make([]*Client, 0, len(clients))
	for _, cl := range clients {
		if cl != c {
			newList = append(newList, cl)
		}
	}
	if len(newList) == 0 {
		delete(m.rooms, c.WorldID)
	} else {
		m.rooms[c.WorldID] = newList
	}
}

// Broadcast sends msg to every client in the world and returns how many
// writes succeeded. Failed clients are left for their read loop to remove.
func (m *RoomManager) Broadcast(worldID string, msg []byte) int {
	m.mu.RLock()
	clients := append([]*Client(nil), m.rooms[worldID]...)
	m.mu.RUnlock()

	delivered := 0
	for _, c := range clients {
		if err := c.Send(msg); err != nil {
			log.Warn().Err(err).Str("client_id", c.ClientID).Msg("Failed to deliver broadcast.")
			continue
		}
		delivered++
	}
	return delivered
}

func (m *RoomManager) Count(worldID string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.rooms[worldID])
}

func (m *RoomManager) Total() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	total := 0
	for _, clients := range m.rooms {
		total += len(clients)
	}
	return total
}

// Collector exposes the number of attached websocket clients.
func (m *RoomManager) Collector() prometheus.Collector {
	return prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: "sandbox",
		Name:      "websocket_clients",
		Help:      "Websocket clients currently subscribed to world updates.",
	}, func() float64 {
		return float64(m.Total())
	})
}
