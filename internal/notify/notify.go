// Package notify pushes vote notifications to review authors over UDP.
// Clients announce themselves with a register datagram carrying their user
// id; every later vote on one of their reviews is sent to that address.
package notify

import (
	"errors"
	"net"
	"sync"

	"github.com/goccy/go-json"

	"cinehub/internal/logging"
	synchub "cinehub/internal/sync"
)

const (
	RegisterMessageType = "register"
	VoteMessageType     = "review_voted"
)

type RegisterMessage struct {
	Type   string `json:"type"`
	UserID string `json:"user_id"`
}

type VoteMessage struct {
	Type     string `json:"type"`
	ReviewID string `json:"review_id"`
	ItemID   string `json:"item_id"`
	ItemType string `json:"item_type"`
	Likes    int    `json:"likes"`
	Dislikes int    `json:"dislikes"`
}

type Client struct {
	UserID string
	Addr   *net.UDPAddr
}

// Registry maps a user id to the last address it registered from.
type Registry struct {
	mu      sync.RWMutex
	clients map[string]Client
}

func NewRegistry() *Registry {
	return &Registry{clients: make(map[string]Client)}
}

func (r *Registry) Register(userID string, addr *net.UDPAddr) {
	if userID == "" || addr == nil {
		return
	}
	r.mu.Lock()
	r.clients[userID] = Client{UserID: userID, Addr: addr}
	r.mu.Unlock()
}

func (r *Registry) Remove(userID string) {
	r.mu.Lock()
	delete(r.clients, userID)
	r.mu.Unlock()
}

func (r *Registry) Lookup(userID string) (Client, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.clients[userID]
	return c, ok
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.clients)
}

type Server struct {
	Addr     string
	Registry *Registry

	mu   sync.Mutex
	conn *net.UDPConn
}

func NewServer(addr string, registry *Registry) *Server {
	if registry == nil {
		registry = NewRegistry()
	}
	return &Server{Addr: addr, Registry: registry}
}

// Run reads register datagrams until Close. It returns nil after Close.
func (s *Server) Run() error {
	udpAddr, err := net.ResolveUDPAddr("udp", s.Addr)
	if err != nil {
		return err
	}
	conn, err := net.ListenUDP("udp", udpAddr)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.conn = conn
	s.mu.Unlock()

	logging.Info().Str("addr", conn.LocalAddr().String()).Msg("udp notify listening")

	buf := make([]byte, 2048)
	for {
		n, addr, err := conn.ReadFromUDP(buf)
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			return err
		}
		msg, err := parseRegisterMessage(buf[:n])
		if err != nil {
			logging.Warn().Err(err).Str("remote", addr.String()).Msg("invalid udp message")
			continue
		}
		if msg.Type != RegisterMessageType {
			continue
		}
		s.Registry.Register(msg.UserID, addr)
		logging.Debug().Str("user_id", msg.UserID).Str("remote", addr.String()).Msg("udp client registered")
	}
}

// ListenAddr is the bound address once Run has started listening.
func (s *Server) ListenAddr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn == nil {
		return nil
	}
	return s.conn.LocalAddr()
}

func (s *Server) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn == nil {
		return nil
	}
	return s.conn.Close()
}

// Publish forwards vote events to the review's author. Other events are
// ignored.
func (s *Server) Publish(v any) {
	ev, ok := v.(synchub.ReviewEvent)
	if !ok || ev.Type != synchub.EventReviewVoted || ev.AuthorID == "" {
		return
	}
	client, ok := s.Registry.Lookup(ev.AuthorID)
	if !ok {
		return
	}

	payload, err := json.Marshal(VoteMessage{
		Type:     VoteMessageType,
		ReviewID: ev.ReviewID,
		ItemID:   ev.ItemID,
		ItemType: ev.ItemType,
		Likes:    ev.Likes,
		Dislikes: ev.Dislikes,
	})
	if err != nil {
		logging.Error().Err(err).Msg("marshal vote notification")
		return
	}
	s.sendWithRetry(client, payload)
}

func (s *Server) sendWithRetry(client Client, payload []byte) {
	if err := s.sendOnce(client, payload); err == nil {
		return
	}
	if err := s.sendOnce(client, payload); err != nil {
		logging.Warn().Err(err).Str("user_id", client.UserID).Msg("udp notify failed, dropping client")
		s.Registry.Remove(client.UserID)
	}
}

func (s *Server) sendOnce(client Client, payload []byte) error {
	s.mu.Lock()
	conn := s.conn
	s.mu.Unlock()
	if conn == nil {
		return errors.New("notify server not running")
	}
	if client.Addr == nil {
		return errors.New("missing client address")
	}
	_, err := conn.WriteToUDP(payload, client.Addr)
	return err
}

func parseRegisterMessage(data []byte) (RegisterMessage, error) {
	var msg RegisterMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return msg, err
	}
	if msg.UserID == "" || msg.Type == "" {
		return msg, errors.New("missing required fields")
	}
	return msg, nil
}
