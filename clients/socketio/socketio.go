package socketio

import (
	"fmt"
	"log"
	"strings"
	"sync"

	"github.com/gorilla/mux"
	"github.com/zishang520/socket.io/v2/socket"

	"msgbridge/utils"
)

// DashboardClient is one connected dashboard session.
type DashboardClient struct {
	ID     string
	Socket *socket.Socket
}

// SocketIOPublisher implements clients.RealtimePublisher over a Socket.IO
// server that dashboard clients connect to. Publish broadcasts a topic to
// every connected client; callers treat failures as best-effort.
type SocketIOPublisher struct {
	server            *socket.Server
	clients           []*DashboardClient
	clientsBySocketID map[string]*DashboardClient
	mutex             sync.RWMutex
	sharedKey         string
}

func NewSocketIOPublisher(sharedKey string) *SocketIOPublisher {
	server := socket.NewServer(nil, nil)
	publisher := &SocketIOPublisher{
		server:            server,
		clients:           make([]*DashboardClient, 0),
		clientsBySocketID: make(map[string]*DashboardClient),
		sharedKey:         sharedKey,
	}

	err := server.On("connection", func(sockets ...any) {
		sock := sockets[0].(*socket.Socket)
		publisher.handleConnection(sock)
	})
	utils.AssertInvariant(err == nil, fmt.Sprintf("Failed to register connection handler: %v", err))

	return publisher
}

func (p *SocketIOPublisher) RegisterWithRouter(router *mux.Router) {
	log.Printf("🚀 Registering Socket.IO server on /socket.io/ endpoint")
	router.PathPrefix("/socket.io/").Handler(p.server.ServeHandler(nil))
	log.Printf("✅ Socket.IO server registered on /socket.io/")
}

// getHeader performs a case-insensitive lookup for a header in the handshake headers
func getHeader(headers map[string][]string, headerName string) (string, bool) {
	for key, value := range headers {
		if strings.EqualFold(key, headerName) {
			if len(value) > 0 && value[0] != "" {
				return value[0], true
			}
		}
	}
	return "", false
}

func (p *SocketIOPublisher) handleConnection(sock *socket.Socket) {
	log.Printf("🔗 New dashboard connection attempt, socket ID: %s", sock.Id())

	headers := sock.Handshake().Headers
	key, exists := getHeader(headers, "X-DASHBOARD-KEY")
	if !exists {
		log.Printf("❌ Rejecting dashboard connection: missing X-DASHBOARD-KEY header")
		sock.Disconnect(true)
		return
	}

	if p.sharedKey == "" || key != p.sharedKey {
		log.Printf("❌ Rejecting dashboard connection: invalid shared key")
		sock.Disconnect(true)
		return
	}

	client := &DashboardClient{
		ID:     string(sock.Id()),
		Socket: sock,
	}
	p.addClient(client)
	log.Printf("✅ Dashboard client connected: %s (%d total)", client.ID, p.ClientCount())

	err := sock.On("disconnect", func(...any) {
		p.removeClient(string(sock.Id()))
		log.Printf("🔌 Dashboard client disconnected: %s (%d total)", sock.Id(), p.ClientCount())
	})
	if err != nil {
		log.Printf("⚠️ Failed to register disconnect handler for client %s: %v", client.ID, err)
	}
}

func (p *SocketIOPublisher) addClient(client *DashboardClient) {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	p.clients = append(p.clients, client)
	p.clientsBySocketID[client.ID] = client
}

func (p *SocketIOPublisher) removeClient(clientID string) {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	for i, client := range p.clients {
		if client.ID == clientID {
			p.clients = append(p.clients[:i], p.clients[i+1:]...)
			break
		}
	}
	delete(p.clientsBySocketID, clientID)
}

// ClientCount returns the number of connected dashboard clients.
func (p *SocketIOPublisher) ClientCount() int {
	p.mutex.RLock()
	defer p.mutex.RUnlock()
	return len(p.clients)
}

// Publish broadcasts a payload under the given topic to every connected
// dashboard client. Per-client emit failures are collected; the first is
// returned so callers can log it.
func (p *SocketIOPublisher) Publish(topic string, payload any) error {
	p.mutex.RLock()
	targets := make([]*DashboardClient, len(p.clients))
	copy(targets, p.clients)
	p.mutex.RUnlock()

	var firstErr error
	for _, client := range targets {
		if err := client.Socket.Emit(topic, payload); err != nil {
			log.Printf("⚠️ Failed to publish %s to client %s: %v", topic, client.ID, err)
			if firstErr == nil {
				firstErr = fmt.Errorf("failed to publish to client %s: %w", client.ID, err)
			}
		}
	}
	return firstErr
}
