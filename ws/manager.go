package ws

import (
	"context"
	crand "crypto/rand"
	"encoding/binary"
	"errors"
	"log"
	"math/rand"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/msmithfl/painting-game-server/game"
	"github.com/msmithfl/painting-game-server/util"
	"github.com/samber/lo"
)

const inboxSize = 256

type ClientList map[string]*Client

// Manager is the session coordinator. Every client, registry and prompt
// mutation runs as a closure on the single goroutine started by Start, in the
// order the closures were submitted, so none of that state needs a lock.
type Manager struct {
	clients  ClientList
	handlers map[string]EventHandler
	registry *game.Registry
	prompts  *game.PromptGenerator
	config   *util.Config
	upgrader websocket.Upgrader

	inbox     chan func()
	ctx       context.Context
	cancel    context.CancelFunc
	done      chan struct{}
	startOnce sync.Once
}

func NewManager(config *util.Config) *Manager {
	rng := newRand()
	ctx, cancel := context.WithCancel(context.Background())

	m := &Manager{
		clients:  make(ClientList),
		handlers: make(map[string]EventHandler),
		registry: game.NewRegistry(rng, config.ReapEmptyRooms),
		prompts:  game.NewPromptGenerator(rng),
		config:   config,
		inbox:    make(chan func(), inboxSize),
		ctx:      ctx,
		cancel:   cancel,
		done:     make(chan struct{}),
	}

	m.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     m.checkOrigin,
	}

	m.setupEventHandlers()

	return m
}

func (m *Manager) setupEventHandlers() {
	m.handlers[EventJoinRoom] = JoinRoom
	m.handlers[EventPlayerReady] = PlayerReady
	m.handlers[EventSendScore] = SendScore
	m.handlers[EventSendCanvasData] = SendCanvasData
	m.handlers[EventGetUsers] = GetUsers
	m.handlers[EventSetUsedPaintings] = SetUsedPaintings
	m.handlers[EventGenerateNumber] = GenerateNumber
}

// Start launches the event loop. Calling it more than once has no effect.
func (m *Manager) Start() {
	m.startOnce.Do(func() {
		go m.run()
	})
}

// Stop ends the event loop and waits for the closure in flight to finish.
// Pending closures are discarded.
func (m *Manager) Stop() {
	m.cancel()
	// never started: nothing will close done
	m.startOnce.Do(func() {
		close(m.done)
	})
	<-m.done
}

func (m *Manager) run() {
	defer close(m.done)

	for {
		select {
		case <-m.ctx.Done():
			return
		case fn := <-m.inbox:
			fn()
		}
	}
}

// submit queues fn for the event loop. It reports false if the manager or
// ctx stopped first.
func (m *Manager) submit(ctx context.Context, fn func()) bool {
	if m.ctx.Err() != nil || ctx.Err() != nil {
		return false
	}

	select {
	case m.inbox <- fn:
		return true
	case <-m.ctx.Done():
		return false
	case <-ctx.Done():
		return false
	}
}

// call runs fn on the event loop and waits for it to return.
func (m *Manager) call(ctx context.Context, fn func()) error {
	finished := make(chan struct{})

	ok := m.submit(ctx, func() {
		fn()
		close(finished)
	})
	if !ok {
		return m.stopErr(ctx)
	}

	select {
	case <-finished:
		return nil
	case <-m.ctx.Done():
		return ErrManagerStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (m *Manager) stopErr(ctx context.Context) error {
	if m.ctx.Err() != nil {
		return ErrManagerStopped
	}
	return ctx.Err()
}

func (m *Manager) dispatch(ctx context.Context, evt Event, c *Client) bool {
	return m.submit(ctx, func() {
		// events read after the client was disconnected are dropped
		if _, ok := m.clients[c.ID]; !ok {
			return
		}

		if err := m.routeEvent(ctx, evt, c); err != nil {
			log.Printf("error handling %v event from client %v: %v", evt.Type, c.ID, err)
			c.PushError(evt.TraceID, err)
		}
	})
}

// reject reports err to c from the event loop, so it stays ordered with the
// replies to events c sent earlier.
func (m *Manager) reject(ctx context.Context, c *Client, traceID string, err error) bool {
	return m.submit(ctx, func() {
		c.PushError(traceID, err)
	})
}

func (m *Manager) routeEvent(ctx context.Context, evt Event, c *Client) error {
	if handler, ok := m.handlers[evt.Type]; ok {
		if err := handler(ctx, evt, c); err != nil {
			return err
		}

		return nil
	}

	return ErrUnknownEvent
}

func (m *Manager) connect(client *Client) bool {
	return m.submit(m.ctx, func() {
		m.clients[client.ID] = client
	})
}

func (m *Manager) disconnect(client *Client) bool {
	return m.submit(m.ctx, func() {
		if _, ok := m.clients[client.ID]; !ok {
			return
		}
		delete(m.clients, client.ID)

		log.Printf("User %v disconnected", client.ID)

		roomID, ok := m.registry.Leave(client.ID)
		if !ok {
			return
		}

		if err := m.emitUserList(roomID); err != nil {
			log.Printf("error emitting user list to room %v: %v", roomID, err)
		}
	})
}

// EmitToRoom queues evt on every connection currently in roomID.
func (m *Manager) EmitToRoom(roomID string, evt Event) {
	for _, member := range m.registry.ListMembers(roomID) {
		if client, ok := m.clients[member.ID]; ok {
			client.PushToEgress(evt)
		}
	}
}

func (m *Manager) emitUserList(roomID string) error {
	evt, err := NewEvent(EventUpdateUserList, m.registry.ListMembers(roomID))
	if err != nil {
		return err
	}

	m.EmitToRoom(roomID, evt)
	return nil
}

// Members returns a snapshot of roomID's members.
func (m *Manager) Members(ctx context.Context, roomID string) ([]game.Member, error) {
	var members []game.Member
	err := m.call(ctx, func() {
		members = m.registry.ListMembers(roomID)
	})
	return members, err
}

// Rooms returns every known room with its member count.
func (m *Manager) Rooms(ctx context.Context) ([]game.RoomSummary, error) {
	var rooms []game.RoomSummary
	err := m.call(ctx, func() {
		rooms = m.registry.Rooms()
	})
	return rooms, err
}

// Websocket connection handler
func (m *Manager) ServeWS(c *gin.Context) {
	conn, err := m.upgrader.Upgrade(c.Writer, c.Request, nil)

	if err != nil {
		log.Printf("error upgrading to websocket connection: %v\n", err)
		return
	}

	client := NewClient(conn, m)

	if !m.connect(client) {
		conn.Close()
		return
	}

	ctx, cancel := context.WithCancel(c.Request.Context())

	defer func() {
		cancel()
		m.disconnect(client)

		err := client.connection.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(writeWait),
		)
		if err != nil && !errors.Is(err, websocket.ErrCloseSent) {
			log.Println("Error sending close message:", err)
		}
		client.connection.Close()
	}()

	go client.readMessages(ctx)
	go client.writeMessages(ctx)

	select {
	case err = <-client.Err():
		log.Printf("Client %v error: %v", client.ID, err)
	case <-m.ctx.Done():
	}
}

func (m *Manager) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	// non-browser clients send no Origin
	if origin == "" {
		return true
	}
	return lo.Contains(m.config.AllowedOrigins, origin)
}

func newRand() *rand.Rand {
	var b [8]byte
	if _, err := crand.Read(b[:]); err != nil {
		log.Printf("read random seed: %v, falling back to clock", err)
		return rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return rand.New(rand.NewSource(int64(binary.LittleEndian.Uint64(b[:]))))
}
