package ws

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"
)

var (
	pongWait     = 10 * time.Second
	pingInterval = (pongWait * 9) / 10
	writeWait    = 5 * time.Second
)

// Client is one websocket connection. Its ID doubles as the member id once
// the connection joins a room.
type Client struct {
	ID         string
	connection *websocket.Conn
	manager    *Manager
	egress     chan Event
	limiter    *rate.Limiter
	err        chan error
}

func NewClient(conn *websocket.Conn, manager *Manager) *Client {
	return &Client{
		ID:         uuid.NewString(),
		connection: conn,
		manager:    manager,
		egress:     make(chan Event, manager.config.EgressBuffer),
		limiter:    rate.NewLimiter(rate.Limit(manager.config.EventsPerSecond), manager.config.EventBurst),
		// both pumps may report before the handler stops listening
		err: make(chan error, 2),
	}
}

// Reads incoming messages from the clients websocket connection
func (c *Client) readMessages(ctx context.Context) {
	c.connection.SetReadLimit(c.manager.config.MaxMessageSize)

	if err := c.connection.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		c.handleError(err)
		return
	}

	c.connection.SetPongHandler(c.pongHandler)

	for {
		select {
		case <-ctx.Done():
			return
		default:
			_, payload, err := c.connection.ReadMessage()

			if err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
					log.Printf("error reading message: %v", err)
				}
				c.handleError(err)
				return
			}

			var evt Event
			var ok bool

			// every frame is charged, decodable or not
			allowed := c.limiter.Allow()
			decodeErr := json.Unmarshal(payload, &evt)

			switch {
			case !allowed:
				log.Printf("client %v exceeded its event rate, dropping %v", c.ID, evt.Type)
				ok = c.manager.reject(ctx, c, evt.TraceID, ErrRateLimited)
			case decodeErr != nil:
				ok = c.manager.reject(ctx, c, "", ErrMalformedPayload)
			default:
				ok = c.manager.dispatch(ctx, evt, c)
			}

			if !ok {
				return
			}
		}
	}
}

// writes messages pushed to the client's egress channel
func (c *Client) writeMessages(ctx context.Context) {
	ticker := time.NewTicker(pingInterval)

	defer func() {
		ticker.Stop()
	}()

	for {
		select {
		// if the context is cancelled, return
		case <-ctx.Done():
			return
		case message := <-c.egress:
			data, err := json.Marshal(message)

			if err != nil {
				log.Printf("error marshalling %v event for client %v: %v", message.Type, c.ID, err)
				continue
			}

			c.connection.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.connection.WriteMessage(websocket.TextMessage, data); err != nil {
				c.handleError(err)
				return
			}
		case <-ticker.C:
			c.connection.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.connection.WriteMessage(websocket.PingMessage, []byte("")); err != nil {
				c.handleError(err)
				return
			}
		}
	}
}

// Sets a new read deadline when a pong is received for a ping message.
func (c *Client) pongHandler(pongMsg string) error {
	return c.connection.SetReadDeadline(time.Now().Add(pongWait))
}

// Push error to client error channel. ServeWS waits on it to know when
// either pump has stopped, then closes the connection and disconnects the
// client.
func (c *Client) handleError(e error) {
	select {
	case c.err <- e:
	default:
	}
}

// Returns the error channel
func (c *Client) Err() chan error {
	return c.err
}

// Creates an event and pushes to client's egress
func (c *Client) PushEventToEgress(evtType string, payload any) error {
	evt, err := NewEvent(evtType, payload)
	if err != nil {
		return err
	}
	c.PushToEgress(evt)
	return nil
}

// PushToEgress queues evt for delivery. It never blocks: when the client's
// queue is full the event is dropped.
func (c *Client) PushToEgress(evt Event) {
	select {
	case c.egress <- evt:
	default:
		log.Printf("egress full for client %v, dropping %v event", c.ID, evt.Type)
	}
}

// PushError reports err to the client as an error event tied to traceID.
func (c *Client) PushError(traceID string, err error) {
	var details []string
	var malformed *MalformedPayloadError
	if errors.As(err, &malformed) {
		details = malformed.Details
	}

	evt, evtErr := NewErrorEvent(traceID, err.Error(), details...)
	if evtErr != nil {
		log.Printf("error creating error event for client %v: %v", c.ID, evtErr)
		return
	}

	c.PushToEgress(evt)
}
