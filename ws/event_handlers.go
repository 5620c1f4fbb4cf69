package ws

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/msmithfl/painting-game-server/http_utils"
	"github.com/msmithfl/painting-game-server/util"
)

// decodePayload unmarshals and validates an event payload. Anything that
// fails here never reaches the registry.
func decodePayload(e Event, v any) error {
	if err := json.Unmarshal(e.Payload, v); err != nil {
		return &MalformedPayloadError{Event: e.Type, Details: []string{err.Error()}}
	}

	if err := util.Validate.Struct(v); err != nil {
		return &MalformedPayloadError{Event: e.Type, Details: http_utils.ValidationMessages(err)}
	}

	return nil
}

func JoinRoom(ctx context.Context, e Event, c *Client) error {
	var payload PayloadJoinRoom

	if err := decodePayload(e, &payload); err != nil {
		return err
	}

	m := c.manager

	if _, err := m.registry.Join(payload.RoomName, c.ID, payload.UserName); err != nil {
		if current, ok := m.registry.RoomOf(c.ID); ok {
			return fmt.Errorf("join %v: %w (currently in %v)", payload.RoomName, err, current)
		}
		return fmt.Errorf("join %v: %w", payload.RoomName, err)
	}

	log.Printf("%v (%v) joined room: %v", payload.UserName, c.ID, payload.RoomName)

	return m.emitUserList(payload.RoomName)
}

func PlayerReady(ctx context.Context, e Event, c *Client) error {
	var payload PayloadPlayerReady

	if err := decodePayload(e, &payload); err != nil {
		return err
	}

	roomID, ok := c.manager.registry.SetReady(c.ID, *payload.IsReady)
	if !ok {
		log.Printf("ignoring %v from client %v: not in a room", e.Type, c.ID)
		return nil
	}

	return c.manager.emitUserList(roomID)
}

func SendScore(ctx context.Context, e Event, c *Client) error {
	var payload PayloadSendScore

	if err := decodePayload(e, &payload); err != nil {
		return err
	}

	if !c.manager.registry.SetScore(c.ID, *payload.Score) {
		log.Printf("ignoring %v from client %v: not in a room", e.Type, c.ID)
	}

	return nil
}

// SendCanvasData stores the sender's latest drawing. Other members only see
// it in later member list snapshots.
func SendCanvasData(ctx context.Context, e Event, c *Client) error {
	var payload PayloadSendCanvasData

	if err := decodePayload(e, &payload); err != nil {
		return err
	}

	if !c.manager.registry.SetCanvasData(c.ID, payload.CanvasData) {
		log.Printf("ignoring %v from client %v: not in a room", e.Type, c.ID)
	}

	return nil
}

// GetUsers replies to the sender only; unknown rooms yield an empty list.
func GetUsers(ctx context.Context, e Event, c *Client) error {
	var payload PayloadRoom

	if err := decodePayload(e, &payload); err != nil {
		return err
	}

	return c.PushEventToEgress(EventReturnUsers, c.manager.registry.ListMembers(payload.RoomName))
}

func SetUsedPaintings(ctx context.Context, e Event, c *Client) error {
	var payload PayloadSetUsedPaintings

	if err := decodePayload(e, &payload); err != nil {
		return err
	}

	c.manager.prompts.MarkUsed(payload.RoomName, *payload.PaintingNum)

	return nil
}

func GenerateNumber(ctx context.Context, e Event, c *Client) error {
	var payload PayloadRoom

	if err := decodePayload(e, &payload); err != nil {
		return err
	}

	value := c.manager.prompts.Generate(payload.RoomName)

	evt, err := NewEvent(EventReceiveNumber, value)
	if err != nil {
		return err
	}

	c.manager.EmitToRoom(payload.RoomName, evt)

	return nil
}
