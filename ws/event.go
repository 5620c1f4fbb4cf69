package ws

import (
	"context"
	"encoding/json"
	"fmt"
)

type Event struct {
	Type    string          `json:"type"`
	TraceID string          `json:"trace_id"`
	Payload json.RawMessage `json:"payload"`
}

type EventHandler func(ctx context.Context, evt Event, c *Client) error

// inbound
const (
	EventJoinRoom         = "joinRoom"
	EventPlayerReady      = "playerReady"
	EventSendScore        = "sendScore"
	EventSendCanvasData   = "sendCanvasData"
	EventGetUsers         = "getUsers"
	EventSetUsedPaintings = "setUsedPaintings"
	EventGenerateNumber   = "generateNumber"
)

// outbound
const (
	EventUpdateUserList = "updateUserList"
	EventReturnUsers    = "returnUsers"
	EventReceiveNumber  = "receiveNumber"
	EventError          = "error"
)

type PayloadError struct {
	Message string   `json:"message"`
	Errors  []string `json:"errors,omitempty"`
}

type PayloadJoinRoom struct {
	RoomName string `json:"roomName" validate:"required,max=128"`
	UserName string `json:"userName" validate:"required"`
}

type PayloadPlayerReady struct {
	IsReady *bool `json:"isReady" validate:"required"`
}

type PayloadSendScore struct {
	Score *int `json:"score" validate:"required"`
}

type PayloadSendCanvasData struct {
	CanvasData []byte `json:"canvasData"`
}

type PayloadRoom struct {
	RoomName string `json:"roomName" validate:"required"`
}

type PayloadSetUsedPaintings struct {
	RoomName    string `json:"roomName" validate:"required"`
	PaintingNum *int   `json:"paintingNum" validate:"required,gte=0,lte=4"`
}

func NewEvent(evtType string, payload any) (Event, error) {
	b, err := json.Marshal(payload)

	if err != nil {
		return Event{}, err
	}

	evt := NewEventStruct(evtType, b, "")

	return evt, nil
}

func NewErrorEvent(traceId, message string, details ...string) (Event, error) {
	payload := PayloadError{Message: message, Errors: details}
	b, err := json.Marshal(payload)

	if err != nil {
		return Event{}, err
	}

	evt := NewEventStruct(fmt.Sprintf("%v_%v", EventError, traceId), b, traceId)

	return evt, nil
}

func NewEventStruct(evtType string, payload []byte, traceId string) Event {
	return Event{
		Type:    evtType,
		TraceID: traceId,
		Payload: payload,
	}
}
