package game

import (
	"errors"
	"math/rand"
)

var ErrDuplicateConnection = errors.New("connection already joined a room")

// Icons players can be assigned on join. Several players in one room may
// share an icon.
var Icons = []string{
	"icon-palette",
	"icon-brush",
	"icon-easel",
	"icon-pencil",
	"icon-frame",
	"icon-beret",
}

// Member is a connection's participation record inside exactly one room.
type Member struct {
	ID         string `json:"id"`
	UserName   string `json:"userName"`
	RoomName   string `json:"roomName"`
	IsReady    bool   `json:"isReady"`
	Score      int    `json:"score"`
	PlayerIcon string `json:"playerIcon"`
	CanvasData []byte `json:"canvasData"`
}

func randomIcon(rng *rand.Rand) string {
	return Icons[rng.Intn(len(Icons))]
}
