package api

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/msmithfl/painting-game-server/http_utils"
	"github.com/msmithfl/painting-game-server/util"
)

func (s *Server) Health(c *gin.Context) {
	http_utils.SendResponse(c.Writer, http.StatusOK, http_utils.NewBaseResponse(true, "painting game server is running"))
}

func (s *Server) ListRooms(c *gin.Context) {
	rooms, err := s.wsManager.Rooms(c.Request.Context())

	if err != nil {
		log.Println("error listing rooms:", err)
		c.JSON(http.StatusServiceUnavailable, errorResponse(ErrorMessage500))
		return
	}

	c.JSON(http.StatusOK, http_utils.NewDataResponse("rooms", rooms))
}

type roomUsersRequest struct {
	RoomID string `uri:"id" validate:"required,max=128"`
}

// ListRoomUsers returns the same snapshot a getUsers event would.
func (s *Server) ListRoomUsers(c *gin.Context) {
	var data roomUsersRequest

	if err := c.ShouldBindUri(&data); err != nil {
		c.JSON(http.StatusUnprocessableEntity, http_utils.ValidationErrorResponse{
			BaseResponse: errorResponse("invalid room id"),
			Errors:       http_utils.ValidationMessages(err),
		})
		return
	}

	if res := http_utils.ValidateStruct(util.Validate, data); len(res.Errors) > 0 {
		c.JSON(http.StatusUnprocessableEntity, res)
		return
	}

	members, err := s.wsManager.Members(c.Request.Context(), data.RoomID)

	if err != nil {
		log.Printf("error listing members of room %v: %v", data.RoomID, err)
		c.JSON(http.StatusServiceUnavailable, errorResponse(ErrorMessage500))
		return
	}

	c.JSON(http.StatusOK, http_utils.NewDataResponse("room members", members))
}
