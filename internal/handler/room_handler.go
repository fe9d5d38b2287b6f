package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/facility-admin-api/internal/service"
	"github.com/noah-isme/facility-admin-api/pkg/response"
)

// RoomHandler lists the bookable rooms.
type RoomHandler struct {
	rooms *service.RoomService
}

func NewRoomHandler(rooms *service.RoomService) *RoomHandler {
	return &RoomHandler{rooms: rooms}
}

// List godoc
// @Summary List meeting rooms
// @Tags Rooms
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /rooms [get]
func (h *RoomHandler) List(c *gin.Context) {
	rooms, err := h.rooms.List(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"rooms": rooms}, nil)
}
