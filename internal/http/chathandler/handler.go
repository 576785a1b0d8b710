package chathandler

import (
	"errors"
	"io"
	"iter"
	"mime"
	"net/http"
	"slices"
	"strconv"

	"chatrelay/internal/blobstore"
	"chatrelay/internal/services/chat"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// RoomReader is the read side of the chat engine.
type RoomReader interface {
	History(roomID string) iter.Seq[chat.Message]
	Room(roomID string) chat.RoomSnapshot
}

type Handler struct {
	rooms    RoomReader
	blobs    blobstore.Store
	maxBytes int64
}

func New(rooms RoomReader, blobs blobstore.Store, maxBytes int64) *Handler {
	return &Handler{rooms: rooms, blobs: blobs, maxBytes: maxBytes}
}

func (h *Handler) Register(r gin.IRoutes) {
	r.GET("/rooms/:room/messages", h.history)
	r.GET("/rooms/:room/participants", h.participants)
	r.POST("/uploads", h.upload)
	r.GET("/uploads/:key", h.download)
}

// @Summary		Room history
// @Description	Returns the room's buffered messages, oldest first.
// @Tags			Rooms
// @Param			room	path		string	true	"Room ID"	default(General)
// @Param			limit	query		int		false	"Newest N only (0 = all)"	minimum(0)	maximum(1000)	default(0)
// @Success		200		{array}		chat.Message
// @Failure		400		{object}	ErrorResponse
// @Router			/rooms/{room}/messages [get]
func (h *Handler) history(ginCtx *gin.Context) {
	var q HistoryQuery
	if err := ginCtx.ShouldBindQuery(&q); err != nil {
		ginCtx.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	out := slices.Collect(h.rooms.History(ginCtx.Param("room")))
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[len(out)-q.Limit:]
	}
	if out == nil {
		out = []chat.Message{}
	}
	ginCtx.JSON(http.StatusOK, out)
}

// @Summary		Room participants
// @Description	Who is in the room right now and who is typing.
// @Tags			Rooms
// @Param			room	path		string	true	"Room ID"	default(General)
// @Success		200		{object}	chat.RoomSnapshot
// @Router			/rooms/{room}/participants [get]
func (h *Handler) participants(ginCtx *gin.Context) {
	snap := h.rooms.Room(ginCtx.Param("room"))
	if snap.Participants == nil {
		snap.Participants = []chat.Participant{}
	}
	if snap.Typing == nil {
		snap.Typing = []string{}
	}
	ginCtx.JSON(http.StatusOK, snap)
}

// @Summary		Upload media
// @Description	Stores a file and returns the URL to put in a message's mediaUrl.
// @Tags			Uploads
// @Accept			multipart/form-data
// @Param			file	formData	file	true	"Media file"
// @Success		201		{object}	UploadResponse
// @Failure		400		{object}	ErrorResponse
// @Failure		413		{object}	ErrorResponse
// @Failure		500		{object}	ErrorResponse
// @Router			/uploads [post]
func (h *Handler) upload(ginCtx *gin.Context) {
	ginCtx.Request.Body = http.MaxBytesReader(ginCtx.Writer, ginCtx.Request.Body, h.maxBytes)

	file, header, err := ginCtx.Request.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			ginCtx.JSON(http.StatusRequestEntityTooLarge, ErrorResponse{Error: "file exceeds " + strconv.FormatInt(h.maxBytes, 10) + " bytes"})
			return
		}
		ginCtx.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		ginCtx.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	url, err := h.blobs.Store(ginCtx.Request.Context(), data, header.Filename)
	switch {
	case err == nil:
	case errors.Is(err, blobstore.ErrEmpty):
		ginCtx.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	default:
		zap.L().Error("blob.store", zap.String("name", header.Filename), zap.Error(err))
		ginCtx.JSON(http.StatusInternalServerError, ErrorResponse{Error: "upload failed"})
		return
	}
	ginCtx.JSON(http.StatusCreated, UploadResponse{URL: url})
}

// @Summary		Download media
// @Tags			Uploads
// @Param			key	path	string	true	"Blob key"
// @Success		200
// @Failure		404	{object}	ErrorResponse
// @Router			/uploads/{key} [get]
func (h *Handler) download(ginCtx *gin.Context) {
	blob, err := h.blobs.Load(ginCtx.Request.Context(), ginCtx.Param("key"))
	if err != nil {
		if errors.Is(err, blobstore.ErrNotFound) {
			ginCtx.JSON(http.StatusNotFound, ErrorResponse{Error: err.Error()})
			return
		}
		zap.L().Error("blob.load", zap.String("key", ginCtx.Param("key")), zap.Error(err))
		ginCtx.JSON(http.StatusInternalServerError, ErrorResponse{Error: "download failed"})
		return
	}
	if blob.Name != "" {
		ginCtx.Header("Content-Disposition", mime.FormatMediaType("inline", map[string]string{"filename": blob.Name}))
	}
	ginCtx.Data(http.StatusOK, blob.ContentType, blob.Data)
}
