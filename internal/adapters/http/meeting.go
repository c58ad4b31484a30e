package http

import (
	"errors"
	"mime"
	"net/http"
	"path/filepath"
	"strconv"

	"github.com/dkeye/Meet/internal/domain"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

type handlers struct {
	svc          *Services
	historyLimit int
}

type createMeetingRequest struct {
	Type  domain.RoomType `json:"type"`
	Title string          `json:"title"`
}

type joinMeetingRequest struct {
	RoomID domain.RoomID `json:"roomId" binding:"required"`
}

// meetingView hides the participant list from non-participants.
type meetingView struct {
	domain.Meeting
	Participants []domain.UserID `json:"participants,omitempty"`
}

func (h *handlers) createMeeting(c *gin.Context) {
	var req createMeetingRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			abortWithError(c, http.StatusBadRequest, err)
			return
		}
	}
	user := CurrentUser(c)
	m, err := h.svc.Meetings.Create(c.Request.Context(), user.ID, req.Type, req.Title)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"roomId": m.RoomID, "type": m.Type})
}

func (h *handlers) joinMeeting(c *gin.Context) {
	var req joinMeetingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, err)
		return
	}
	user := CurrentUser(c)
	m, err := h.svc.Meetings.Join(c.Request.Context(), req.RoomID, user.ID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, view(m, user.ID))
}

func (h *handlers) getMeeting(c *gin.Context) {
	user := CurrentUser(c)
	m, err := h.svc.Meetings.Get(c.Request.Context(), domain.RoomID(c.Param("roomId")))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, view(m, user.ID))
}

func (h *handlers) endMeeting(c *gin.Context) {
	user := CurrentUser(c)
	room := domain.RoomID(c.Param("roomId"))
	m, err := h.svc.Meetings.End(c.Request.Context(), room, user.ID)
	if err != nil {
		respondError(c, err)
		return
	}
	h.svc.Orch.EvictRoom(room, domain.ErrMeetingEnded)
	c.JSON(http.StatusOK, view(m, user.ID))
}

// participant loads the meeting and checks the caller durably joined it.
func (h *handlers) participant(c *gin.Context) (*domain.Meeting, *domain.User, bool) {
	user := CurrentUser(c)
	m, err := h.svc.Meetings.Get(c.Request.Context(), domain.RoomID(c.Param("roomId")))
	if err != nil {
		respondError(c, err)
		return nil, nil, false
	}
	if !m.HasParticipant(user.ID) {
		respondError(c, domain.ErrForbidden)
		return nil, nil, false
	}
	return m, user, true
}

func (h *handlers) listMessages(c *gin.Context) {
	m, _, ok := h.participant(c)
	if !ok {
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "0"))
	if limit <= 0 {
		limit = h.historyLimit
	}
	msgs, err := h.svc.Orch.Chat.History(c.Request.Context(), m.RoomID, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages": msgs})
}

func (h *handlers) uploadAttachment(c *gin.Context) {
	m, user, ok := h.participant(c)
	if !ok {
		return
	}
	if h.svc.Files == nil {
		abortWithError(c, http.StatusServiceUnavailable, errors.New("uploads disabled"))
		return
	}
	fh, err := c.FormFile("file")
	if err != nil {
		abortWithError(c, http.StatusBadRequest, err)
		return
	}
	f, err := fh.Open()
	if err != nil {
		respondError(c, err)
		return
	}
	defer f.Close()

	url, err := h.svc.Files.Save(m.RoomID, fh.Filename, f)
	if err != nil {
		respondError(c, err)
		return
	}
	mimeType := fh.Header.Get("Content-Type")
	if mimeType == "" || mimeType == "application/octet-stream" {
		if guess := mime.TypeByExtension(filepath.Ext(fh.Filename)); guess != "" {
			mimeType = guess
		}
	}
	log.Info().Str("module", "adapters.http").Str("room", string(m.RoomID)).Str("user", string(user.ID)).Str("url", url).Msg("attachment stored")
	c.JSON(http.StatusCreated, domain.Attachment{Name: fh.Filename, MimeType: mimeType, URL: url})
}

func (h *handlers) sfuToken(c *gin.Context) {
	m, user, ok := h.participant(c)
	if !ok {
		return
	}
	if m.Type != domain.RoomTypeSFU {
		abortWithError(c, http.StatusBadRequest, errors.New("not an sfu meeting"))
		return
	}
	token, err := h.svc.SFU.Issue(m.RoomID, user.ID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": token, "url": h.svc.SFU.URL})
}

func view(m *domain.Meeting, caller domain.UserID) meetingView {
	v := meetingView{Meeting: *m}
	if m.HasParticipant(caller) {
		v.Participants = m.Participants
	}
	return v
}
