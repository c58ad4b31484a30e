package http

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dkeye/Meet/internal/app"
	"github.com/dkeye/Meet/internal/app/chat"
	"github.com/dkeye/Meet/internal/app/lifecycle"
	"github.com/dkeye/Meet/internal/app/meeting"
	"github.com/dkeye/Meet/internal/app/orch"
	"github.com/dkeye/Meet/internal/app/presence"
	"github.com/dkeye/Meet/internal/app/rooms"
	"github.com/dkeye/Meet/internal/auth"
	"github.com/dkeye/Meet/internal/config"
	"github.com/dkeye/Meet/internal/domain"
	"github.com/dkeye/Meet/internal/files"
	"github.com/dkeye/Meet/internal/protocol"
	"github.com/dkeye/Meet/internal/store/memory"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type env struct {
	t        *testing.T
	srv      *httptest.Server
	verifier *auth.Verifier
	orch     *orch.Orchestrator
	repo     *memory.Repository
	files    *files.Store
}

func newEnv(t *testing.T) *env {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := &config.Config{
		Mode:       "test",
		ReadLimit:  1 << 20,
		PingPeriod: time.Minute,
		Secret:     "cookie-secret",
		Files:      config.FilesConfig{Dir: "/uploads", BaseURL: "/uploads", MaxSize: 1 << 10},
		Chat:       config.ChatConfig{HistoryLimit: 50},
	}
	repo := memory.NewRepository()
	meetings := meeting.NewService(repo, time.Minute)
	fstore, err := files.NewStore(afero.NewMemMapFs(), cfg.Files.Dir, cfg.Files.BaseURL, cfg.Files.MaxSize)
	require.NoError(t, err)
	verifier, err := auth.NewVerifier("jwt-secret", "")
	require.NoError(t, err)

	o := &orch.Orchestrator{
		Registry: app.NewRegistry(),
		Rooms:    rooms.NewRegistry(meetings),
		Policy:   app.SimplePolicy{},
		Chat:     chat.NewRelay(repo, cfg.Chat.HistoryLimit),
		Cleanup:  lifecycle.NewScheduler(time.Hour, repo, fstore),
		Presence: presence.NewHub(16),
	}
	o.Typing = chat.NewTyping(time.Second, o.OnTyping)
	o.Chat.Files = fstore
	t.Cleanup(o.Cleanup.Stop)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	r := SetupRouter(ctx, cfg, &Services{
		Orch:     o,
		Meetings: meetings,
		Files:    fstore,
		Verifier: verifier,
		SFU:      auth.NewSFUTokens("wss://sfu.example", "key", "secret-secret-secret-secret-secret", time.Hour),
	})
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return &env{t: t, srv: srv, verifier: verifier, orch: o, repo: repo, files: fstore}
}

func (e *env) token(user domain.UserID) string {
	tok, err := e.verifier.Issue(user, time.Hour)
	require.NoError(e.t, err)
	return tok
}

func (e *env) do(method, path string, user domain.UserID, body any) (*http.Response, map[string]any) {
	e.t.Helper()
	var rd *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(e.t, err)
		rd = bytes.NewReader(b)
	} else {
		rd = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, e.srv.URL+path, rd)
	require.NoError(e.t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if user != "" {
		req.Header.Set("Authorization", "Bearer "+e.token(user))
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(e.t, err)
	defer resp.Body.Close()
	var out map[string]any
	_ = json.NewDecoder(resp.Body).Decode(&out)
	return resp, out
}

func (e *env) createMeeting(host domain.UserID, typ domain.RoomType) domain.RoomID {
	resp, out := e.do(http.MethodPost, "/api/meeting/create", host, map[string]any{"type": typ})
	require.Equal(e.t, http.StatusCreated, resp.StatusCode)
	return domain.RoomID(out["roomId"].(string))
}

func (e *env) join(room domain.RoomID, user domain.UserID) {
	resp, _ := e.do(http.MethodPost, "/api/meeting/join", user, map[string]any{"roomId": room})
	require.Equal(e.t, http.StatusOK, resp.StatusCode)
}

func (e *env) upload(room domain.RoomID, user domain.UserID, name, content string) domain.Attachment {
	e.t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("file", name)
	require.NoError(e.t, err)
	_, _ = fw.Write([]byte(content))
	require.NoError(e.t, mw.Close())

	req, _ := http.NewRequest(http.MethodPost, e.srv.URL+"/api/meeting/"+string(room)+"/attachments", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+e.token(user))
	resp, err := http.DefaultClient.Do(req)
	require.NoError(e.t, err)
	defer resp.Body.Close()
	require.Equal(e.t, http.StatusCreated, resp.StatusCode)
	var att domain.Attachment
	require.NoError(e.t, json.NewDecoder(resp.Body).Decode(&att))
	return att
}

func (e *env) fetch(url string) (int, string) {
	e.t.Helper()
	resp, err := http.Get(e.srv.URL + url)
	require.NoError(e.t, err)
	defer resp.Body.Close()
	var got bytes.Buffer
	_, _ = got.ReadFrom(resp.Body)
	return resp.StatusCode, got.String()
}

type wsClient struct {
	t  *testing.T
	ws *websocket.Conn
}

func (e *env) dial(user domain.UserID) *wsClient {
	e.t.Helper()
	url := "ws" + strings.TrimPrefix(e.srv.URL, "http") + "/api/ws/signal?token=" + e.token(user)
	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(e.t, err)
	e.t.Cleanup(func() { _ = ws.Close() })
	return &wsClient{t: e.t, ws: ws}
}

func (c *wsClient) send(m protocol.Inbound) {
	data, err := protocol.EncodeInbound(protocol.JSON, m)
	require.NoError(c.t, err)
	require.NoError(c.t, c.ws.WriteMessage(websocket.TextMessage, data))
}

func (c *wsClient) recv() protocol.Outbound {
	require.NoError(c.t, c.ws.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := c.ws.ReadMessage()
	require.NoError(c.t, err)
	m, err := protocol.DecodeOutbound(protocol.JSON, data)
	require.NoError(c.t, err)
	return m
}

func TestHealthz(t *testing.T) {
	e := newEnv(t)
	resp, out := e.do(http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", out["status"])
}

func TestAPIRequiresIdentity(t *testing.T) {
	e := newEnv(t)
	resp, _ := e.do(http.MethodPost, "/api/meeting/create", "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	req, _ := http.NewRequest(http.MethodGet, e.srv.URL+"/api/rooms", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestSignalRejectsBeforeUpgrade(t *testing.T) {
	e := newEnv(t)
	url := "ws" + strings.TrimPrefix(e.srv.URL, "http") + "/api/ws/signal"
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestSessionCookieCarriesIdentity(t *testing.T) {
	e := newEnv(t)
	req, _ := http.NewRequest(http.MethodGet, e.srv.URL+"/api/rooms", nil)
	req.Header.Set("Authorization", "Bearer "+e.token("x"))
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	cookies := resp.Cookies()
	require.NotEmpty(t, cookies)

	req, _ = http.NewRequest(http.MethodPost, e.srv.URL+"/api/meeting/create", nil)
	for _, ck := range cookies {
		req.AddCookie(ck)
	}
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
}

func TestSessionEndsWithToken(t *testing.T) {
	e := newEnv(t)
	tok, err := e.verifier.Issue("x", time.Hour)
	require.NoError(t, err)

	req, _ := http.NewRequest(http.MethodGet, e.srv.URL+"/api/rooms", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	cookies := resp.Cookies()
	require.NotEmpty(t, cookies)

	withCookies := func() int {
		req, _ := http.NewRequest(http.MethodGet, e.srv.URL+"/api/rooms", nil)
		for _, ck := range cookies {
			req.AddCookie(ck)
		}
		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		resp.Body.Close()
		return resp.StatusCode
	}
	assert.Equal(t, http.StatusOK, withCookies())

	now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	t.Cleanup(func() { now = time.Now })
	assert.Equal(t, http.StatusUnauthorized, withCookies())
}

func TestSessionExpiryIsCapped(t *testing.T) {
	capped := time.Now().Add(sessionMaxAge)
	assert.InDelta(t, capped.Unix(), sessionExpiry(time.Time{}), 2)
	assert.InDelta(t, capped.Unix(), sessionExpiry(time.Now().Add(365*24*time.Hour)), 2)

	soon := time.Now().Add(time.Minute)
	assert.Equal(t, soon.Unix(), sessionExpiry(soon))
}

func TestMeetingLifecycleREST(t *testing.T) {
	e := newEnv(t)
	room := e.createMeeting("x", "")

	resp, out := e.do(http.MethodGet, "/api/meeting/"+string(room), "x", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "p2p", out["type"])
	assert.Equal(t, []any{"x"}, out["participants"])

	resp, out = e.do(http.MethodGet, "/api/meeting/"+string(room), "y", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotContains(t, out, "participants")

	resp, _ = e.do(http.MethodPost, "/api/meeting/join", "y", map[string]any{"roomId": "missing"})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	e.join(room, "y")
	resp, _ = e.do(http.MethodPost, "/api/meeting/"+string(room)+"/end", "y", nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	resp, out = e.do(http.MethodPost, "/api/meeting/"+string(room)+"/end", "x", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ended", out["status"])

	resp, _ = e.do(http.MethodPost, "/api/meeting/join", "z", map[string]any{"roomId": room})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp, _ = e.do(http.MethodPost, "/api/meeting/create", "x", map[string]any{"type": "mesh"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestEndEvictsLiveRoom(t *testing.T) {
	e := newEnv(t)
	room := e.createMeeting("x", "")
	x := e.dial("x")
	x.send(&protocol.JoinRoom{RoomID: room})
	x.recv()

	resp, _ := e.do(http.MethodPost, "/api/meeting/"+string(room)+"/end", "x", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, domain.ErrMeetingEnded.Error(), x.recv().(*protocol.Error).Reason)
	assert.Equal(t, protocol.KindLeft, x.recv().Kind())

	x.send(&protocol.JoinRoom{RoomID: room})
	assert.Equal(t, domain.ErrMeetingEnded.Error(), x.recv().(*protocol.Error).Reason)
}

func TestSFUToken(t *testing.T) {
	e := newEnv(t)
	p2p := e.createMeeting("x", domain.RoomTypeP2P)
	sfu := e.createMeeting("x", domain.RoomTypeSFU)

	resp, _ := e.do(http.MethodGet, "/api/meeting/"+string(p2p)+"/sfu-token", "x", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = e.do(http.MethodGet, "/api/meeting/"+string(sfu)+"/sfu-token", "y", nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, out := e.do(http.MethodGet, "/api/meeting/"+string(sfu)+"/sfu-token", "x", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, out["token"])
	assert.Equal(t, "wss://sfu.example", out["url"])
}

func TestAttachmentUploadAndServe(t *testing.T) {
	e := newEnv(t)
	room := e.createMeeting("x", "")

	att := e.upload(room, "x", "notes.txt", "hello")
	assert.Equal(t, "notes.txt", att.Name)
	assert.True(t, strings.HasPrefix(att.URL, "/uploads/"+string(room)+"/"))
	assert.Contains(t, att.MimeType, "text/plain")

	code, got := e.fetch(att.URL)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "hello", got)
}

func TestAttachmentsStayWithTheirRoom(t *testing.T) {
	e := newEnv(t)
	roomA := e.createMeeting("x", "")
	roomB := e.createMeeting("y", "")
	attA := e.upload(roomA, "x", "a.txt", "from a")
	attB := e.upload(roomB, "y", "b.txt", "from b")

	x := e.dial("x")
	x.send(&protocol.JoinRoom{RoomID: roomA})
	x.recv()
	x.send(&protocol.ChatSend{RoomID: roomA, Attachment: &attB})
	assert.Equal(t, domain.ErrForeignAttachment.Error(), x.recv().(*protocol.Error).Reason)
	x.send(&protocol.ChatSend{RoomID: roomA, Attachment: &attA})
	require.Equal(t, attA.URL, x.recv().(*protocol.ChatNew).Message.Attachment.URL)

	y := e.dial("y")
	y.send(&protocol.JoinRoom{RoomID: roomB})
	y.recv()
	y.send(&protocol.ChatSend{RoomID: roomB, Attachment: &attB})
	require.Equal(t, attB.URL, y.recv().(*protocol.ChatNew).Message.Attachment.URL)

	e.orch.Cleanup.Run(roomA)

	code, _ := e.fetch(attA.URL)
	assert.Equal(t, http.StatusNotFound, code)
	code, got := e.fetch(attB.URL)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "from b", got)
	assert.True(t, e.files.Owns(roomB, attB.URL))
}

func TestMessagesHistory(t *testing.T) {
	e := newEnv(t)
	room := e.createMeeting("x", "")
	x := e.dial("x")
	x.send(&protocol.JoinRoom{RoomID: room})
	x.recv()
	x.send(&protocol.ChatSend{RoomID: room, Message: "first"})
	require.Equal(t, "first", x.recv().(*protocol.ChatNew).Message.Body)

	resp, out := e.do(http.MethodGet, "/api/meeting/"+string(room)+"/messages?limit=10", "x", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	msgs := out["messages"].([]any)
	require.Len(t, msgs, 1)
	assert.Equal(t, "first", msgs[0].(map[string]any)["message"])

	resp, _ = e.do(http.MethodGet, "/api/meeting/"+string(room)+"/messages", "y", nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestRoomsSnapshotAndEvents(t *testing.T) {
	e := newEnv(t)
	room := e.createMeeting("x", "")

	req, _ := http.NewRequest(http.MethodGet, e.srv.URL+"/api/rooms/events", nil)
	req.Header.Set("Authorization", "Bearer "+e.token("watcher"))
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	lines := make(chan string, 64)
	go func() {
		sc := bufio.NewScanner(resp.Body)
		for sc.Scan() {
			lines <- sc.Text()
		}
		close(lines)
	}()
	waitFor := func(want string) {
		t.Helper()
		deadline := time.After(2 * time.Second)
		for {
			select {
			case l, ok := <-lines:
				require.True(t, ok, "stream ended before %q", want)
				if l == want {
					return
				}
			case <-deadline:
				t.Fatalf("no %q line", want)
			}
		}
	}
	waitFor("event:snapshot")
	require.Eventually(t, func() bool { return e.orch.Presence.Subscribers() == 1 }, time.Second, 10*time.Millisecond)

	x := e.dial("x")
	x.send(&protocol.JoinRoom{RoomID: room})
	x.recv()
	waitFor("event:room-opened")

	resp2, out := e.do(http.MethodGet, "/api/rooms", "x", nil)
	require.Equal(t, http.StatusOK, resp2.StatusCode)
	list := out["rooms"].([]any)
	require.Len(t, list, 1)
	assert.Equal(t, string(room), list[0].(map[string]any)["roomId"])

	x.send(&protocol.LeaveRoom{})
	waitFor("event:room-closed")
}
