package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/dkeye/Meet/internal/app/rooms"
	"github.com/dkeye/Meet/internal/domain"
)

// API calls the REST endpoints of a meet server.
type API struct {
	BaseURL string
	Token   string
	HTTP    *http.Client
}

func NewAPI(baseURL, token string) *API {
	return &API{
		BaseURL: strings.TrimSuffix(baseURL, "/"),
		Token:   token,
		HTTP:    &http.Client{Timeout: 15 * time.Second},
	}
}

// APIError is a non-2xx response.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api: %d %s", e.Status, e.Message)
}

func (a *API) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, a.BaseURL+path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if a.Token != "" {
		req.Header.Set("Authorization", "Bearer "+a.Token)
	}
	resp, err := a.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		var e struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&e)
		return &APIError{Status: resp.StatusCode, Message: e.Error}
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (a *API) CreateMeeting(ctx context.Context, typ domain.RoomType, title string) (domain.RoomID, error) {
	var out struct {
		RoomID domain.RoomID `json:"roomId"`
	}
	err := a.do(ctx, http.MethodPost, "/api/meeting/create", map[string]any{"type": typ, "title": title}, &out)
	return out.RoomID, err
}

func (a *API) JoinMeeting(ctx context.Context, room domain.RoomID) (*domain.Meeting, error) {
	var m domain.Meeting
	if err := a.do(ctx, http.MethodPost, "/api/meeting/join", map[string]any{"roomId": room}, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

func (a *API) EndMeeting(ctx context.Context, room domain.RoomID) error {
	return a.do(ctx, http.MethodPost, "/api/meeting/"+string(room)+"/end", nil, nil)
}

// SFUToken returns a LiveKit join token and the LiveKit URL for an sfu
// meeting.
func (a *API) SFUToken(ctx context.Context, room domain.RoomID) (token, url string, err error) {
	var out struct {
		Token string `json:"token"`
		URL   string `json:"url"`
	}
	err = a.do(ctx, http.MethodGet, "/api/meeting/"+string(room)+"/sfu-token", nil, &out)
	return out.Token, out.URL, err
}

func (a *API) Rooms(ctx context.Context) ([]rooms.Summary, error) {
	var out struct {
		Rooms []rooms.Summary `json:"rooms"`
	}
	err := a.do(ctx, http.MethodGet, "/api/rooms", nil, &out)
	return out.Rooms, err
}

func (a *API) Messages(ctx context.Context, room domain.RoomID, limit int) ([]domain.ChatMessage, error) {
	var out struct {
		Messages []domain.ChatMessage `json:"messages"`
	}
	err := a.do(ctx, http.MethodGet, fmt.Sprintf("/api/meeting/%s/messages?limit=%d", room, limit), nil, &out)
	return out.Messages, err
}

// SignalURL derives the websocket endpoint from the base URL.
func (a *API) SignalURL() string {
	u := a.BaseURL
	switch {
	case strings.HasPrefix(u, "https://"):
		u = "wss://" + strings.TrimPrefix(u, "https://")
	case strings.HasPrefix(u, "http://"):
		u = "ws://" + strings.TrimPrefix(u, "http://")
	}
	return u + "/api/ws/signal"
}

// EventsURL is the SSE feed of live rooms.
func (a *API) EventsURL() string {
	return a.BaseURL + "/api/rooms/events"
}
