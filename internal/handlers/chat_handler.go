package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"
	_ "time/tzdata"

	"github.com/gorilla/websocket"

	"familia/internal/chat"
	"familia/internal/models"
	"familia/internal/service"
	"familia/internal/viewstate"
)

// ChatHandler handles one-to-one chat requests
type ChatHandler struct {
	chat     *service.ChatService
	upgrader websocket.Upgrader
	now      func() time.Time

	// Open streams are hijacked connections that http.Server.Shutdown
	// does not see, so they are tracked here.
	mu           sync.Mutex
	closed       bool
	streams      sync.WaitGroup
	closing      context.Context
	closeStreams context.CancelFunc
}

// NewChatHandler creates a new chat handler. checkOrigin may be nil to
// accept only same-origin websocket requests.
func NewChatHandler(chatService *service.ChatService, checkOrigin func(r *http.Request) bool) *ChatHandler {
	closing, closeStreams := context.WithCancel(context.Background())
	return &ChatHandler{
		chat: chatService,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 16 * 1024,
			CheckOrigin:     checkOrigin,
		},
		now:          time.Now,
		closing:      closing,
		closeStreams: closeStreams,
	}
}

// messageView is a message with its time formatted for the chat list
type messageView struct {
	models.Message
	DisplayTime string `json:"displayTime"`
}

type sendRequest struct {
	Message string `json:"message"`
}

// views formats message times in the client's zone
func (h *ChatHandler) views(messages []models.Message, loc *time.Location) []messageView {
	now := h.now().In(loc)
	views := make([]messageView, len(messages))
	for i, m := range messages {
		views[i] = messageView{Message: m, DisplayTime: models.ChatTimeDisplay(m.Time.In(loc), now)}
	}
	return views
}

// location reads the client's IANA zone from ?tz=, UTC when omitted
func (h *ChatHandler) location(w http.ResponseWriter, r *http.Request) (*time.Location, bool) {
	name := r.URL.Query().Get("tz")
	if name == "" {
		return time.UTC, true
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		respondWithMessage(w, http.StatusBadRequest, "tz must be an IANA time zone name")
		return nil, false
	}
	return loc, true
}

// Messages returns the caller's mailbox for a peer
func (h *ChatHandler) Messages(w http.ResponseWriter, r *http.Request) {
	loc, ok := h.location(w, r)
	if !ok {
		return
	}
	messages, err := h.chat.History(r.Context(), GetUserIDFromContext(r.Context()), r.PathValue("peer"))
	if err != nil {
		respondWithError(w, r, err)
		return
	}
	respondSuccess(w, http.StatusOK, h.views(messages, loc))
}

// Send posts a message from the caller to a peer
func (h *ChatHandler) Send(w http.ResponseWriter, r *http.Request) {
	loc, ok := h.location(w, r)
	if !ok {
		return
	}
	var req sendRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	userID := GetUserIDFromContext(r.Context())
	message, err := h.chat.Send(r.Context(), userID, userID, r.PathValue("peer"), req.Message)
	if err != nil {
		respondWithError(w, r, err)
		return
	}
	respondSuccess(w, http.StatusCreated, h.views([]models.Message{*message}, loc)[0])
}

// snapshotState turns a mailbox snapshot into the frame sent to the client
func (h *ChatHandler) snapshotState(snap chat.Snapshot, loc *time.Location) viewstate.State[[]messageView] {
	if snap.Err != nil {
		slog.Error("Chat stream read failed", "error", snap.Err)
		_, public := statusFor(snap.Err)
		return viewstate.NewError[[]messageView](public)
	}
	return viewstate.NewSuccess(h.views(snap.Messages, loc))
}

// track registers a stream unless the handler is shutting down
func (h *ChatHandler) track() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	h.streams.Add(1)
	return true
}

// Shutdown closes every open stream and waits for their handlers to
// return. Streams opened afterwards are refused.
func (h *ChatHandler) Shutdown(ctx context.Context) error {
	h.mu.Lock()
	h.closed = true
	h.mu.Unlock()
	h.closeStreams()

	done := make(chan struct{})
	go func() {
		h.streams.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Stream upgrades to a websocket and pushes the caller's mailbox for a
// peer as a view state on every change. The stream ends when the client
// disconnects or the handler shuts down.
func (h *ChatHandler) Stream(w http.ResponseWriter, r *http.Request) {
	if !h.track() {
		respondWithMessage(w, http.StatusServiceUnavailable, "Server is shutting down")
		return
	}
	defer h.streams.Done()

	loc, ok := h.location(w, r)
	if !ok {
		return
	}
	userID := GetUserIDFromContext(r.Context())
	peerID := r.PathValue("peer")

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("Failed to upgrade chat stream", "error", err)
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()
	stopOnShutdown := context.AfterFunc(h.closing, cancel)
	defer stopOnShutdown()
	// Closing the connection unblocks the read loop below
	stopClose := context.AfterFunc(ctx, func() {
		msg := websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down")
		_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
		conn.Close()
	})
	defer stopClose()

	var writeMu sync.Mutex
	tracker := viewstate.NewTracker(func(s viewstate.State[[]messageView]) {
		writeMu.Lock()
		defer writeMu.Unlock()
		_ = conn.SetWriteDeadline(time.Now().Add(streamWriteTimeout))
		if err := conn.WriteJSON(s); err != nil {
			slog.Debug("Chat stream write failed", "error", err)
		}
	})
	tracker.Set(viewstate.NewLoading[[]messageView]())

	sub, err := h.chat.Subscribe(ctx, userID, peerID, func(snap chat.Snapshot) {
		tracker.Set(h.snapshotState(snap, loc))
	})
	if err != nil {
		_, public := statusFor(err)
		tracker.Set(viewstate.NewError[[]messageView](public))
		return
	}
	defer sub.Close()

	slog.Info("Chat stream opened", "user_id", userID, "peer_id", peerID)
	// Reads only detect the close; clients send nothing on this socket
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
	slog.Info("Chat stream closed", "user_id", userID, "peer_id", peerID, "state", tracker.State().Kind)
}
