package stream

import (
	_ "embed"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/swdee/go-facewatch/geometry"
	"golang.org/x/time/rate"
)

//go:embed index.html
var indexHTML []byte

const (
	pingInterval = 30 * time.Second
	readTimeout  = 2 * pingInterval
	writeTimeout = 5 * time.Second
)

// resizeMessage is sent by the viewer whenever its video element changes
// size
type resizeMessage struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
}

// Handler returns the HTTP routes of the hub
func (h *Hub) Handler() http.Handler {

	// browsers reconnect on every page load, allow short bursts of that
	limit := newConnLimiter(rate.Limit(2), 10)

	mux := http.NewServeMux()
	mux.HandleFunc("/", h.Index)
	mux.HandleFunc("/stream", limit.wrap(h.Stream))
	mux.HandleFunc("/events", limit.wrap(h.Events))
	mux.HandleFunc("/history", h.History)

	return mux
}

// Index serves the viewer page
func (h *Hub) Index(w http.ResponseWriter, r *http.Request) {

	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(indexHTML)
}

// Stream is the HTTP handler function used to stream annotated frames to
// the browser as MJPEG
func (h *Hub) Stream(w http.ResponseWriter, r *http.Request) {

	h.log.WithField("remote", r.RemoteAddr).Info("New stream client connection established")

	w.Header().Set("Content-Type", "multipart/x-mixed-replace; boundary=frame")

	sub := h.subscribeFrames()
	defer h.unsubscribe(sub)

	flusher, _ := w.(http.Flusher)

	for {
		select {
		case <-r.Context().Done():
			h.log.WithField("remote", r.RemoteAddr).Info("Stream client disconnected")
			return

		case buf := <-sub.ch:
			// Write the image to the response writer
			w.Write([]byte("--frame\r\n"))
			w.Write([]byte("Content-Type: image/jpeg\r\n\r\n"))
			w.Write(buf)
			w.Write([]byte("\r\n"))

			if flusher != nil {
				flusher.Flush()
			}
		}
	}
}

// Events upgrades the connection to a websocket which receives a JSON message
// for every processed frame.  The viewer reports the displayed size of its
// video element over the same socket
func (h *Hub) Events(w http.ResponseWriter, r *http.Request) {

	conn, err := upgrader.Upgrade(w, r, nil)

	if err != nil {
		h.log.WithError(err).Warn("Error upgrading websocket")
		return
	}

	defer conn.Close()

	entry := h.log.WithField("remote", r.RemoteAddr)
	entry.Info("New event client connection established")

	sub := h.subscribeEvents()
	defer h.unsubscribe(sub)

	if data, err := h.historyMessage(); err == nil {
		conn.SetWriteDeadline(time.Now().Add(writeTimeout))

		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			return
		}
	}

	done := make(chan struct{})
	go h.readResizes(conn, done)

	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			entry.Info("Event client disconnected")
			return

		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, []byte{},
				time.Now().Add(writeTimeout)); err != nil {
				entry.WithError(err).Warn("Ping failed, closing event client")
				return
			}

		case data := <-sub.ch:
			conn.SetWriteDeadline(time.Now().Add(writeTimeout))

			if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
				entry.WithError(err).Warn("Error writing event")
				return
			}
		}
	}
}

// readResizes applies size reports from the viewer to the display surface
// until the connection closes
func (h *Hub) readResizes(conn *websocket.Conn, done chan<- struct{}) {

	defer close(done)

	conn.SetReadDeadline(time.Now().Add(readTimeout))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(readTimeout))
	})

	for {
		_, data, err := conn.ReadMessage()

		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway,
				websocket.CloseNormalClosure) {
				h.log.WithError(err).Warn("Event client read error")
			}
			return
		}

		conn.SetReadDeadline(time.Now().Add(readTimeout))

		var msg resizeMessage

		if err := json.Unmarshal(data, &msg); err != nil {
			h.log.WithError(err).Debug("Ignoring malformed viewer message")
			continue
		}

		size := geometry.Size{Width: msg.Width, Height: msg.Height}

		if !h.surface.Resize(size) {
			h.log.WithField("size", size).Debug("Ignoring invalid display size")
		}
	}
}

// History returns the event history log as JSON
func (h *Hub) History(w http.ResponseWriter, r *http.Request) {

	data, err := h.historyMessage()

	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Write(data)
}
