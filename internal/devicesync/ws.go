package devicesync

import (
	"context"
	"errors"
	"log"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/sprintcoach/sprintcoach/internal/events"
	"github.com/sprintcoach/sprintcoach/internal/safego"
	"github.com/sprintcoach/sprintcoach/internal/workout"
)

// ErrNoPeer reports a publish with no peer connected. Callers treat it like
// any other drop.
var ErrNoPeer = errors.New("devicesync: no peer connected")

const (
	handshakeTimeout = 2 * time.Second
	writeTimeout     = 2 * time.Second
)

// WSLink carries snapshots over a websocket, one JSON message per snapshot.
// One device listens, the other dials; both ends present the same Link
// surface.
//
// Publish never touches the network on the caller's goroutine: the snapshot
// goes into a latest-value mailbox drained by a sender goroutine, which
// owns dialing, writing and reconnecting. A newer snapshot supersedes an
// undelivered older one, and anything that cannot be delivered is dropped —
// the peer catches up from the next snapshot.
type WSLink struct {
	logger *log.Logger
	recv   *events.CallbackEvent[workout.Snapshot]

	mu      sync.Mutex
	conn    *websocket.Conn
	closed  bool
	pending *workout.Snapshot // latest undelivered snapshot

	kick chan struct{} // buffered 1, wakes the sender
	done chan struct{}

	// dialer mode
	url string

	// listener mode
	server   *http.Server
	listener net.Listener

	wg sync.WaitGroup
}

// NewDialer creates the dialing end of a link. No connection is attempted
// until the first Publish.
func NewDialer(logger *log.Logger, url string) *WSLink {
	if logger == nil {
		panic("WSLink: logger cannot be nil")
	}
	l := &WSLink{
		logger: logger,
		recv:   events.NewCallbackEvent[workout.Snapshot](false),
		kick:   make(chan struct{}, 1),
		done:   make(chan struct{}),
		url:    url,
	}
	l.startSender()
	return l
}

// NewListener creates the listening end of a link, bound immediately so the
// caller can read the resolved address. A new peer connection replaces the
// previous one.
func NewListener(logger *log.Logger, addr string) (*WSLink, error) {
	if logger == nil {
		panic("WSLink: logger cannot be nil")
	}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}

	l := &WSLink{
		logger:   logger,
		recv:     events.NewCallbackEvent[workout.Snapshot](false),
		kick:     make(chan struct{}, 1),
		done:     make(chan struct{}),
		listener: ln,
	}
	l.startSender()

	mux := http.NewServeMux()
	mux.HandleFunc("/sync", l.handleUpgrade)
	l.server = &http.Server{Handler: mux}

	l.wg.Add(1)
	safego.Go(logger, func() {
		defer l.wg.Done()
		if err := l.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Printf("WSLink: serve: %v", err)
		}
	})

	logger.Printf("WSLink: listening on %s", ln.Addr())
	return l, nil
}

// Addr returns the listener's bound address. Empty for a dialing link.
func (l *WSLink) Addr() string {
	if l.listener == nil {
		return ""
	}
	return l.listener.Addr().String()
}

var upgrader = websocket.Upgrader{
	// Both ends are our own binaries on a private link.
	CheckOrigin: func(*http.Request) bool { return true },
}

func (l *WSLink) handleUpgrade(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		l.logger.Printf("WSLink: upgrade from %s: %v", r.RemoteAddr, err)
		return
	}

	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		conn.Close()
		return
	}
	if l.conn != nil {
		l.conn.Close()
	}
	l.conn = conn
	l.mu.Unlock()

	l.logger.Printf("WSLink: peer connected from %s", r.RemoteAddr)
	l.startPump(conn)
}

// Publish hands one snapshot to the sender and returns immediately. An
// undelivered older snapshot is replaced. Errors mean the snapshot was
// dropped up front; network failures surface in the log, never here.
func (l *WSLink) Publish(s workout.Snapshot) error {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return ErrClosed
	}
	if l.url == "" && l.conn == nil {
		l.mu.Unlock()
		return ErrNoPeer
	}
	l.pending = &s
	l.mu.Unlock()

	select {
	case l.kick <- struct{}{}:
	default:
	}
	return nil
}

func (l *WSLink) OnReceive(fn func(workout.Snapshot)) func() {
	return l.recv.Subscribe(fn)
}

func (l *WSLink) startSender() {
	l.wg.Add(1)
	safego.Go(l.logger, l.senderLoop)
}

// senderLoop drains the mailbox: dial if needed, write, drop on failure.
// All slow network calls happen here, on no one else's goroutine.
func (l *WSLink) senderLoop() {
	defer l.wg.Done()
	for {
		select {
		case <-l.done:
			return
		case <-l.kick:
		}

		for {
			l.mu.Lock()
			if l.closed || l.pending == nil {
				l.mu.Unlock()
				break
			}
			snap := *l.pending
			l.pending = nil
			conn := l.conn
			l.mu.Unlock()

			if conn == nil {
				if l.url == "" {
					continue // peer went away between Publish and here
				}
				var err error
				conn, err = l.dial()
				if err != nil {
					l.logger.Printf("WSLink: dial %s: %v (snapshot dropped)", l.url, err)
					continue
				}
			}

			conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := conn.WriteJSON(snap); err != nil {
				l.logger.Printf("WSLink: write: %v (snapshot dropped)", err)
				l.mu.Lock()
				l.dropLocked(conn)
				l.mu.Unlock()
			}
		}
	}
}

func (l *WSLink) dial() (*websocket.Conn, error) {
	dialer := websocket.Dialer{HandshakeTimeout: handshakeTimeout}
	conn, _, err := dialer.Dial(l.url, nil)
	if err != nil {
		return nil, err
	}

	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		conn.Close()
		return nil, ErrClosed
	}
	l.conn = conn
	l.mu.Unlock()

	l.logger.Printf("WSLink: connected to %s", l.url)
	l.startPump(conn)
	return conn, nil
}

// startPump reads inbound snapshots until the connection dies.
func (l *WSLink) startPump(conn *websocket.Conn) {
	l.wg.Add(1)
	safego.Go(l.logger, func() {
		defer l.wg.Done()
		for {
			var snap workout.Snapshot
			if err := conn.ReadJSON(&snap); err != nil {
				l.mu.Lock()
				closed := l.closed
				l.dropLocked(conn)
				l.mu.Unlock()
				if !closed {
					l.logger.Printf("WSLink: read: %v", err)
				}
				return
			}
			l.recv.Publish(snap)
		}
	})
}

// dropLocked discards conn if it is still current. Callers hold l.mu.
func (l *WSLink) dropLocked(conn *websocket.Conn) {
	conn.Close()
	if l.conn == conn {
		l.conn = nil
	}
}

// Close tears the link down and waits for its goroutines; a dial in flight
// bounds the wait by the handshake timeout.
func (l *WSLink) Close() error {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return nil
	}
	l.closed = true
	l.pending = nil
	if l.conn != nil {
		l.conn.Close()
		l.conn = nil
	}
	server := l.server
	l.mu.Unlock()

	close(l.done)
	if server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		server.Shutdown(ctx)
	}
	l.wg.Wait()
	return nil
}
