package gateway

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"semanticheck/internal/domain"
	"semanticheck/internal/infra/logger"
)

// RPCHandler handles a single RPC method call.
type RPCHandler func(ctx context.Context, client *ClientInfo, payload json.RawMessage) (json.RawMessage, error)

const (
	sendQueueSize = 16
	writeTimeout  = 5 * time.Second
)

// clientConn tracks a single WebSocket connection.
type clientConn struct {
	info      *ClientInfo
	ws        *websocket.Conn
	sendCh    chan Frame // buffered outbound queue
	done      chan struct{}
	closeOnce sync.Once
}

func (cc *clientConn) close() { cc.closeOnce.Do(func() { close(cc.done) }) }

// Hub upgrades HTTP requests to WebSocket connections and dispatches the
// request frames they carry to registered RPC handlers.
type Hub struct {
	auth       Authenticator
	handlersMu sync.RWMutex
	handlers   map[string]RPCHandler
	clients    sync.Map // connID (uint64) -> *clientConn
	nextID     atomic.Uint64
	inflight   sync.WaitGroup
	closed     atomic.Bool
	logger     *slog.Logger

	callTimeout time.Duration
}

// NewHub creates a Hub that admits clients accepted by auth.
func NewHub(auth Authenticator, logger *slog.Logger) *Hub {
	return &Hub{
		auth:     auth,
		handlers: make(map[string]RPCHandler),
		logger:   logger,
	}
}

// RegisterHandler adds an RPC handler for the given method name.
// Safe to call concurrently with active connections.
func (h *Hub) RegisterHandler(method string, handler RPCHandler) {
	h.handlersMu.Lock()
	h.handlers[method] = handler
	h.handlersMu.Unlock()
}

// SetCallTimeout bounds every RPC handler call. Zero leaves calls bounded
// only by the connection.
func (h *Hub) SetCallTimeout(d time.Duration) { h.callTimeout = d }

// Methods returns the registered method names.
func (h *Hub) Methods() []string {
	h.handlersMu.RLock()
	defer h.handlersMu.RUnlock()
	out := make([]string, 0, len(h.handlers))
	for m := range h.handlers {
		out = append(out, m)
	}
	return out
}

// ServeHTTP authenticates the request, upgrades it and serves frames until
// the client disconnects or the hub is closed. The token is read from the
// "token" query parameter or a bearer Authorization header.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h.closed.Load() {
		http.Error(w, "shutting down", http.StatusServiceUnavailable)
		return
	}

	log := logger.FromContext(r.Context(), h.logger)

	clientInfo, err := h.auth.Authenticate(requestToken(r))
	if err != nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{
			"localhost",
			"localhost:*",
			"127.0.0.1",
			"127.0.0.1:*",
			"[::1]",
			"[::1]:*",
		},
	})
	if err != nil {
		log.Warn("websocket accept failed", "error", err)
		return
	}

	connID := h.nextID.Add(1)
	cc := &clientConn{
		info:   clientInfo,
		ws:     ws,
		sendCh: make(chan Frame, sendQueueSize),
		done:   make(chan struct{}),
	}
	h.clients.Store(connID, cc)
	log.Info("gateway client connected", "conn_id", connID, "client", clientInfo.Name)

	ctx, cancel := context.WithCancel(r.Context())
	var writer sync.WaitGroup
	writer.Add(1)
	go func() {
		defer writer.Done()
		h.writeLoop(cc)
	}()

	h.readLoop(ctx, cc)

	cancel()
	cc.close()
	writer.Wait()
	h.clients.Delete(connID)
	ws.Close(websocket.StatusNormalClosure, "")
	log.Info("gateway client disconnected", "conn_id", connID)
}

// Close disconnects every client and waits for in-flight calls to finish.
func (h *Hub) Close() {
	h.closed.Store(true)
	h.clients.Range(func(key, value any) bool {
		cc := value.(*clientConn)
		cc.close()
		cc.ws.Close(websocket.StatusGoingAway, "server shutting down")
		return true
	})
	h.inflight.Wait()
}

func requestToken(r *http.Request) string {
	if t := r.URL.Query().Get("token"); t != "" {
		return t
	}
	if v, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer "); ok {
		return strings.TrimSpace(v)
	}
	return ""
}

func (h *Hub) readLoop(ctx context.Context, cc *clientConn) {
	for {
		select {
		case <-cc.done:
			return
		default:
		}

		var frame Frame
		if err := wsjson.Read(ctx, cc.ws, &frame); err != nil {
			return // connection closed or error
		}

		if frame.Type != FrameTypeRequest {
			continue
		}

		h.inflight.Add(1)
		go func() {
			defer h.inflight.Done()
			h.dispatchRPC(ctx, cc, frame)
		}()
	}
}

func (h *Hub) writeLoop(cc *clientConn) {
	for {
		select {
		case <-cc.done:
			return
		case frame := <-cc.sendCh:
			ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
			err := wsjson.Write(ctx, cc.ws, frame)
			cancel()
			if err != nil {
				return
			}
		}
	}
}

func (h *Hub) dispatchRPC(ctx context.Context, cc *clientConn, req Frame) {
	h.handlersMu.RLock()
	handler, ok := h.handlers[req.Method]
	h.handlersMu.RUnlock()
	if !ok {
		h.sendResponse(cc, req.ID, nil, domain.ErrRPCMethodNotFound)
		return
	}

	if h.callTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.callTimeout)
		defer cancel()
	}
	result, err := handler(ctx, cc.info, req.Payload)
	h.sendResponse(cc, req.ID, result, err)
}

func (h *Hub) sendResponse(cc *clientConn, id uint64, result json.RawMessage, err error) {
	resp := Frame{
		Type:    FrameTypeResponse,
		ID:      id,
		Payload: result,
	}
	if err != nil {
		resp.Error = err.Error()
	}
	timer := time.NewTimer(writeTimeout)
	defer timer.Stop()
	select {
	case cc.sendCh <- resp:
	case <-cc.done:
	case <-timer.C:
		// The client stopped reading; it would never see this response.
		h.logger.Warn("gateway: closing slow client", "client", cc.info.Name, "frame_id", id)
		cc.close()
		cc.ws.Close(websocket.StatusPolicyViolation, "client too slow")
	}
}
