package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"hometable/apps/server/internal/auth"
	"hometable/apps/server/internal/table"
	"hometable/holdem"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 30 * time.Second
	maxMessageSize = 65536
	sendBuffer     = 256
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin: func(r *http.Request) bool {
		return true // TODO: check Origin against server.allowed_origins once config grows one
	},
}

// Connection is one authenticated websocket client.
type Connection struct {
	ID     string
	Caller table.Caller
	Conn   *websocket.Conn
	Send   chan []byte

	gateway *Gateway
	ctx     context.Context
	cancel  context.CancelFunc

	// tables this connection is watching; dirty carries table ids whose view
	// needs to be pushed.
	mu      sync.Mutex
	watched map[string]bool
	dirty   chan string
}

// Gateway accepts websocket clients and runs their commands against the
// table service.
type Gateway struct {
	mu          sync.RWMutex
	connections map[string]*Connection

	tables *table.Service
	auth   auth.Service
	logger *log.Logger
}

func New(tables *table.Service, authService auth.Service, logger *log.Logger) *Gateway {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	g := &Gateway{
		connections: make(map[string]*Connection),
		tables:      tables,
		auth:        authService,
		logger:      logger,
	}
	tables.OnChange(g.tableChanged)
	return g
}

// HandleWebSocket authenticates the session token (query parameter "token"
// or a Bearer header) and upgrades the connection.
func (g *Gateway) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		token = auth.BearerToken(r.Header.Get("Authorization"))
	}
	ident, ok := g.auth.ResolveSession(token)
	if !ok {
		http.Error(w, "invalid session token", http.StatusUnauthorized)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		g.logger.Warn("upgrade failed", "err", err)
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	c := &Connection{
		ID:      uuid.NewString(),
		Caller:  table.Caller{ID: ident.ID, Name: ident.Name},
		Conn:    conn,
		Send:    make(chan []byte, sendBuffer),
		gateway: g,
		ctx:     ctx,
		cancel:  cancel,
		watched: make(map[string]bool),
		dirty:   make(chan string, 16),
	}

	g.mu.Lock()
	g.connections[c.ID] = c
	total := len(g.connections)
	g.mu.Unlock()
	g.logger.Info("client connected", "conn", c.ID, "user", ident.ID, "total", total)

	go c.readPump()
	go c.writePump()
	go c.updatePump()
}

func (c *Connection) readPump() {
	defer func() {
		c.gateway.removeConnection(c)
		c.cancel()
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		messageType, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.gateway.logger.Warn("read error", "conn", c.ID, "err", err)
			}
			break
		}
		if messageType != websocket.TextMessage {
			continue
		}
		c.enqueue(c.handleMessage(message))
	}
}

func (c *Connection) handleMessage(data []byte) Response {
	var req Request
	if err := json.Unmarshal(data, &req); err != nil {
		return Response{Type: TypeError, Error: &WireError{Code: "bad_request", Message: "invalid message format"}}
	}
	resp, err := c.gateway.dispatch(c.ctx, c.Caller, req)
	if err != nil {
		we := wireError(err)
		if we.Code == "internal" {
			c.gateway.logger.Error("command failed", "conn", c.ID, "method", req.Method, "err", err)
		}
		return Response{ID: req.ID, Type: TypeError, Error: we}
	}
	if resp.Table != nil && resp.Table.Table != nil {
		c.watch(resp.Table.Table.ID)
	}
	resp.ID = req.ID
	resp.Type = TypeResult
	return resp
}

// dispatch runs one command. Every table command answers with the caller's
// refreshed view of that table.
func (g *Gateway) dispatch(ctx context.Context, caller table.Caller, req Request) (Response, error) {
	var p params
	if len(req.Params) > 0 {
		if err := json.Unmarshal(req.Params, &p); err != nil {
			return Response{}, fmt.Errorf("%w: params: %v", errBadRequest, err)
		}
	}

	var (
		snap holdem.Snapshot
		err  error
	)
	switch req.Method {
	case "create_table":
		snap, err = g.tables.CreateTable(ctx, caller, table.CreateRequest{Name: p.Name, Config: p.Config, Password: p.Password})
	case "join_table":
		snap, err = g.tables.JoinTable(ctx, p.TableID, caller, p.Password)
	case "set_ready":
		snap, err = g.tables.SetReady(ctx, p.TableID, caller, p.Ready)
	case "set_sitting_out":
		snap, err = g.tables.SetSittingOut(ctx, p.TableID, caller, p.SittingOut)
	case "leave_table":
		snap, err = g.tables.LeaveTable(ctx, p.TableID, caller)
	case "swap_seats":
		snap, err = g.tables.SwapSeats(ctx, p.TableID, caller, p.A, p.B)
	case "start_game":
		snap, err = g.tables.StartGame(ctx, p.TableID, caller)
	case "act":
		snap, err = g.tables.Act(ctx, p.TableID, caller, p.Action, p.Amount)
	case "advance_stage":
		snap, err = g.tables.AdvanceStage(ctx, p.TableID, caller)
	case "confirm_winners":
		snap, err = g.tables.ConfirmWinners(ctx, p.TableID, caller, p.Ranking)
	case "start_next_hand":
		snap, err = g.tables.StartNextHand(ctx, p.TableID, caller)
	case "end_game":
		snap, err = g.tables.EndGame(ctx, p.TableID, caller)
	case "view":
		snap, err = g.tables.View(ctx, p.TableID, caller.ID)
	case "history":
		hands, err := g.tables.History(ctx, p.TableID)
		return Response{Hands: hands}, err
	case "events":
		events, err := g.tables.Events(ctx, p.TableID, p.Limit)
		return Response{Events: events}, err
	case "audit":
		report, err := g.tables.Audit(ctx, p.TableID)
		if err != nil {
			return Response{}, err
		}
		return Response{Audit: &report}, nil
	default:
		return Response{}, fmt.Errorf("%w: unknown method %q", errBadRequest, req.Method)
	}
	if err != nil {
		return Response{}, err
	}
	return Response{Table: &snap}, nil
}

func (c *Connection) watch(tableID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.watched[tableID] = true
}

func (c *Connection) watching(tableID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.watched[tableID]
}

// tableChanged marks tableID dirty on every connection watching it. The
// view itself is built on the connection's own goroutine so the committing
// command never waits on a slow client.
func (g *Gateway) tableChanged(tableID string, _ int64) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	for _, c := range g.connections {
		if !c.watching(tableID) {
			continue
		}
		select {
		case c.dirty <- tableID:
		default:
			// a push for this table is already queued or the client is far behind
		}
	}
}

func (c *Connection) updatePump() {
	for {
		select {
		case <-c.ctx.Done():
			return
		case tableID := <-c.dirty:
			snap, err := c.gateway.tables.View(c.ctx, tableID, c.Caller.ID)
			if err != nil {
				if c.ctx.Err() == nil {
					c.gateway.logger.Warn("push view failed", "conn", c.ID, "table", tableID, "err", err)
				}
				continue
			}
			c.enqueue(Response{Type: TypeUpdate, Table: &snap})
		}
	}
}

func (c *Connection) enqueue(resp Response) {
	data, err := json.Marshal(resp)
	if err != nil {
		c.gateway.logger.Error("marshal response", "conn", c.ID, "err", err)
		return
	}
	select {
	case c.Send <- data:
	case <-c.ctx.Done():
	default:
		c.gateway.logger.Warn("send buffer full, dropping message", "conn", c.ID)
	}
}

func (c *Connection) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case <-c.ctx.Done():
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
			return

		case message := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (g *Gateway) removeConnection(c *Connection) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.connections, c.ID)
	g.logger.Info("client disconnected", "conn", c.ID, "total", len(g.connections))
}

// Close drops every connection.
func (g *Gateway) Close() {
	g.mu.RLock()
	defer g.mu.RUnlock()
	for _, c := range g.connections {
		c.cancel()
	}
}
