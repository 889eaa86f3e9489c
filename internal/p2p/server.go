package p2p

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/chainforge/chainnode/internal/block"
	"github.com/chainforge/chainnode/internal/blockchain"
	"github.com/chainforge/chainnode/internal/chainerr"
	"github.com/chainforge/chainnode/internal/config"
	"github.com/chainforge/chainnode/internal/logging"
	"github.com/chainforge/chainnode/internal/mempool"
	"github.com/chainforge/chainnode/internal/transaction"
)

// Message is the envelope every frame on the wire carries: a channel
// tag (node/chain/sync/transact) and its opaque JSON content.
type Message struct {
	Channel string          `json:"channel"`
	Content json.RawMessage `json:"content"`
}

// wsSocket adapts a gorilla websocket connection to the Socket
// interface, serializing concurrent writes behind a mutex the way
// gorilla's docs require (one writer goroutine per connection at a time).
type wsSocket struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (s *wsSocket) Send(message []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn.WriteMessage(websocket.TextMessage, message)
}

func (s *wsSocket) Close() error {
	return s.conn.Close()
}

// Server is this node's P2P gossip server: it accepts inbound peer
// sockets, dials outbound ones, and keeps the chain and mempool in
// sync over the node/chain/sync/transact channels.
type Server struct {
	cfg      *config.Config
	chain    *blockchain.Blockchain
	pool     *mempool.Mempool
	nodes    *NodesNetwork
	log      *logging.Logger
	selfURI  string
	upgrader websocket.Upgrader
}

// NewServer wires a P2P server over chain and pool, advertising selfURI
// to peers it connects to.
func NewServer(cfg *config.Config, chain *blockchain.Blockchain, pool *mempool.Mempool, selfURI string, log *logging.Logger) *Server {
	if log == nil {
		log = logging.Default
	}
	return &Server{
		cfg:     cfg,
		chain:   chain,
		pool:    pool,
		nodes:   NewNodesNetwork(),
		log:     log,
		selfURI: selfURI,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// Nodes exposes the peer registry, mainly for tests and diagnostics.
func (s *Server) Nodes() *NodesNetwork { return s.nodes }

// Bind returns the HTTP handler inbound peers upgrade their connection
// through.
func (s *Server) Bind() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := s.upgrader.Upgrade(w, r, nil)
		if err != nil {
			s.log.Error("p2p", "upgrade failed: %v", err)
			return
		}
		socket := &wsSocket{conn: conn}
		go s.readLoop("", socket)
	})
}

// Start runs the P2P listener until ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	srv := &http.Server{Addr: s.cfg.ListenAddr(), Handler: s.Bind()}
	errCh := make(chan error, 1)
	go func() {
		s.log.Info("p2p", "listening on %s", s.cfg.ListenAddr())
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		return srv.Close()
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	}
}

// ConnectNodes dials every peer in uris that has no live socket yet
// (whether or not its uri is already known) and introduces this node
// over the node channel.
func (s *Server) ConnectNodes(uris []string) {
	unconnected := make(map[string]bool)
	for _, uri := range s.nodes.UnconnectedURIs() {
		unconnected[uri] = true
	}
	for _, uri := range uris {
		if uri == s.selfURI || (s.nodes.Has(uri) && !unconnected[uri]) {
			continue
		}
		conn, _, err := websocket.DefaultDialer.Dial(uri, nil)
		if err != nil {
			s.log.Warn("p2p", "failed to connect to %s: %v", uri, err)
			continue
		}
		socket := &wsSocket{conn: conn}
		s.nodes.Add(uri, socket)
		s.introduce(socket)
		go s.readLoop(uri, socket)
	}
}

func (s *Server) introduce(socket Socket) {
	s.send(socket, config.ChannelNode, s.selfURI)
}

// Heartbeat periodically gossips this node's known peer URIs over the
// sync channel, redials any known peer it currently has no live socket
// to, and logs when the uri/socket sets have drifted out of coherence.
func (s *Server) Heartbeat(ctx context.Context) {
	ticker := time.NewTicker(time.Duration(s.cfg.HeartbeatRateSec) * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.broadcast(config.ChannelSync, s.nodes.URIs())

			if stale := s.nodes.UnconnectedURIs(); len(stale) > 0 {
				s.ConnectNodes(stale)
			}
			if !s.nodes.Coherent() {
				s.log.Warn("p2p", "peer registry incoherent: %d known uris, %d live sockets", s.nodes.Len(), len(s.nodes.Sockets()))
			}
		}
	}
}

// BroadcastChain pushes the current chain to every known peer over the
// chain channel.
func (s *Server) BroadcastChain() {
	s.broadcast(config.ChannelChain, s.chain.Blocks())
}

// BroadcastTransaction pushes tx to every known peer over the transact
// channel.
func (s *Server) BroadcastTransaction(tx *transaction.Transaction) {
	s.broadcast(config.ChannelTransact, tx)
}

func (s *Server) broadcast(channel string, payload interface{}) {
	for _, socket := range s.nodes.Sockets() {
		s.send(socket, channel, payload)
	}
}

func (s *Server) send(socket Socket, channel string, payload interface{}) {
	body, err := json.Marshal(payload)
	if err != nil {
		s.log.Error("p2p", "failed to encode %s payload: %v", channel, err)
		return
	}
	msg, err := json.Marshal(Message{Channel: channel, Content: body})
	if err != nil {
		s.log.Error("p2p", "failed to encode envelope: %v", err)
		return
	}
	if err := socket.Send(msg); err != nil {
		s.log.Warn("p2p", "failed to send on %s: %v", channel, err)
	}
}

// readLoop drains one socket's inbound frames until it closes. uri is
// the peer's advertised address once known: for outbound connections
// it is known up front; for inbound connections it arrives later over
// the node channel, at which point the socket is registered into the
// peer registry so broadcasts reach it too.
func (s *Server) readLoop(uri string, socket *wsSocket) {
	defer socket.Close()
	for {
		_, data, err := socket.conn.ReadMessage()
		if err != nil {
			if uri != "" {
				s.nodes.Remove(uri)
			}
			return
		}
		if discovered, err := s.dispatch(data, socket); err != nil {
			s.log.Warn("p2p", "dropping malformed message: %v", err)
		} else if discovered != "" && uri == "" {
			uri = discovered
		}
	}
}

// dispatch decodes one wire message and applies it against the local
// chain, mempool, or peer registry. socket is the connection the
// message arrived on, used to reply directly (e.g. pushing the chain
// back to a newcomer introducing itself over the node channel).
func (s *Server) dispatch(raw []byte, socket Socket) (string, error) {
	var msg Message
	if err := json.Unmarshal(raw, &msg); err != nil {
		return "", chainerr.P2PServerError("failed to decode message envelope").WithBody(err.Error())
	}

	switch msg.Channel {
	case config.ChannelNode:
		var uri string
		if err := json.Unmarshal(msg.Content, &uri); err != nil {
			return "", chainerr.P2PServerError("failed to decode node payload")
		}
		s.log.Info("p2p", "peer introduced itself: %s", uri)
		if uri != "" && uri != s.selfURI {
			s.nodes.Add(uri, socket)
			s.send(socket, config.ChannelChain, s.chain.Blocks())
		}
		return uri, nil

	case config.ChannelChain:
		var blocks []*block.Block
		if err := json.Unmarshal(msg.Content, &blocks); err != nil {
			return "", chainerr.P2PServerError("failed to decode chain payload")
		}
		if err := s.chain.SetValidChain(blocks); err != nil {
			s.log.Debug("p2p", "rejected replacement chain: %v", err)
			return "", nil
		}
		s.pool.ClearAgainst(s.chain.Blocks())
		s.log.Info("p2p", "replaced local chain, new length %d", len(blocks))

	case config.ChannelSync:
		var uris []string
		if err := json.Unmarshal(msg.Content, &uris); err != nil {
			return "", chainerr.P2PServerError("failed to decode sync payload")
		}
		s.nodes.MergeURIs(uris)
		s.log.Debug("p2p", "merged %d peer uris from sync", len(uris))

	case config.ChannelTransact:
		var tx transaction.Transaction
		if err := json.Unmarshal(msg.Content, &tx); err != nil {
			return "", chainerr.P2PServerError("failed to decode transaction payload")
		}
		if err := transaction.IsValid(&tx); err != nil {
			s.log.Debug("p2p", "rejected invalid transaction: %v", err)
			return "", nil
		}
		s.pool.Add(&tx)

	default:
		return "", chainerr.P2PServerError("unknown channel", msg.Channel)
	}
	return "", nil
}
