// Package api exposes a thin HTTP surface over the core node: it
// decodes requests and delegates entirely to blockchain/mempool/wallet,
// adding no validation logic of its own.
package api

import (
	"encoding/json"
	"net/http"

	"github.com/chainforge/chainnode/internal/block"
	"github.com/chainforge/chainnode/internal/blockchain"
	"github.com/chainforge/chainnode/internal/config"
	"github.com/chainforge/chainnode/internal/logging"
	"github.com/chainforge/chainnode/internal/mempool"
	"github.com/chainforge/chainnode/internal/p2p"
	"github.com/chainforge/chainnode/internal/transaction"
	"github.com/chainforge/chainnode/internal/wallet"
)

// Server is the thin HTTP collaborator wiring the node's core state to
// a REST surface for wallets and block explorers.
type Server struct {
	chain  *blockchain.Blockchain
	pool   *mempool.Mempool
	wallet *wallet.Wallet
	p2p    *p2p.Server
	cfg    *config.Config
	log    *logging.Logger
}

// NewServer wires an HTTP collaborator over the given core components.
func NewServer(chain *blockchain.Blockchain, pool *mempool.Mempool, w *wallet.Wallet, p2pServer *p2p.Server, cfg *config.Config, log *logging.Logger) *Server {
	if log == nil {
		log = logging.Default
	}
	return &Server{chain: chain, pool: pool, wallet: w, p2p: p2pServer, cfg: cfg, log: log}
}

// Handler builds the mux for the HTTP surface described in SPEC_FULL.md §6.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/blockchain", s.handleBlockchain)
	mux.HandleFunc("/mine", s.handleMine)
	mux.HandleFunc("/transact", s.handleTransact)
	mux.HandleFunc("/balance", s.handleBalance)
	mux.HandleFunc("/addresses", s.handleAddresses)
	mux.HandleFunc("/transactions", s.handleTransactions)
	return mux
}

func (s *Server) handleBlockchain(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.chain.Blocks())
}

func (s *Server) handleMine(w http.ResponseWriter, r *http.Request) {
	reward := transaction.RewardMining(s.wallet.Address, s.cfg.MiningReward)
	s.pool.Add(reward)

	mined, err := s.chain.AddBlock(r.Context(), s.pool.Data(), block.NowMillis)
	if err != nil {
		writeError(w, err)
		return
	}
	s.pool.ClearAgainst(s.chain.Blocks())
	if s.p2p != nil {
		s.p2p.BroadcastChain()
	}
	writeJSON(w, http.StatusCreated, mined)
}

type transactRequest struct {
	Recipient string  `json:"recipient"`
	Amount    float64 `json:"amount"`
}

func (s *Server) handleTransact(w http.ResponseWriter, r *http.Request) {
	var req transactRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	existing := s.pool.GetBySender(s.wallet.Address)
	if existing != nil {
		if err := transaction.Update(existing, s.wallet.PrivateKey, s.wallet.PublicKey, s.wallet.Address, req.Amount, req.Recipient); err != nil {
			writeError(w, err)
			return
		}
		s.pool.Add(existing)
		if s.p2p != nil {
			s.p2p.BroadcastTransaction(existing)
		}
		writeJSON(w, http.StatusOK, existing)
		return
	}

	tx, err := s.wallet.CreateTransaction(s.chain.Blocks(), req.Amount, req.Recipient)
	if err != nil {
		writeError(w, err)
		return
	}
	s.pool.Add(tx)
	if s.p2p != nil {
		s.p2p.BroadcastTransaction(tx)
	}
	writeJSON(w, http.StatusCreated, tx)
}

func (s *Server) handleBalance(w http.ResponseWriter, r *http.Request) {
	address := r.URL.Query().Get("address")
	if address == "" {
		address = s.wallet.Address
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"address": address,
		"balance": wallet.Balance(s.chain.Blocks(), address),
	})
}

func (s *Server) handleAddresses(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, wallet.Addresses(s.chain.Blocks()))
}

func (s *Server) handleTransactions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.pool.Data())
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
}
