// Package api serves the world state over HTTP. GET endpoints are public
// read-only observation; POST endpoints are the admin control plane and
// require a bearer token.
package api

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/talgya/crownworks/internal/engine"
	"github.com/talgya/crownworks/internal/persistence"
	"github.com/talgya/crownworks/internal/world"
)

// Server serves the simulation over HTTP.
type Server struct {
	Sim      *engine.Simulation
	Eng      *engine.Engine
	DB       *persistence.DB
	Port     int
	AdminKey string // bearer token for POST endpoints; empty = POST disabled
}

// Start begins serving in a goroutine.
func (s *Server) Start() {
	snapshotLimiter := NewRateLimiter(12, time.Hour)

	mux := http.NewServeMux()

	// Public observation endpoints.
	mux.HandleFunc("/api/v1/status", s.handleStatus)
	mux.HandleFunc("/api/v1/agents", s.handleAgents)
	mux.HandleFunc("/api/v1/agent/", s.handleAgentDetail)
	mux.HandleFunc("/api/v1/markets", s.handleMarkets)
	mux.HandleFunc("/api/v1/buildings", s.handleBuildings)
	mux.HandleFunc("/api/v1/kingdoms", s.handleKingdoms)
	mux.HandleFunc("/api/v1/orders", s.handleOrders)
	mux.HandleFunc("/api/v1/economy", s.handleEconomy)
	mux.HandleFunc("/api/v1/nodes", s.handleNodes)
	mux.HandleFunc("/api/v1/events", s.handleEvents)

	// Admin control plane.
	mux.HandleFunc("/api/v1/speed", s.adminOnly(s.handleSpeed))
	mux.HandleFunc("/api/v1/snapshot", s.adminOnly(RateLimitMiddleware(snapshotLimiter, s.handleSnapshot)))

	addr := fmt.Sprintf(":%d", s.Port)
	slog.Info("HTTP API starting", "addr", addr, "admin_auth", s.AdminKey != "")

	go func() {
		handler := corsMiddleware(mux)
		if err := http.ListenAndServe(addr, handler); err != nil {
			slog.Error("HTTP server error", "error", err)
		}
	}()
}

// corsMiddleware allows localhost dev servers plus anything listed in the
// CORS_ORIGINS env var (comma-separated).
func corsMiddleware(next http.Handler) http.Handler {
	allowedOrigins := map[string]bool{
		"http://localhost:5173": true,
		"http://localhost:3000": true,
	}
	if env := os.Getenv("CORS_ORIGINS"); env != "" {
		for _, origin := range strings.Split(env, ",") {
			origin = strings.TrimSpace(origin)
			if origin != "" {
				allowedOrigins[origin] = true
			}
		}
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if allowedOrigins[origin] {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) checkBearerToken(r *http.Request) bool {
	auth := r.Header.Get("Authorization")
	return strings.HasPrefix(auth, "Bearer ") && strings.TrimPrefix(auth, "Bearer ") == s.AdminKey
}

// adminOnly requires bearer auth on POST; GET passes through.
func (s *Server) adminOnly(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			if s.AdminKey == "" {
				http.Error(w, "admin endpoints disabled (no admin key set)", http.StatusForbidden)
				return
			}
			if !s.checkBearerToken(r) {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
		}
		next(w, r)
	}
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	cur := s.Sim.Currency.Snapshot()
	st := s.Sim.StatsSnapshot()
	tick := s.Sim.CurrentTick()
	writeJSON(w, map[string]any{
		"name":             "Crownworks",
		"tick":             tick,
		"sim_time":         engine.SimTime(tick),
		"speed":            s.Eng.Speed(),
		"running":          s.Eng.Running(),
		"population":       st.Population,
		"deaths":           st.Deaths,
		"births":           st.Births,
		"buildings":        st.Buildings,
		"completed":        st.Completed,
		"open_orders":      st.OpenOrders,
		"agent_wealth":     st.AgentWealth,
		"treasury_wealth":  st.TreasuryWealth,
		"money_supply":     cur.TotalSupply,
		"purchasing_power": cur.PurchasingPower,
	})
}

func (s *Server) handleAgents(w http.ResponseWriter, r *http.Request) {
	type agentSummary struct {
		ID     uuid.UUID `json:"id"`
		Name   string    `json:"name"`
		Rank   string    `json:"rank"`
		Job    string    `json:"job"`
		State  string    `json:"state"`
		Wallet float64   `json:"wallet"`
		X      float64   `json:"x"`
		Z      float64   `json:"z"`
	}

	rankFilter := r.URL.Query().Get("rank")
	living := s.Sim.Agents.Living()
	out := make([]agentSummary, 0, len(living))
	for _, a := range living {
		if rankFilter != "" && a.Rank.String() != rankFilter {
			continue
		}
		out = append(out, agentSummary{
			ID: a.ID, Name: a.Name,
			Rank: a.Rank.String(), Job: a.Job.String(), State: a.State.Kind.String(),
			Wallet: a.Wallet, X: a.Position.X, Z: a.Position.Z,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	writeJSON(w, map[string]any{"count": len(out), "agents": out})
}

func (s *Server) handleAgentDetail(w http.ResponseWriter, r *http.Request) {
	idStr := strings.TrimPrefix(r.URL.Path, "/api/v1/agent/")
	id, err := uuid.Parse(idStr)
	if err != nil {
		http.Error(w, "bad agent id", http.StatusBadRequest)
		return
	}
	a, ok := s.Sim.Agents.Get(id)
	if !ok {
		http.Error(w, "agent not found", http.StatusNotFound)
		return
	}
	writeJSON(w, a)
}

func (s *Server) handleMarkets(w http.ResponseWriter, r *http.Request) {
	type marketSummary struct {
		ID           uuid.UUID          `json:"id"`
		Name         string             `json:"name"`
		Specialty    string             `json:"specialty"`
		Treasury     float64            `json:"treasury"`
		Transactions uint64             `json:"transactions"`
		OpenBuys     int                `json:"open_buys"`
		OpenSells    int                `json:"open_sells"`
		Stock        map[string]int     `json:"stock"`
		Prices       map[string]float64 `json:"prices"`
	}

	markets := s.Sim.Markets.Snapshot()
	out := make([]marketSummary, 0, len(markets))
	for _, m := range markets {
		stock := make(map[string]int, len(m.Stock))
		for k, v := range m.Stock {
			stock[k.String()] = v
		}
		prices := make(map[string]float64, len(m.Prices))
		for k, v := range m.Prices {
			prices[k.String()] = v
		}
		out = append(out, marketSummary{
			ID: m.ID, Name: m.Name, Specialty: m.Specialty.String(),
			Treasury: m.Treasury, Transactions: m.Transactions,
			OpenBuys: len(m.Buys), OpenSells: len(m.Sells),
			Stock: stock, Prices: prices,
		})
	}
	writeJSON(w, map[string]any{"count": len(out), "markets": out})
}

func (s *Server) handleBuildings(w http.ResponseWriter, r *http.Request) {
	type buildingSummary struct {
		ID       uuid.UUID `json:"id"`
		Type     string    `json:"type"`
		Name     string    `json:"name"`
		Progress float64   `json:"progress"`
		Health   float64   `json:"health"`
		X        float64   `json:"x"`
		Z        float64   `json:"z"`
	}

	buildings := s.Sim.Buildings.Snapshot()
	out := make([]buildingSummary, 0, len(buildings))
	for _, b := range buildings {
		out = append(out, buildingSummary{
			ID: b.ID, Type: b.Type.String(), Name: b.Name,
			Progress: b.Progress, Health: b.Health,
			X: b.Position.X, Z: b.Position.Z,
		})
	}
	writeJSON(w, map[string]any{"count": len(out), "buildings": out})
}

func (s *Server) handleKingdoms(w http.ResponseWriter, r *http.Request) {
	type kingdomSummary struct {
		ID       uuid.UUID `json:"id"`
		KingID   uuid.UUID `json:"king_id"`
		Goal     string    `json:"goal"`
		Priority float64   `json:"priority"`
		Nobles   int       `json:"nobles"`
	}

	kingdoms := s.Sim.Kingdoms.Kingdoms()
	out := make([]kingdomSummary, 0, len(kingdoms))
	for _, k := range kingdoms {
		out = append(out, kingdomSummary{
			ID: k.ID, KingID: k.KingID,
			Goal: k.CurrentGoal.String(), Priority: k.GoalPriority,
			Nobles: len(k.NobleIDs),
		})
	}
	writeJSON(w, map[string]any{"count": len(out), "kingdoms": out})
}

func (s *Server) handleOrders(w http.ResponseWriter, r *http.Request) {
	type orderSummary struct {
		ID       uuid.UUID `json:"id"`
		NobleID  uuid.UUID `json:"noble_id"`
		Type     string    `json:"type"`
		Status   string    `json:"status"`
		Priority float64   `json:"priority"`
		Builders int       `json:"builders"`
	}

	orders := s.Sim.Kingdoms.Orders()
	out := make([]orderSummary, 0, len(orders))
	for _, o := range orders {
		if q := r.URL.Query().Get("status"); q != "" && o.Status.String() != q {
			continue
		}
		out = append(out, orderSummary{
			ID: o.ID, NobleID: o.NobleID,
			Type: o.BuildingType.String(), Status: o.Status.String(),
			Priority: o.Priority, Builders: len(o.AssignedBuilders),
		})
	}
	writeJSON(w, map[string]any{"count": len(out), "orders": out})
}

func (s *Server) handleEconomy(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]any{
		"currency":        s.Sim.Currency.Snapshot(),
		"market_treasury": s.Sim.Markets.TotalTreasury(),
		"agent_wealth":    s.Sim.Agents.TotalWealth(),
	})
}

func (s *Server) handleNodes(w http.ResponseWriter, r *http.Request) {
	type nodeSummary struct {
		Kind     string `json:"kind"`
		Count    int    `json:"count"`
		Quantity int    `json:"quantity"`
	}

	byKind := make(map[world.NodeKind]*nodeSummary)
	for _, n := range s.Sim.Nodes.Snapshot() {
		entry, ok := byKind[n.Kind]
		if !ok {
			entry = &nodeSummary{Kind: n.Kind.String()}
			byKind[n.Kind] = entry
		}
		entry.Count++
		entry.Quantity += n.Quantity
	}
	out := make([]nodeSummary, 0, len(byKind))
	for _, e := range byKind {
		out = append(out, *e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Kind < out[j].Kind })
	writeJSON(w, map[string]any{"nodes": out})
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if q := r.URL.Query().Get("limit"); q != "" {
		if n, err := strconv.Atoi(q); err == nil && n > 0 && n <= 500 {
			limit = n
		}
	}
	writeJSON(w, map[string]any{"events": s.Sim.RecentEvents(limit)})
}

// handleSpeed pauses or re-paces the engine: POST {"speed": 2.0}.
func (s *Server) handleSpeed(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, map[string]any{"speed": s.Eng.Speed()})
		return
	}
	var req struct {
		Speed float64 `json:"speed"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad request body", http.StatusBadRequest)
		return
	}
	if req.Speed < 0 || req.Speed > 100 {
		http.Error(w, "speed must be in [0, 100]", http.StatusBadRequest)
		return
	}
	s.Eng.SetSpeed(req.Speed)
	slog.Info("speed changed", "speed", req.Speed)
	writeJSON(w, map[string]any{"speed": s.Eng.Speed()})
}

// handleSnapshot forces a full save: POST with no body.
func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "POST only", http.StatusMethodNotAllowed)
		return
	}
	if s.DB == nil {
		http.Error(w, "persistence disabled", http.StatusServiceUnavailable)
		return
	}
	if err := s.DB.SaveWorldState(s.Sim); err != nil {
		slog.Error("snapshot failed", "error", err)
		http.Error(w, "snapshot failed", http.StatusInternalServerError)
		return
	}
	writeJSON(w, map[string]any{"saved_at_tick": s.Sim.CurrentTick()})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("write response", "error", err)
	}
}
