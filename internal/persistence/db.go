// Package persistence provides SQLite-backed world state storage. Saves
// are full replaces inside one transaction per table; the simulation never
// reads back mid-run, the database exists for restarts and offline
// inspection.
package persistence

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/talgya/crownworks/internal/engine"
)

// DB wraps a SQLite connection.
type DB struct {
	conn *sqlx.DB
}

// Open opens or creates a SQLite database at the given path.
func Open(path string) (*DB, error) {
	conn, err := sqlx.Open("sqlite", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return db, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

func (db *DB) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS agents (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		pos_x REAL NOT NULL,
		pos_z REAL NOT NULL,
		rank INTEGER NOT NULL,
		job INTEGER NOT NULL,
		wallet REAL NOT NULL,
		capacity INTEGER NOT NULL,
		alive INTEGER NOT NULL,
		born_tick INTEGER NOT NULL,
		state_json TEXT NOT NULL,
		inventory_json TEXT NOT NULL,
		needs_json TEXT NOT NULL,
		carrying_json TEXT
	);

	CREATE TABLE IF NOT EXISTS buildings (
		id TEXT PRIMARY KEY,
		type INTEGER NOT NULL,
		name TEXT NOT NULL,
		owner_kind INTEGER NOT NULL,
		owner_id TEXT,
		pos_x REAL NOT NULL,
		pos_z REAL NOT NULL,
		progress REAL NOT NULL,
		health REAL NOT NULL,
		required_json TEXT NOT NULL,
		delivered_json TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS markets (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		pos_x REAL NOT NULL,
		pos_z REAL NOT NULL,
		specialty INTEGER NOT NULL,
		treasury REAL NOT NULL,
		transactions INTEGER NOT NULL,
		stock_json TEXT NOT NULL,
		prices_json TEXT NOT NULL,
		buys_json TEXT NOT NULL,
		sells_json TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS kingdoms (
		id TEXT PRIMARY KEY,
		king_id TEXT NOT NULL,
		goal INTEGER NOT NULL,
		goal_priority REAL NOT NULL,
		goal_set_tick INTEGER NOT NULL,
		center_x REAL NOT NULL,
		center_z REAL NOT NULL,
		radius REAL NOT NULL,
		nobles_json TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS noble_orders (
		id TEXT PRIMARY KEY,
		noble_id TEXT NOT NULL,
		building_type INTEGER NOT NULL,
		pos_x REAL NOT NULL,
		pos_z REAL NOT NULL,
		priority REAL NOT NULL,
		status INTEGER NOT NULL,
		building_id TEXT,
		builders_json TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS nodes (
		id TEXT PRIMARY KEY,
		kind INTEGER NOT NULL,
		pos_x REAL NOT NULL,
		pos_z REAL NOT NULL,
		quantity INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		tick INTEGER NOT NULL,
		description TEXT NOT NULL,
		category TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS world_meta (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_events_tick ON events(tick);
	CREATE INDEX IF NOT EXISTS idx_agents_alive ON agents(alive);
	CREATE INDEX IF NOT EXISTS idx_orders_status ON noble_orders(status);
	`
	_, err := db.conn.Exec(schema)
	return err
}

// SaveAgents writes the agent table (full replace).
func (db *DB) SaveAgents(sim *engine.Simulation) error {
	tx, err := db.conn.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM agents"); err != nil {
		return err
	}

	stmt, err := tx.Preparex(`INSERT INTO agents
		(id, name, pos_x, pos_z, rank, job, wallet, capacity, alive, born_tick,
		 state_json, inventory_json, needs_json, carrying_json)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, a := range sim.Agents.Living() {
		stateJSON, _ := json.Marshal(a.State)
		invJSON, _ := json.Marshal(a.Inventory)
		needsJSON, _ := json.Marshal(a.Needs)
		var carryingJSON []byte
		if a.Carrying != nil {
			carryingJSON, _ = json.Marshal(a.Carrying)
		}

		alive := 0
		if a.Alive {
			alive = 1
		}

		_, err := stmt.Exec(
			a.ID.String(), a.Name, a.Position.X, a.Position.Z,
			a.Rank, a.Job, a.Wallet, a.Capacity, alive, a.BornTick,
			string(stateJSON), string(invJSON), string(needsJSON), string(carryingJSON),
		)
		if err != nil {
			return fmt.Errorf("insert agent %s: %w", a.ID, err)
		}
	}
	return tx.Commit()
}

// SaveBuildings writes the building table (full replace).
func (db *DB) SaveBuildings(sim *engine.Simulation) error {
	tx, err := db.conn.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM buildings"); err != nil {
		return err
	}

	for _, b := range sim.Buildings.Snapshot() {
		reqJSON, _ := json.Marshal(b.Required)
		delJSON, _ := json.Marshal(b.Delivered)
		_, err := tx.Exec(`INSERT INTO buildings
			(id, type, name, owner_kind, owner_id, pos_x, pos_z, progress, health,
			 required_json, delivered_json)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			b.ID.String(), b.Type, b.Name, b.Owner.Kind, b.Owner.ID.String(),
			b.Position.X, b.Position.Z, b.Progress, b.Health,
			string(reqJSON), string(delJSON),
		)
		if err != nil {
			return fmt.Errorf("insert building %s: %w", b.ID, err)
		}
	}
	return tx.Commit()
}

// SaveMarkets writes the market table (full replace).
func (db *DB) SaveMarkets(sim *engine.Simulation) error {
	tx, err := db.conn.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM markets"); err != nil {
		return err
	}

	for _, m := range sim.Markets.Snapshot() {
		stockJSON, _ := json.Marshal(m.Stock)
		pricesJSON, _ := json.Marshal(m.Prices)
		buysJSON, _ := json.Marshal(m.Buys)
		sellsJSON, _ := json.Marshal(m.Sells)
		_, err := tx.Exec(`INSERT INTO markets
			(id, name, pos_x, pos_z, specialty, treasury, transactions,
			 stock_json, prices_json, buys_json, sells_json)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			m.ID.String(), m.Name, m.Position.X, m.Position.Z,
			m.Specialty, m.Treasury, m.Transactions,
			string(stockJSON), string(pricesJSON), string(buysJSON), string(sellsJSON),
		)
		if err != nil {
			return fmt.Errorf("insert market %s: %w", m.ID, err)
		}
	}
	return tx.Commit()
}

// SaveHierarchy writes kingdoms and noble orders (full replace).
func (db *DB) SaveHierarchy(sim *engine.Simulation) error {
	tx, err := db.conn.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM kingdoms"); err != nil {
		return err
	}
	if _, err := tx.Exec("DELETE FROM noble_orders"); err != nil {
		return err
	}

	for _, k := range sim.Kingdoms.Kingdoms() {
		noblesJSON, _ := json.Marshal(k.NobleIDs)
		_, err := tx.Exec(`INSERT INTO kingdoms
			(id, king_id, goal, goal_priority, goal_set_tick, center_x, center_z, radius, nobles_json)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			k.ID.String(), k.KingID.String(), k.CurrentGoal, k.GoalPriority, k.GoalSetTick,
			k.TerritoryCenter.X, k.TerritoryCenter.Z, k.TerritoryRadius, string(noblesJSON),
		)
		if err != nil {
			return fmt.Errorf("insert kingdom %s: %w", k.ID, err)
		}
	}

	for _, o := range sim.Kingdoms.Orders() {
		buildersJSON, _ := json.Marshal(o.AssignedBuilders)
		_, err := tx.Exec(`INSERT INTO noble_orders
			(id, noble_id, building_type, pos_x, pos_z, priority, status, building_id, builders_json)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			o.ID.String(), o.NobleID.String(), o.BuildingType,
			o.Location.X, o.Location.Z, o.Priority, o.Status,
			o.BuildingID.String(), string(buildersJSON),
		)
		if err != nil {
			return fmt.Errorf("insert order %s: %w", o.ID, err)
		}
	}
	return tx.Commit()
}

// SaveNodes writes the resource node table (full replace).
func (db *DB) SaveNodes(sim *engine.Simulation) error {
	tx, err := db.conn.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM nodes"); err != nil {
		return err
	}
	for _, n := range sim.Nodes.Snapshot() {
		_, err := tx.Exec(
			"INSERT INTO nodes (id, kind, pos_x, pos_z, quantity) VALUES (?, ?, ?, ?, ?)",
			n.ID.String(), n.Kind, n.Position.X, n.Position.Z, n.Quantity,
		)
		if err != nil {
			return fmt.Errorf("insert node %s: %w", n.ID, err)
		}
	}
	return tx.Commit()
}

// SaveEvents writes the event table (full replace, like every other
// table — the in-memory ring is bounded, so the table stays small and
// repeated saves never accumulate duplicates).
func (db *DB) SaveEvents(events []engine.Event) error {
	tx, err := db.conn.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM events"); err != nil {
		return err
	}
	for _, e := range events {
		_, err := tx.Exec(
			"INSERT INTO events (tick, description, category) VALUES (?, ?, ?)",
			e.Tick, e.Description, e.Category,
		)
		if err != nil {
			return err
		}
	}
	return tx.Commit()
}

// SaveMeta stores a key-value pair in world metadata.
func (db *DB) SaveMeta(key, value string) error {
	_, err := db.conn.Exec(
		"INSERT OR REPLACE INTO world_meta (key, value) VALUES (?, ?)",
		key, value,
	)
	return err
}

// GetMeta retrieves a metadata value.
func (db *DB) GetMeta(key string) (string, error) {
	var value string
	err := db.conn.Get(&value, "SELECT value FROM world_meta WHERE key = ?", key)
	return value, err
}

// SaveWorldState performs a full save of all world state.
func (db *DB) SaveWorldState(sim *engine.Simulation) error {
	slog.Info("saving world state", "tick", sim.CurrentTick())

	if err := db.SaveAgents(sim); err != nil {
		return fmt.Errorf("save agents: %w", err)
	}
	if err := db.SaveBuildings(sim); err != nil {
		return fmt.Errorf("save buildings: %w", err)
	}
	if err := db.SaveMarkets(sim); err != nil {
		return fmt.Errorf("save markets: %w", err)
	}
	if err := db.SaveHierarchy(sim); err != nil {
		return fmt.Errorf("save hierarchy: %w", err)
	}
	if err := db.SaveNodes(sim); err != nil {
		return fmt.Errorf("save nodes: %w", err)
	}
	if err := db.SaveEvents(sim.RecentEvents(0)); err != nil {
		return fmt.Errorf("save events: %w", err)
	}
	currencyJSON, _ := json.Marshal(sim.Currency.Snapshot())
	if err := db.SaveMeta("currency", string(currencyJSON)); err != nil {
		return fmt.Errorf("save currency: %w", err)
	}
	if err := db.SaveMeta("last_tick", fmt.Sprintf("%d", sim.CurrentTick())); err != nil {
		return fmt.Errorf("save meta: %w", err)
	}

	slog.Info("world state saved")
	return nil
}

// RecentEvents returns the most recent N persisted events.
func (db *DB) RecentEvents(limit int) ([]engine.Event, error) {
	var events []engine.Event
	err := db.conn.Select(&events,
		"SELECT tick, description, category FROM events ORDER BY id DESC LIMIT ?",
		limit,
	)
	return events, err
}
