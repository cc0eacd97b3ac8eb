package economy

import (
	"github.com/talgya/crownworks/internal/lockcheck"
)

// Ledger is the single world currency account. Supply only grows, and only
// through wage minting — there is no burn channel — so purchasing power is
// a monotonically non-increasing index of cumulative supply growth.
type Ledger struct {
	lock lockcheck.Guarded

	initialSupply float64
	totalSupply   float64
	lastMeasured  float64

	mintTotal     float64
	txnVolume     float64
	txnCount      uint64
	inflationRate float64
}

// NewLedger creates a ledger. Call SetInitialSupply once the starting
// wallets and treasuries are known.
func NewLedger() *Ledger {
	return &Ledger{lock: lockcheck.NewGuarded(lockcheck.RankCurrency)}
}

// SetAuditor installs a lock auditor for tests.
func (l *Ledger) SetAuditor(a lockcheck.Auditor) { l.lock.SetAuditor(a) }

// SetInitialSupply records the money already in circulation at world init
// (seeded wallets plus market treasuries). The purchasing power index is
// 100 at this baseline.
func (l *Ledger) SetInitialSupply(total float64) {
	l.lock.Lock()
	defer l.lock.Unlock()
	l.initialSupply = total
	l.totalSupply = total
	l.lastMeasured = total
}

// MintWages adds freshly created money to the supply. This is the only
// money-creation channel in the system.
func (l *Ledger) MintWages(amount float64) {
	if amount <= 0 {
		return
	}
	l.lock.Lock()
	defer l.lock.Unlock()
	l.totalSupply += amount
	l.mintTotal += amount
}

// RecordTrades feeds executed trade value into the velocity accumulator.
// Trades redistribute money; they never change the supply.
func (l *Ledger) RecordTrades(volume float64, count int) {
	if count <= 0 {
		return
	}
	l.lock.Lock()
	defer l.lock.Unlock()
	l.txnVolume += volume
	l.txnCount += uint64(count)
}

// Measure recomputes the inflation rate as relative supply growth since
// the previous measurement. Runs on the slowest cadence.
func (l *Ledger) Measure() float64 {
	l.lock.Lock()
	defer l.lock.Unlock()
	if l.lastMeasured > 0 {
		l.inflationRate = (l.totalSupply - l.lastMeasured) / l.lastMeasured
	}
	l.lastMeasured = l.totalSupply
	return l.inflationRate
}

// Summary is the read-only currency aggregate for the snapshot API.
type Summary struct {
	TotalSupply     float64 `json:"total_supply"`
	MintTotal       float64 `json:"mint_total"`
	TxnVolume       float64 `json:"txn_volume"`
	TxnCount        uint64  `json:"txn_count"`
	InflationRate   float64 `json:"inflation_rate"`
	PurchasingPower float64 `json:"purchasing_power"` // 0–100 index
}

// Snapshot returns the current aggregates.
func (l *Ledger) Snapshot() Summary {
	l.lock.RLock()
	defer l.lock.RUnlock()
	return Summary{
		TotalSupply:     l.totalSupply,
		MintTotal:       l.mintTotal,
		TxnVolume:       l.txnVolume,
		TxnCount:        l.txnCount,
		InflationRate:   l.inflationRate,
		PurchasingPower: l.purchasingPower(),
	}
}

// purchasingPower is 100 × initial/current supply: 100 at baseline and
// strictly falling as supply grows. Caller holds the lock.
func (l *Ledger) purchasingPower() float64 {
	if l.totalSupply <= 0 || l.initialSupply <= 0 {
		return 100
	}
	return 100 * l.initialSupply / l.totalSupply
}
