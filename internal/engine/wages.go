package engine

import (
	"fmt"

	"github.com/dustin/go-humanize"

	"github.com/talgya/crownworks/internal/agents"
)

// payWages mints each living agent's rank wage into their wallet. This is
// the economy's only money faucet; the minted total is reported to the
// currency ledger so supply accounting stays exact.
func (s *Simulation) payWages(tick uint64) {
	wages := s.Cfg.Wages

	total := 0.0
	s.Agents.MutateLiving(func(a *agents.Agent) {
		w := wages[a.Rank.String()]
		if w <= 0 {
			return
		}
		a.Wallet += w
		total += w
	})
	if total == 0 {
		return
	}
	s.Currency.MintWages(total)
	s.record(tick, "wages", fmt.Sprintf("%s coin minted in wages", humanize.CommafWithDigits(total, 0)))
}
