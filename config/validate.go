package config

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"

	"dealchain/core/state"
	"dealchain/native/fees"
)

// Validate checks the values the daemon cannot start without.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.DataDir) == "" {
		return fmt.Errorf("DataDir must not be empty")
	}
	if err := fees.ValidateRate(c.Admin.FeeBps); err != nil {
		return fmt.Errorf("admin: %w", err)
	}
	if owner := strings.TrimSpace(c.Admin.Owner); owner != "" && !common.IsHexAddress(owner) {
		return fmt.Errorf("admin: invalid owner address %q", owner)
	}
	if c.RateLimit.RequestsPerMinute < 0 || c.RateLimit.Burst < 0 {
		return fmt.Errorf("ratelimit: values must not be negative")
	}
	if c.Telemetry.SampleRatio < 0 || c.Telemetry.SampleRatio > 1 {
		return fmt.Errorf("telemetry: SampleRatio must be within [0, 1]")
	}
	seen := make(map[string]struct{}, len(c.Genesis))
	for i, account := range c.Genesis {
		if !common.IsHexAddress(strings.TrimSpace(account.Address)) {
			return fmt.Errorf("genesis[%d]: invalid address %q", i, account.Address)
		}
		key := strings.ToLower(common.HexToAddress(account.Address).Hex())
		if _, dup := seen[key]; dup {
			return fmt.Errorf("genesis[%d]: duplicate address %s", i, account.Address)
		}
		seen[key] = struct{}{}
		if _, err := parseBalance(account.Balance); err != nil {
			return fmt.Errorf("genesis[%d]: %w", i, err)
		}
	}
	return nil
}

func parseBalance(raw string) (*big.Int, error) {
	value, ok := new(big.Int).SetString(strings.TrimSpace(raw), 10)
	if !ok {
		return nil, fmt.Errorf("invalid balance %q", raw)
	}
	if value.Sign() <= 0 {
		return nil, fmt.Errorf("balance %q must be positive", raw)
	}
	return value, nil
}

// LedgerGenesis converts the admin and genesis sections into the ledger's
// initial contents.
func (c *Config) LedgerGenesis() (state.Genesis, error) {
	if err := c.Validate(); err != nil {
		return state.Genesis{}, err
	}
	g := state.Genesis{FeeBps: c.Admin.FeeBps}
	if owner := strings.TrimSpace(c.Admin.Owner); owner != "" {
		g.Owner = common.HexToAddress(owner)
	}
	for _, account := range c.Genesis {
		balance, err := parseBalance(account.Balance)
		if err != nil {
			return state.Genesis{}, err
		}
		g.Allocs = append(g.Allocs, state.GenesisAlloc{
			Address: common.HexToAddress(strings.TrimSpace(account.Address)),
			Balance: balance,
		})
	}
	return g, nil
}
