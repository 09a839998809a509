package sniper

import (
	"errors"
	"fmt"
	"time"
)

// Config holds the trading parameters shared by all trackers.
type Config struct {
	// BuyAmount is the quote amount spent per snipe, in human units
	// (e.g. SOL for wrapped-SOL pools).
	BuyAmount float64

	// TargetPercent is the growth over the pool's initial value ratio
	// at which the position is sold, in percent.
	TargetPercent float64

	// Owner is the wallet address holding the positions.
	Owner string

	// MaxWatchDuration bounds the watch phase. After it elapses the
	// position is sold at market. Zero means watch forever.
	MaxWatchDuration time.Duration
}

// Validate checks the config. Invalid config is a startup error.
func (c Config) Validate() error {
	if c.BuyAmount <= 0 {
		return fmt.Errorf("buy amount must be positive, got %v", c.BuyAmount)
	}
	if c.TargetPercent <= 0 {
		return fmt.Errorf("target percent must be positive, got %v", c.TargetPercent)
	}
	if c.Owner == "" {
		return errors.New("owner address is required")
	}
	if c.MaxWatchDuration < 0 {
		return fmt.Errorf("max watch duration must not be negative, got %v", c.MaxWatchDuration)
	}
	return nil
}
