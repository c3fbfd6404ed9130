package market

import (
	"fmt"
	"time"

	"github.com/filecoin-project/go-state-types/big"
)

var (
	// StoragePricePerByte is the host price of a byte of state.
	StoragePricePerByte = big.Mul(big.NewInt(10), big.NewInt(1_000_000_000_000_000_000))
	// DefaultStoragePerSale is the prepaid storage amount required per active sale.
	DefaultStoragePerSale = big.Mul(big.NewInt(1000), StoragePricePerByte)
	// OneUnit is the anti-spam payment required by ownership-guarded mutations.
	OneUnit = big.NewInt(1)
)

const (
	// DefaultMaxPayoutRecipients is the maximum number of entries accepted in a payout split.
	DefaultMaxPayoutRecipients = 10
	// DefaultHostID is the account that delivers custody outcomes.
	DefaultHostID = "market"
)

// Config contains the coordinator configuration.
type Config struct {
	HostID              string
	StoragePerSale      big.Int
	PayoutTolerance     big.Int
	MaxPayoutRecipients uint32
	CustodyTimeout      time.Duration
	ResolverWorkers     int
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		HostID:              DefaultHostID,
		StoragePerSale:      DefaultStoragePerSale,
		PayoutTolerance:     big.NewInt(1),
		MaxPayoutRecipients: DefaultMaxPayoutRecipients,
		CustodyTimeout:      time.Minute,
		ResolverWorkers:     4,
	}
}

// Option sets values on a Config.
type Option func(*Config) error

// WithHostID sets the account id of the market itself. Only this identity
// can deliver custody outcomes.
func WithHostID(id string) Option {
	return func(c *Config) error {
		if id == "" {
			return fmt.Errorf("host id can't be empty")
		}
		c.HostID = id
		return nil
	}
}

// WithStoragePerSale sets the prepaid storage amount required per sale.
func WithStoragePerSale(amt big.Int) Option {
	return func(c *Config) error {
		if amt.Nil() || amt.Sign() <= 0 {
			return fmt.Errorf("storage per sale must be positive")
		}
		c.StoragePerSale = amt
		return nil
	}
}

// WithPayoutTolerance sets how much a payout split may fall short of the
// deposited amount and still be accepted.
func WithPayoutTolerance(amt big.Int) Option {
	return func(c *Config) error {
		if amt.Nil() || amt.Sign() < 0 {
			return fmt.Errorf("payout tolerance can't be negative")
		}
		c.PayoutTolerance = amt
		return nil
	}
}

// WithMaxPayoutRecipients sets the maximum number of payout entries.
func WithMaxPayoutRecipients(max uint32) Option {
	return func(c *Config) error {
		if max == 0 {
			return fmt.Errorf("max payout recipients must be greater than zero")
		}
		c.MaxPayoutRecipients = max
		return nil
	}
}

// WithCustodyTimeout sets the timeout of external custody calls.
func WithCustodyTimeout(d time.Duration) Option {
	return func(c *Config) error {
		if d <= 0 {
			return fmt.Errorf("custody timeout must be positive")
		}
		c.CustodyTimeout = d
		return nil
	}
}

// WithResolverWorkers sets how many custody calls can be in flight.
func WithResolverWorkers(n int) Option {
	return func(c *Config) error {
		if n <= 0 {
			return fmt.Errorf("resolver workers must be greater than zero")
		}
		c.ResolverWorkers = n
		return nil
	}
}
