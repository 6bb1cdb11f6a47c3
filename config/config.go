// Package config holds the fixed constants the lock manager and
// transaction executor are built against, plus the small set of
// command-line overrides the CLI harness exposes for them.
package config

import "github.com/spf13/pflag"

const (
	// MaxActiveTransactions bounds the transaction executor's worker pool.
	MaxActiveTransactions = 10

	// LockTableBuckets is the fixed bucket count of the lock table's
	// open hash. The reference implementation uses a small prime; any
	// prime >= 64 is acceptable.
	LockTableBuckets = 101

	// AttrSeparator delimits attribute names inside an attribute-list token.
	AttrSeparator = ";"

	// AttrEscape wraps attribute names referenced inside a condition token.
	AttrEscape = "`"

	// MaxAttrTokens is the nominal number of attribute tokens a single
	// attribute-list may carry. No code in this module enforces it:
	// attribute lists of any length are accepted.
	MaxAttrTokens = 64
)

// Config is the set of runtime-tunable knobs, defaulted from the
// constants above and overridable from the CLI.
type Config struct {
	MaxActiveTransactions int
	LockTableBuckets      int
}

// Default returns a Config seeded from the package constants.
func Default() Config {
	return Config{
		MaxActiveTransactions: MaxActiveTransactions,
		LockTableBuckets:      LockTableBuckets,
	}
}

// BindFlags registers the overridable knobs onto fs, writing results
// into c when fs is parsed.
func (c *Config) BindFlags(fs *pflag.FlagSet) {
	fs.IntVar(&c.MaxActiveTransactions, "max-active-transactions", c.MaxActiveTransactions, "maximum number of concurrently executing transactions")
	fs.IntVar(&c.LockTableBuckets, "lock-table-buckets", c.LockTableBuckets, "bucket count of the lock table's open hash")
}
