// Package rowexec stands in for the out-of-scope row-level command
// executor spec.md §6 names: the core invokes Execute once per
// transaction, after all locks are held, and treats it as opaque.
package rowexec

import "github.com/Johniel/gorellycore/executor"

// Executor runs a transaction's command sequence. The core never
// inspects the result of individual commands; it only cares whether
// Execute returns an error.
type Executor interface {
	Execute(commands []executor.Command) error
}

// Func adapts a plain function to the Executor interface.
type Func func(commands []executor.Command) error

func (f Func) Execute(commands []executor.Command) error { return f(commands) }

// Noop is an Executor that performs no row-level work and always
// succeeds; useful for exercising the lock and admission protocol in
// isolation.
var Noop Executor = Func(func(commands []executor.Command) error { return nil })
