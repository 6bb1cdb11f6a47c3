// Command gorellycore is the thin CLI harness spec.md §1 names as an
// external collaborator: it wires flags to the lock manager and
// projection rewriter, it does not reimplement a shell or a query
// language front end.
package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/Johniel/gorellycore/algebra"
	"github.com/Johniel/gorellycore/config"
	"github.com/Johniel/gorellycore/executor"
	"github.com/Johniel/gorellycore/internal/notify"
	"github.com/Johniel/gorellycore/internal/rowexec"
	"github.com/Johniel/gorellycore/internal/storage"
	"github.com/Johniel/gorellycore/lockmgr"
)

func main() {
	cfg := config.Default()
	root := &cobra.Command{Use: "gorellycore"}
	fs := pflag.NewFlagSet("gorellycore", pflag.ExitOnError)
	cfg.BindFlags(fs)
	root.PersistentFlags().AddFlagSet(fs)

	root.AddCommand(locksCmd(&cfg), rewriteCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func locksCmd(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "locks-demo",
		Short: "submit 12 concurrent select transactions through the executor and lock table",
		RunE: func(cmd *cobra.Command, args []string) error {
			log, _ := zap.NewDevelopment()
			defer log.Sync()

			cat := storage.NewCatalog()
			cat.Register(storage.TableInfo{Name: "accounts", Blocks: []lockmgr.BlockID{1, 2, 3}})

			sink := notify.Sink{
				OnTransactionFinished: func(txn lockmgr.TxnID, committed bool) {
					log.Info("txn finished", zap.Uint64("txn", uint64(txn)), zap.Bool("committed", committed))
				},
				OnAllTransactionsFinished: func() {
					log.Info("all transactions finished")
				},
			}
			locks := lockmgr.New(cfg.LockTableBuckets, log, sink.AsLockReleaseListener())
			ex := executor.New(locks, cat, rowexec.Noop, sink, cfg.MaxActiveTransactions, log)

			for i := 0; i < 12; i++ {
				ex.Submit(executor.Task{Commands: []executor.Command{{Table: "accounts", Kind: executor.Select}}})
			}
			time.Sleep(500 * time.Millisecond)
			return nil
		},
	}
}

func rewriteCmd() *cobra.Command {
	var schemaFlag string
	cmd := &cobra.Command{
		Use:   "rewrite",
		Short: "rewrite a postfix relational-algebra expression read from stdin",
		RunE: func(cmd *cobra.Command, args []string) error {
			schemas := parseSchemaFlag(schemaFlag)
			lookup := func(table string) ([]string, error) { return schemas[table], nil }

			tokens, err := parseProgram(os.Stdin)
			if err != nil {
				return err
			}
			out, err := algebra.Rewrite(tokens, lookup, nil)
			if err != nil {
				fmt.Fprintln(os.Stderr, "rewrite error:", err)
			}
			fmt.Println(formatProgram(out))
			return nil
		},
	}
	cmd.Flags().StringVar(&schemaFlag, "schema", "", "table=attr1,attr2;table2=attr3 schema definitions")
	return cmd
}

// parseSchemaFlag parses "R=x,z;S=y,w" into a table->attrs map.
func parseSchemaFlag(s string) map[string][]string {
	out := map[string][]string{}
	if s == "" {
		return out
	}
	for _, part := range strings.Split(s, ";") {
		kv := strings.SplitN(part, "=", 2)
		if len(kv) != 2 {
			continue
		}
		out[kv[0]] = strings.Split(kv[1], ",")
	}
	return out
}

// parseProgram reads one token per line from r: a kind word (op,
// operand, attrs, cond), a single space, then the payload; blank lines
// and unknown kind words are skipped. This is a minimal wire reader,
// not a full parser for the display notation used in spec.md's worked
// examples.
func parseProgram(r *os.File) ([]algebra.Token, error) {
	scanner := bufio.NewScanner(r)
	var toks []algebra.Token
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		fields := strings.SplitN(line, " ", 2)
		kind := fields[0]
		payload := ""
		if len(fields) > 1 {
			payload = fields[1]
		}
		switch kind {
		case "op":
			toks = append(toks, algebra.NewOperator(algebra.OpKind(payload[0])))
		case "operand":
			toks = append(toks, algebra.NewOperand(payload))
		case "attrs":
			toks = append(toks, algebra.NewAttributes(strings.Split(payload, config.AttrSeparator)))
		case "cond":
			toks = append(toks, algebra.NewCondition(payload))
		}
	}
	return toks, scanner.Err()
}

func formatProgram(toks []algebra.Token) string {
	var b strings.Builder
	for _, t := range toks {
		switch t.Kind {
		case algebra.KindOperator:
			fmt.Fprintf(&b, "op %c\n", byte(t.Op))
		case algebra.KindOperand:
			fmt.Fprintf(&b, "operand %s\n", t.Table)
		case algebra.KindAttributes:
			fmt.Fprintf(&b, "attrs %s\n", strings.Join(t.Attrs, config.AttrSeparator))
		case algebra.KindCondition:
			fmt.Fprintf(&b, "cond %s\n", t.Cond)
		}
	}
	return b.String()
}
