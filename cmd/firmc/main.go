// Command firmc drives the §4/§8 back-end pipeline end to end over one of
// a handful of fixed demonstration graphs, against a minimal "generic"
// stub target (§6: no concrete amd64/arm target ships in this module).
// It exists to prove out backend.Run and the construct/transform/analysis
// façade together, the way a kernel's own smoke-test driver would.
package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/katalvlaran/firmkit/analysis"
	"github.com/katalvlaran/firmkit/backend"
	"github.com/katalvlaran/firmkit/firm"
	"github.com/katalvlaran/firmkit/internal/clog"
	"github.com/katalvlaran/firmkit/verify"
	"github.com/spf13/cobra"
)

var (
	scenarioName string
	verbose      bool
	gpRegisters  int
	fpRegisters  int
)

var log = clog.Default()

func main() {
	if err := newRootCommand().Execute(); err != nil {
		log.Fatal("%v", err)
	}
}

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "firmc",
		Short: "Run the firmkit back-end pipeline over a fixed demonstration graph",
		RunE:  runScenario,
	}
	root.Flags().StringVar(&scenarioName, "scenario", "empty",
		fmt.Sprintf("scenario to run (%s)", strings.Join(orderedScenarioNames, ", ")))
	root.Flags().BoolVarP(&verbose, "verbose", "v", false,
		"print every stage's verifier diagnostics, not just failures")
	root.Flags().IntVar(&gpRegisters, "gp-registers", 4, "general-purpose register budget handed to RegAlloc")
	root.Flags().IntVar(&fpRegisters, "fp-registers", 4, "floating-point register budget handed to RegAlloc")
	return root
}

func runScenario(cmd *cobra.Command, args []string) error {
	sc, ok := scenarios[scenarioName]
	if !ok {
		return fmt.Errorf("unknown scenario %q (have: %s)", scenarioName, strings.Join(orderedScenarioNames, ", "))
	}

	if err := firm.Init(); err != nil {
		return fmt.Errorf("firm.Init: %w", err)
	}
	target := &genericTarget{}
	if err := firm.RegisterTarget("generic", target); err != nil {
		return fmt.Errorf("register target: %w", err)
	}
	isa, err := firm.LookupTarget("generic")
	if err != nil {
		return fmt.Errorf("lookup target: %w", err)
	}

	log.Info("scenario %q: %s", sc.name, sc.description)

	g, reg, err := sc.build()
	if err != nil {
		return fmt.Errorf("build %s: %w", sc.name, err)
	}

	capacity := map[verify.RegisterClass]int{
		verify.ClassGP: gpRegisters,
		verify.ClassFP: fpRegisters,
	}
	if reg == nil {
		reg = analysis.NewRegistry()
	}

	fn, err := backend.Run(g, isa, reg, capacity)
	if err != nil {
		printReports(fn)
		return fmt.Errorf("backend.Run: %w", err)
	}

	printReports(fn)
	fmt.Printf("--- %s: %d node(s), %d spill range(s) ---\n", g.Entity.LinkerName, len(g.Nodes()), len(fn.SpillRanges))
	os.Stdout.Write(fn.Code)
	return nil
}

// printReports prints every stage's diagnostics in verbose mode, or just
// the stages that produced any diagnostic otherwise — §6's "stable
// diagnostic-stream prefix" is already baked into Diagnostic.String.
func printReports(fn *backend.Function) {
	if fn == nil {
		return
	}
	for _, sr := range fn.Reports {
		if len(sr.Report) == 0 {
			if verbose {
				log.Info("%s: clean", sr.Stage)
			}
			continue
		}
		for _, d := range sr.Report {
			log.Warn("%s: %s", sr.Stage, d)
		}
	}
}
