package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/samber/oops"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/coolbeans/covenant/pkg/align"
	"github.com/coolbeans/covenant/pkg/analytics"
	"github.com/coolbeans/covenant/pkg/clause"
	"github.com/coolbeans/covenant/pkg/contract"
	"github.com/coolbeans/covenant/pkg/lnlp"
	"github.com/coolbeans/covenant/pkg/specrunner"
	"github.com/coolbeans/covenant/pkg/structure"
)

var version = "0.1.0"

var (
	verbose bool
	logger  *zap.SugaredLogger
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "covenant",
		Short: "Contract prose analyzer",
		Long: `Covenant builds a structured, queryable model of a contract's
normative content: who must do what, under which conditions, relative
to which sections, and how the document outline hangs together.

It produces:
  - Obligation phrases with obligors, actions, and conditions
  - Defined terms, term references, and pronoun resolution
  - A section outline with resolved cross-references
  - Clause links (conditions, coordination, exceptions, lists)
  - Two-version section alignment with external hint support`,
		Version: version,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logger = newLogger(verbose)
		},
	}
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	rootCmd.AddCommand(analyzeCmd())
	rootCmd.AddCommand(structureCmd())
	rootCmd.AddCommand(obligationsCmd())
	rootCmd.AddCommand(alignCmd())
	rootCmd.AddCommand(graphCmd())
	rootCmd.AddCommand(specCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newLogger(debug bool) *zap.SugaredLogger {
	cfg := zap.NewProductionConfig()
	if debug {
		cfg = zap.NewDevelopmentConfig()
	}
	cfg.OutputPaths = []string{"stderr"}
	l, err := cfg.Build()
	if err != nil {
		return zap.NewNop().Sugar()
	}
	return l.Sugar()
}

func readDocument(path string) (*lnlp.Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, oops.Code("READ_DOCUMENT").With("path", path).Wrap(err)
	}
	return contract.NewPipeline().Analyze(string(data)), nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func analyzeCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "analyze <file>",
		Short: "Run the full resolver chain over a contract",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := readDocument(args[0])
			if err != nil {
				return err
			}
			logger.Debugw("analyzed document", "lines", doc.LineCount())

			type lineReport struct {
				SourceLine  int                                  `json:"source_line"`
				Text        string                               `json:"text"`
				Obligations []contract.ObligationPhrase          `json:"obligations,omitempty"`
				Definitions []contract.DefinedTerm               `json:"definitions,omitempty"`
				Temporals   []contract.TemporalExpression        `json:"temporals,omitempty"`
				TermsOfArt  []contract.TermOfArt                 `json:"terms_of_art,omitempty"`
			}

			var report []lineReport
			doc.EachLine(func(i int, l *lnlp.Line) {
				entry := lineReport{SourceLine: doc.SourceLineNumber(i), Text: l.Text()}
				for _, a := range lnlp.Attrs[lnlp.Scored[contract.ObligationPhrase]](l) {
					entry.Obligations = append(entry.Obligations, a.Value.Value)
				}
				for _, a := range lnlp.Attrs[lnlp.Scored[contract.DefinedTerm]](l) {
					entry.Definitions = append(entry.Definitions, a.Value.Value)
				}
				for _, a := range lnlp.Attrs[lnlp.Scored[contract.TemporalExpression]](l) {
					entry.Temporals = append(entry.Temporals, a.Value.Value)
				}
				for _, a := range lnlp.Attrs[contract.TermOfArt](l) {
					entry.TermsOfArt = append(entry.TermsOfArt, a.Value)
				}
				if len(entry.Obligations)+len(entry.Definitions)+len(entry.Temporals)+len(entry.TermsOfArt) > 0 {
					report = append(report, entry)
				}
			})

			if asJSON {
				return printJSON(report)
			}
			for _, entry := range report {
				fmt.Printf("line %d: %s\n", entry.SourceLine, entry.Text)
				for _, ob := range entry.Obligations {
					fmt.Printf("  %s: %s -> %s\n", ob.Type, ob.Obligor.Text, ob.Action)
				}
				for _, def := range entry.Definitions {
					fmt.Printf("  defines %q (%s)\n", def.Name, def.Type)
				}
				for _, te := range entry.Temporals {
					fmt.Printf("  temporal: %s\n", te.Text)
				}
				for _, ta := range entry.TermsOfArt {
					fmt.Printf("  term of art: %s (%s)\n", ta.Canonical, ta.Category)
				}
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "emit JSON")
	return cmd
}

func structureCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "structure <file>",
		Short: "Build the section outline and resolve references",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := readDocument(args[0])
			if err != nil {
				return err
			}
			built := structure.NewBuilder().Build(doc)
			for _, w := range built.Warnings {
				logger.Warnw("structure warning", "issue", w.Error())
			}

			linked := structure.NewLinker().Link(doc, built.Value)
			for _, e := range linked.Errors {
				logger.Errorw("reference error", "issue", e.Error())
			}

			if asJSON {
				return printJSON(map[string]any{
					"outline":    built.Value.Roots,
					"references": linked.Value,
				})
			}

			var walk func(n *structure.SectionNode, indent string)
			walk = func(n *structure.SectionNode, indent string) {
				title := n.Header.Title
				if title != "" {
					title = " " + title
				}
				fmt.Printf("%s%s%s (lines %d-%d)\n", indent, n.Canonical(), title,
					doc.SourceLineNumber(n.StartLine), n.EndLine)
				for _, c := range n.Children {
					walk(c, indent+"  ")
				}
			}
			for _, r := range built.Value.Roots {
				walk(r, "")
			}

			fmt.Printf("\nreferences: %d resolved, %d unresolved, %d ambiguous, %d filtered\n",
				len(linked.Value.Resolved), len(linked.Value.Unresolved),
				len(linked.Value.Ambiguous), len(linked.Value.Filtered))
			for _, u := range linked.Value.Unresolved {
				fmt.Printf("  line %d: %s (%s)\n", u.SourceLine, u.Reference.Text, u.Reason)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "emit JSON")
	return cmd
}

func obligationsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "obligations <file>",
		Short: "Aggregate obligations by party with a verification queue",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := readDocument(args[0])
			if err != nil {
				return err
			}
			report := analytics.BuildReport(doc)
			data, err := report.ToJSON()
			if err != nil {
				return oops.Code("REPORT_ENCODE").Wrap(err)
			}
			fmt.Println(string(data))
			return nil
		},
	}
}

func alignCmd() *cobra.Command {
	var configPath, hintsPath string

	cmd := &cobra.Command{
		Use:   "align <original> <revised>",
		Short: "Align sections between two contract versions",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := align.DefaultConfig()
			if configPath != "" {
				loaded, err := align.LoadConfig(configPath)
				if err != nil {
					return err
				}
				cfg = loaded
				logger.Debugw("loaded alignment config", "config", cfg.String())
			}

			origDoc, err := readDocument(args[0])
			if err != nil {
				return err
			}
			revDoc, err := readDocument(args[1])
			if err != nil {
				return err
			}

			origStruct := structure.NewBuilder().Build(origDoc)
			revStruct := structure.NewBuilder().Build(revDoc)

			aligner := align.NewAligner(cfg, logger)
			candidates := aligner.Compute(origDoc, origStruct.Value, revDoc, revStruct.Value)

			if hintsPath != "" {
				payload, err := align.LoadHints(hintsPath)
				if err != nil {
					return err
				}
				logger.Debugw("applying hints", "count", len(payload.Hints))
				candidates = align.ApplyHints(candidates, payload.Hints, cfg.Weights)
			}

			result := aligner.Finalize(candidates)
			return printJSON(result)
		},
	}
	cmd.Flags().StringVar(&configPath, "config", "", "YAML weights/thresholds overrides")
	cmd.Flags().StringVar(&hintsPath, "hints", "", "JSON hint payload to apply")
	return cmd
}

func graphCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "graph <file>",
		Short: "Emit the clause link graph as Graphviz DOT",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := readDocument(args[0])
			if err != nil {
				return err
			}
			lnlp.Run[clause.ListMarker](doc, clause.NewListMarkerResolver())
			lnlp.Run[clause.Clause](doc, clause.NewSegmenter())
			links := clause.NewLinkResolver().Resolve(doc)
			logger.Debugw("resolved clause links", "count", len(links))
			fmt.Print(clause.ToDOT(doc, links))
			return nil
		},
	}
}

func specCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "spec <fixture...>",
		Short: "Run golden spec fixtures against the pipeline",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			failed := 0
			for _, path := range args {
				data, err := os.ReadFile(path)
				if err != nil {
					return oops.Code("READ_FIXTURE").With("path", path).Wrap(err)
				}
				result, err := specrunner.RunSource(string(data))
				if err != nil {
					return err
				}
				status := "ok"
				if !result.Ok() {
					status = "FAIL"
					failed++
				}
				fmt.Printf("%s: %s (%d assertions, %d failures)\n", status, result.Title, result.Evaluated, len(result.Failures))
				for _, f := range result.Failures {
					fmt.Printf("  %s\n", f)
				}
			}
			if failed > 0 {
				return fmt.Errorf("%d fixture(s) failed", failed)
			}
			return nil
		},
	}
}
