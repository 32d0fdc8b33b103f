package cli

import (
	"bufio"
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/marcvidal/datapilot/internal/config"
	"github.com/marcvidal/datapilot/internal/history"
	"github.com/marcvidal/datapilot/internal/logger"
	"github.com/marcvidal/datapilot/internal/metrics"
	"github.com/marcvidal/datapilot/pkg/coretools"
	"github.com/marcvidal/datapilot/pkg/frame"
	"github.com/marcvidal/datapilot/pkg/llm"
	"github.com/marcvidal/datapilot/pkg/planner"
	"github.com/marcvidal/datapilot/pkg/router"
	"github.com/marcvidal/datapilot/pkg/sandbox"
	"github.com/marcvidal/datapilot/pkg/session"
	"github.com/marcvidal/datapilot/pkg/snapshot"
	"github.com/marcvidal/datapilot/pkg/tools"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Start an interactive analysis session",
	Long: `Start an interactive session. Plain messages are routed: capability
questions are answered directly, analysis requests become plans that wait
for your approval.

Session commands:
  /approve   approve the proposed plan
  /discard   discard the current plan
  /run       execute the approved plan
  /runcode   run the latest generated snippet against the latest table
  /plan      show the current plan
  /history   show this session's recorded runs
  /quit      leave the session`,
	RunE: runChat,
}

func init() {
	rootCmd.AddCommand(chatCmd)
}

func runChat(cmd *cobra.Command, args []string) error {
	loader := config.NewLoader(cfgFile)
	cfg, err := loader.Load()
	if err != nil {
		return err
	}
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}
	logger.Setup(logger.Config{Level: cfg.Logging.Level, Pretty: cfg.Logging.Pretty})

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	sess, store, cleanup, err := buildSession(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	// Live reload covers what can change mid-session: logging. The wired
	// collaborators keep the config they were built with. An explicit
	// --log-level flag stays in force across reloads.
	if err := loader.Watch(func(next *config.Config) {
		if logLevel == "" {
			logger.Setup(logger.Config{Level: next.Logging.Level, Pretty: next.Logging.Pretty})
		}
	}); err != nil {
		log.Warn().Err(err).Msg("Config watching unavailable")
	}

	fmt.Printf("datapilot %s — session %s (table %q)\n", version, sess.ID(), cfg.Supabase.Table)
	fmt.Println(`Ask a question, or use /approve, /discard, /run, /runcode, /plan, /history, /quit.`)

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == "/quit" || line == "/exit" {
			break
		}
		handleLine(cmd.Context(), sess, store, line)
	}
	return scanner.Err()
}

// buildSession assembles the full stack from configuration. The returned
// store is nil when history is disabled.
func buildSession(ctx context.Context, cfg *config.Config) (*session.Session, *history.Store, func(), error) {
	provider, err := llm.NewProvider(cfg.LLM.Provider, cfg.LLM.APIKey)
	if err != nil {
		return nil, nil, nil, err
	}

	client := snapshot.NewClient(cfg.Supabase.URL, cfg.Supabase.APIKey, cfg.Supabase.Table, cfg.Supabase.PageSize)
	cache := snapshot.NewCache(client, time.Duration(cfg.Supabase.CacheTTLMinutes)*time.Minute)

	registry := tools.NewRegistry()
	normalizer := planner.NewNormalizer()
	if err := coretools.Register(registry, normalizer, coretools.Options{Snapshot: cache}); err != nil {
		return nil, nil, nil, err
	}

	rt, err := router.NewRouter(provider, cfg.LLM.Model)
	if err != nil {
		return nil, nil, nil, err
	}
	pl := planner.NewPlanner(provider, cfg.LLM.Model)
	pl.SetTemperature(cfg.LLM.Temperature)
	exec := planner.NewExecutor(registry, normalizer)

	cleanup := func() {}
	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.NewMetrics()
		exec.SetMetrics(m)
		cache.SetMetrics(m)
		mux := http.NewServeMux()
		mux.Handle("/metrics", m.Handler())
		go func() {
			if err := http.ListenAndServe(cfg.Metrics.Addr, mux); err != nil {
				log.Error().Err(err).Str("addr", cfg.Metrics.Addr).Msg("Metrics server stopped")
			}
		}()
	}

	var store *history.Store
	var sink session.HistorySink
	if cfg.History.Enabled {
		store, err = history.NewStore(cfg.History.Path)
		if err != nil {
			return nil, nil, nil, err
		}
		cleanup = func() { store.Close() }
		sink = store
	}

	execCtx := &tools.ExecContext{
		LLM:    provider,
		Model:  cfg.LLM.Model,
		Schema: buildSchema(ctx, cfg, cache),
	}

	sess, err := session.New(session.Options{
		Router:   rt,
		Planner:  pl,
		Executor: exec,
		Registry: registry,
		Sandbox:  sandbox.NewExecutor(),
		Context:  execCtx,
		History:  sink,
		Metrics:  m,
	})
	if err != nil {
		cleanup()
		return nil, nil, nil, err
	}
	return sess, store, cleanup, nil
}

// buildSchema derives column names and dtypes from a warm snapshot and
// merges in the configured hints. A failed warm-up degrades to hints
// only; code generation still works, just less grounded.
func buildSchema(ctx context.Context, cfg *config.Config, cache *snapshot.Cache) *tools.SchemaSpec {
	spec := &tools.SchemaSpec{
		Table:      cfg.Supabase.Table,
		DateColumn: cfg.Schema.DateColumn,
		ValueHints: cfg.Schema.ValueHints,
		AliasHints: cfg.Schema.AliasHints,
	}

	f, err := cache.Get(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("Snapshot warm-up failed, schema hints only")
		return spec
	}
	for _, col := range f.Columns() {
		spec.Columns = append(spec.Columns, tools.ColumnSpec{Name: col, Dtype: columnDtype(f, col)})
	}
	return spec
}

func columnDtype(f *frame.Frame, col string) string {
	values, err := f.Column(col)
	if err != nil {
		return "unknown"
	}
	for _, v := range values {
		switch v.(type) {
		case nil:
			continue
		case float64, int, int64:
			return "number"
		case bool:
			return "bool"
		case string:
			return "string"
		default:
			return "unknown"
		}
	}
	return "unknown"
}

func handleLine(ctx context.Context, sess *session.Session, store *history.Store, line string) {
	switch line {
	case "/approve":
		if err := sess.Approve(); err != nil {
			fmt.Println("cannot approve:", err)
			return
		}
		fmt.Println("Plan approved. /run to execute it.")
	case "/discard":
		if err := sess.Discard(); err != nil {
			fmt.Println("cannot discard:", err)
			return
		}
		fmt.Println("Plan discarded.")
	case "/run":
		result, err := sess.Run(ctx)
		if err != nil {
			fmt.Println("cannot run:", err)
			return
		}
		printResult(result)
	case "/runcode":
		out, err := sess.RunCode(ctx)
		if err != nil {
			fmt.Println("cannot run code:", err)
			return
		}
		fmt.Printf("Result: %s\n", out)
		printFrame(out, 10)
	case "/plan":
		printPlan(sess.Plan())
	case "/history":
		printHistory(store, sess.ID())
	default:
		reply, err := sess.HandleMessage(ctx, line)
		if err != nil {
			fmt.Println("error:", err)
			return
		}
		printReply(reply)
	}
}

func printHistory(store *history.Store, sessionID string) {
	if store == nil {
		fmt.Println("History is disabled.")
		return
	}
	runs, err := store.Recent(sessionID, 10)
	if err != nil {
		fmt.Println("cannot read history:", err)
		return
	}
	if len(runs) == 0 {
		fmt.Println("No runs recorded yet.")
		return
	}
	for _, l := range historyLines(runs) {
		fmt.Println(l)
	}
}

func historyLines(runs []history.Run) []string {
	var lines []string
	for _, r := range runs {
		lines = append(lines, fmt.Sprintf("  %s  plan %s (%d steps)", r.CreatedAt.Format("15:04:05"), r.PlanID, len(r.Observations)))
		if r.Why != "" {
			lines = append(lines, "      "+r.Why)
		}
	}
	return lines
}

func printReply(reply *session.Reply) {
	if reply.Mode == router.ModeToolQA {
		fmt.Println(reply.Text)
		return
	}
	fmt.Println("Proposed plan:")
	printPlan(reply.Plan)
	if reply.Summary != "" {
		fmt.Println(reply.Summary)
	}
	fmt.Println("/approve to accept, /discard to reject.")
}

func printPlan(plan *planner.Plan) {
	if plan == nil {
		fmt.Println("No current plan.")
		return
	}
	for i, step := range plan.Steps {
		fmt.Printf("  %d. %s %v\n", i+1, step.Tool, step.Args)
	}
	if plan.Why != "" {
		fmt.Printf("  why: %s\n", plan.Why)
	}
	for _, a := range plan.Assumptions {
		fmt.Printf("  assuming: %s\n", a)
	}
}

func printResult(result *planner.ExecutionResult) {
	for i, obs := range result.Observations {
		switch obs.Status {
		case planner.StatusOK:
			fmt.Printf("  step %d: %s -> %s%s\n", i, obs.Tool, obs.Kind, describeObservation(obs))
		case planner.StatusSkipped:
			fmt.Printf("  step %d: %s skipped (%s)\n", i, obs.Tool, obs.Reason)
		default:
			fmt.Printf("  step %d: %s failed: %s\n", i, obs.Tool, obs.Error)
		}
	}

	for i := range result.Observations {
		art, ok := result.Artifacts[planner.StepKey(i)]
		if !ok {
			continue
		}
		switch art.Kind {
		case planner.KindDataFrame:
			printFrame(art.Frame, 10)
		case planner.KindCode:
			fmt.Println("Generated code:")
			fmt.Println(indent(art.Code, "    "))
			fmt.Println("/runcode to execute it against the loaded table.")
		case planner.KindText:
			fmt.Println(indent(art.Text, "    "))
		}
	}
}

func describeObservation(obs planner.Observation) string {
	switch obs.Kind {
	case planner.KindDataFrame:
		if len(obs.Shape) == 2 {
			return fmt.Sprintf(" [%d rows x %d cols]", obs.Shape[0], obs.Shape[1])
		}
	case planner.KindCode, planner.KindText:
		return fmt.Sprintf(" (%d chars)", obs.Length)
	case planner.KindJSON:
		return fmt.Sprintf(" (%d items)", obs.Count)
	case planner.KindScalar:
		return fmt.Sprintf(" = %v", obs.Value)
	}
	return ""
}

func printFrame(f *frame.Frame, limit int) {
	if f == nil {
		return
	}
	w := tabwriter.NewWriter(os.Stdout, 2, 4, 2, ' ', 0)
	fmt.Fprintln(w, "  "+strings.Join(f.Columns(), "\t"))

	head := f.Head(limit)
	for _, rec := range head.Records() {
		cells := make([]string, 0, f.NumCols())
		for _, col := range f.Columns() {
			cells = append(cells, fmt.Sprintf("%v", rec[col]))
		}
		fmt.Fprintln(w, "  "+strings.Join(cells, "\t"))
	}
	w.Flush()
	if f.NumRows() > limit {
		fmt.Printf("  ... %d more rows\n", f.NumRows()-limit)
	}
}

func indent(s, prefix string) string {
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		lines[i] = prefix + l
	}
	return strings.Join(lines, "\n")
}
