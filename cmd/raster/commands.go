package main

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/mr-tron/base58"
	"github.com/rasterlabs/raster/internal/audit"
	"github.com/rasterlabs/raster/internal/backend"
	"github.com/rasterlabs/raster/internal/config"
	"github.com/rasterlabs/raster/internal/registry"
	"github.com/rasterlabs/raster/internal/store"
	"github.com/rasterlabs/raster/pkg/fingerprint"
	"github.com/rasterlabs/raster/pkg/trace"
)

// CLI provides commands for recording and auditing execution traces.
type CLI struct {
	cfg    *config.Config
	store  *store.Store
	input  io.Reader
	output io.Writer
	log    *slog.Logger
}

// NewCLI creates a new CLI instance with the given configuration.
func NewCLI(cfg *config.Config) *CLI {
	return &CLI{
		cfg:    cfg,
		input:  os.Stdin,
		output: os.Stdout,
		log:    slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn})),
	}
}

// NewCLIWithDefaults creates a new CLI instance, loading the config file from
// the default location if one exists.
func NewCLIWithDefaults() (*CLI, error) {
	paths := config.DefaultPaths()
	cfgPath := filepath.Join(paths.ConfigDir, "config.toml")

	if _, err := os.Stat(cfgPath); err == nil {
		cfg, err := config.Load(cfgPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		return NewCLI(cfg), nil
	}

	cfg := config.Default()
	return NewCLI(&cfg), nil
}

// openStore opens the audit store on first use.
func (c *CLI) openStore() error {
	if c.store != nil {
		return nil
	}

	s, err := store.Open(c.cfg.Storage.StorePath, c.log)
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	c.store = s
	return nil
}

// Close releases the audit store.
func (c *CLI) Close() {
	if c.store != nil {
		c.store.Close()
	}
}

// readTrace reads trace items from the given file, or from stdin when path is
// empty or "-".
func (c *CLI) readTrace(path string) ([]trace.Item, error) {
	r := c.input
	if path != "" && path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open trace file: %w", err)
		}
		defer f.Close()
		r = f
	}

	items, err := trace.ReadItems(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read trace: %w", err)
	}
	return items, nil
}

// Record reads a trace, commits to it and stores the resulting fingerprint
// and frontier checkpoints under the given run ID.
func (c *CLI) Record(runID, tracePath string) error {
	if err := c.openStore(); err != nil {
		return err
	}

	items, err := c.readTrace(tracePath)
	if err != nil {
		return err
	}
	if len(items) == 0 {
		return errors.New("trace contains no items")
	}

	rec := trace.NewRecorder(c.cfg.Commitment.BitsPerItem)
	for _, item := range items {
		if err := rec.Record(item); err != nil {
			return fmt.Errorf("failed to record item: %w", err)
		}
	}
	recording := rec.Finish()

	fp := recording.Fingerprint
	if err := c.store.PutRun(runID, fp.BitsPerItem(), fp.Len(), fp.Blocks()); err != nil {
		return fmt.Errorf("failed to store run: %w", err)
	}
	for i := range items {
		f := recording.FrontierBefore(i)
		if f == nil {
			continue
		}
		if err := c.store.PutFrontier(runID, uint64(i), f); err != nil {
			return fmt.Errorf("failed to store frontier: %w", err)
		}
	}

	fpPath := filepath.Join(c.cfg.Storage.FingerprintDir, runID+".fp")
	if err := fingerprint.Save(fp, fpPath); err != nil {
		return fmt.Errorf("failed to save fingerprint: %w", err)
	}

	root, err := recording.Commitment.Root(len(items) - 1)
	if err != nil {
		return err
	}

	fmt.Fprintf(c.output, "Recorded run %s\n", runID)
	fmt.Fprintf(c.output, "  Items: %d\n", len(items))
	fmt.Fprintf(c.output, "  Root: %s\n", base58.Encode(root[:]))
	fmt.Fprintf(c.output, "  Fingerprint: %s\n", fpPath)
	return nil
}

// Audit replays a trace against a previously recorded fingerprint and reports
// the first diverging item if the trace does not match.
func (c *CLI) Audit(runID, tracePath string) error {
	if err := c.openStore(); err != nil {
		return err
	}

	bits, itemCount, blocks, err := c.store.GetRun(runID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("no recorded run %q", runID)
		}
		return err
	}

	items, err := c.readTrace(tracePath)
	if err != nil {
		return err
	}

	auditor := audit.New(c.cfg.Audit.WindowSize, c.log)
	result, err := auditor.Audit(items, bits, blocks)
	if err != nil {
		return fmt.Errorf("audit failed: %w", err)
	}

	if result.Success {
		fmt.Fprintf(c.output, "Audit passed: %d items match run %s\n", len(items), runID)
		return nil
	}

	d := result.Diff
	fmt.Fprintf(c.output, "Audit FAILED for run %s (%d recorded items)\n", runID, itemCount)
	fmt.Fprintf(c.output, "  First divergence at item %d\n", d.Index)
	fmt.Fprintf(c.output, "  Computed: %#x\n", d.Computed)
	fmt.Fprintf(c.output, "  Expected: %#x\n", d.Expected)
	fmt.Fprintf(c.output, "  Fraud window: items %d..%d\n", d.WindowStart, d.Index)
	for _, item := range result.Window {
		fmt.Fprintf(c.output, "    - %s\n", item.FnName)
	}

	b := newBackend(c.cfg.Backend.Kind)
	receipt, err := b.ProveWindow(result.Window, d.Frontier)
	switch {
	case errors.Is(err, backend.ErrProofUnsupported):
		fmt.Fprintf(c.output, "  Proof: unavailable on %s backend\n", b.Kind())
	case err != nil:
		return fmt.Errorf("failed to prove fraud window: %w", err)
	default:
		fmt.Fprintf(c.output, "  Proof journal: %s\n", base58.Encode(receipt.Journal))
	}
	return nil
}

// Fingerprint displays the stored fingerprint for a run.
func (c *CLI) Fingerprint(runID string) error {
	if err := c.openStore(); err != nil {
		return err
	}

	bits, itemCount, blocks, err := c.store.GetRun(runID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("no recorded run %q", runID)
		}
		return err
	}

	fp, err := fingerprint.FromBlocks(bits, blocks, itemCount)
	if err != nil {
		return err
	}

	fmt.Fprintf(c.output, "Run: %s\n", runID)
	fmt.Fprintf(c.output, "  Items: %d\n", itemCount)
	fmt.Fprintf(c.output, "  Bits per item: %d\n", bits)
	fmt.Fprintf(c.output, "  Fingerprint: %s\n", fp)
	return nil
}

// Runs lists all recorded runs.
func (c *CLI) Runs() error {
	if err := c.openStore(); err != nil {
		return err
	}

	ids, err := c.store.ListRuns()
	if err != nil {
		return fmt.Errorf("failed to list runs: %w", err)
	}

	if len(ids) == 0 {
		fmt.Fprintln(c.output, "No recorded runs")
		return nil
	}

	fmt.Fprintf(c.output, "Recorded runs (%d):\n", len(ids))
	for _, id := range ids {
		fmt.Fprintf(c.output, "  - %s\n", id)
	}
	return nil
}

// Tiles lists the tiles available on the configured backend.
func (c *CLI) Tiles() error {
	reg := builtinTiles()

	fmt.Fprintf(c.output, "Backend: %s\n", c.cfg.Backend.Kind)
	fmt.Fprintf(c.output, "Tiles (%d):\n", reg.Len())
	for _, name := range reg.Names() {
		fmt.Fprintf(c.output, "  - %s\n", name)
	}
	return nil
}

// builtinTiles returns the registry of tiles every native backend ships with.
func builtinTiles() *registry.Registry {
	reg := registry.New()
	reg.Register("identity", func(input []byte) ([]byte, error) {
		out := make([]byte, len(input))
		copy(out, input)
		return out, nil
	})
	reg.Register("sha256", func(input []byte) ([]byte, error) {
		sum := sha256.Sum256(input)
		return sum[:], nil
	})
	return reg
}

// newBackend constructs the backend selected by the configuration.
func newBackend(kind string) *backend.Backend {
	switch kind {
	case "zkvm":
		// No zkVM engine ships with the CLI yet; fall through to native so
		// local audits keep working.
		return backend.NewNative(builtinTiles())
	default:
		return backend.NewNative(builtinTiles())
	}
}

// printUsage prints the CLI usage information to stdout.
func printUsage() {
	printUsageTo(os.Stdout)
}

// printUsageTo prints the CLI usage information to the given writer.
func printUsageTo(w io.Writer) {
	fmt.Fprintln(w, "Usage: raster <command> [arguments]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  record <run-id> [trace-file]   Record a trace and store its fingerprint")
	fmt.Fprintln(w, "  audit <run-id> [trace-file]    Replay a trace against a stored fingerprint")
	fmt.Fprintln(w, "  fingerprint <run-id>           Show the stored fingerprint for a run")
	fmt.Fprintln(w, "  runs                           List recorded runs")
	fmt.Fprintln(w, "  tiles                          List backend tiles")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Trace files contain one RASTER_TRACE: line per item; unmarked")
	fmt.Fprintln(w, "lines are ignored. When no file is given, the trace is read")
	fmt.Fprintln(w, "from stdin.")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Examples:")
	fmt.Fprintln(w, "  raster record build-42 trace.log")
	fmt.Fprintln(w, "  ./prover | raster audit build-42")
	fmt.Fprintln(w, "  raster fingerprint build-42")
}
