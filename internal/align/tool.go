package align

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ppiankov/ontobridge/internal/model"
)

// DefaultToolTimeout bounds one external alignment run
const DefaultToolTimeout = 60 * time.Second

// Argument placeholders replaced with the temp file paths
const (
	PlaceholderSource = "{source}"
	PlaceholderTarget = "{target}"
)

// ToolGenerator delegates alignment to an external process.
// Every failure degrades to an empty set; nothing is returned as an error.
type ToolGenerator struct {
	command   []string
	timeout   time.Duration
	threshold float64
	logger    *zap.Logger
}

// NewToolGenerator creates a generator running command (argv form)
func NewToolGenerator(command []string, timeout time.Duration, threshold float64, logger *zap.Logger) *ToolGenerator {
	if timeout <= 0 {
		timeout = DefaultToolTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ToolGenerator{
		command:   command,
		timeout:   timeout,
		threshold: threshold,
		logger:    logger,
	}
}

// toolCell is one entry of the tool's JSON output
type toolCell struct {
	Entity1 string          `json:"entity1"`
	Entity2 string          `json:"entity2"`
	Measure json.RawMessage `json:"measure"` // number or numeric string
	Type    string          `json:"type,omitempty"`
}

// parseMeasure accepts a JSON number or a JSON string holding a number
func parseMeasure(raw json.RawMessage) (float64, error) {
	m := bytes.TrimSpace(raw)
	if len(m) > 0 && m[0] == '"' {
		var s string
		if err := json.Unmarshal(m, &s); err != nil {
			return 0, err
		}
		m = []byte(strings.TrimSpace(s))
	}
	return strconv.ParseFloat(string(m), 64)
}

// Generate writes both documents to a scoped temp dir, runs the tool and converts its output
func (g *ToolGenerator) Generate(ctx context.Context, source, target []byte) model.AlignmentSet {
	set, err := g.run(ctx, source, target)
	if err != nil {
		g.logger.Warn("external alignment tool failed, continuing without it",
			zap.Strings("command", g.command),
			zap.Error(err))
		return model.AlignmentSet{}
	}
	return set
}

func (g *ToolGenerator) run(ctx context.Context, source, target []byte) (model.AlignmentSet, error) {
	if len(g.command) == 0 {
		return nil, fmt.Errorf("no command configured")
	}

	dir, err := os.MkdirTemp("", "ontobridge-align-*")
	if err != nil {
		return nil, fmt.Errorf("create temp dir: %w", err)
	}
	defer os.RemoveAll(dir)

	srcPath := filepath.Join(dir, "source.rdf")
	tgtPath := filepath.Join(dir, "target.rdf")
	if err := os.WriteFile(srcPath, source, 0o600); err != nil {
		return nil, fmt.Errorf("write source: %w", err)
	}
	if err := os.WriteFile(tgtPath, target, 0o600); err != nil {
		return nil, fmt.Errorf("write target: %w", err)
	}

	args := make([]string, len(g.command))
	for i, a := range g.command {
		a = strings.ReplaceAll(a, PlaceholderSource, srcPath)
		args[i] = strings.ReplaceAll(a, PlaceholderTarget, tgtPath)
	}

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, args[0], args[1:]...)
	cmd.Dir = dir
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	cmd.WaitDelay = time.Second

	start := time.Now()
	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("timed out after %s: %w", g.timeout, ctx.Err())
		}
		return nil, fmt.Errorf("run: %w (stderr: %s)", err, truncate(stderr.String(), 300))
	}

	set, err := g.convert(stdout.Bytes())
	if err != nil {
		return nil, err
	}

	g.logger.Debug("external alignment tool finished",
		zap.Int("mappings", len(set)),
		zap.Duration("elapsed", time.Since(start)))
	return set, nil
}

// convert maps tool cells onto candidate mappings. Cells missing an entity or with a
// non-numeric measure are skipped; measures are clamped into [0,1].
func (g *ToolGenerator) convert(out []byte) (model.AlignmentSet, error) {
	var cells []toolCell
	if err := json.Unmarshal(out, &cells); err != nil {
		return nil, fmt.Errorf("parse tool output: %w", err)
	}

	set := model.AlignmentSet{}
	for i, c := range cells {
		if c.Entity1 == "" || c.Entity2 == "" {
			g.logger.Debug("skipping tool cell without entities", zap.Int("index", i))
			continue
		}
		measure, err := parseMeasure(c.Measure)
		if err != nil || math.IsNaN(measure) {
			g.logger.Debug("skipping tool cell with bad measure",
				zap.Int("index", i),
				zap.ByteString("measure", c.Measure))
			continue
		}
		measure = min(max(measure, 0), 1)

		kind := model.KindUnknown
		if c.Type != "" {
			kind = model.ParseKind(c.Type)
		}
		set = append(set, model.NewMapping(c.Entity1, c.Entity2, measure, kind, g.threshold))
	}
	return set, nil
}

func truncate(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
