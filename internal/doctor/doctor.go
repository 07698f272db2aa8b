// Package doctor drives the emulation correctness suites. Mode A replays the
// numbered cpu_instrs ROMs through the trace binary and diffs each trace
// against the reference oracle; Mode B replays the per-opcode SM83 single
// step vectors. Both enumerate their cases in a fixed order and aggregate
// failing ids into one verdict.
package doctor

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"

	"github.com/gbredz1/gbforge/internal/config"
	"github.com/gbredz1/gbforge/internal/logbook"
)

// Invoker executes an external tool and reports success through the error.
type Invoker interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

// ExecInvoker shells out with combined output capture.
type ExecInvoker struct {
	// Dir is the working directory for every invocation, empty for inherit.
	Dir string
}

func (e ExecInvoker) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = e.Dir
	out, err := cmd.CombinedOutput()
	if err != nil {
		return out, fmt.Errorf("doctor: %s: %w", name, err)
	}
	return out, nil
}

// Summary aggregates one suite run. Failing ids keep enumeration order.
type Summary struct {
	Passed  []string `json:"passed,omitempty"`
	Failed  []string `json:"failed,omitempty"`
	Skipped []string `json:"skipped,omitempty"`
}

// Success reports whether every present test case passed.
func (s Summary) Success() bool { return len(s.Failed) == 0 }

// Harness runs the validation suites described by the project config.
type Harness struct {
	cfg     *config.Config
	invoker Invoker
	log     *logbook.Scope

	// FailFast stops a suite at the first failing case.
	FailFast bool
}

// New builds a harness. A nil invoker defaults to shelling out.
func New(cfg *config.Config, invoker Invoker, book *logbook.Logbook) (*Harness, error) {
	if cfg == nil {
		return nil, fmt.Errorf("doctor: config is required")
	}
	if invoker == nil {
		invoker = ExecInvoker{Dir: cfg.ProjectDir}
	}
	return &Harness{cfg: cfg, invoker: invoker, log: book.Scoped("doctor")}, nil
}

// RunROMSuite executes Mode A: cpu_instrs ROMs 1 through 11, each traced by
// the diagnostic binary and diffed by the comparator. A ROM that cannot be
// located counts as failing since the suite is expected to be complete.
func (h *Harness) RunROMSuite(ctx context.Context) (Summary, error) {
	doctor := h.cfg.Project.Doctor
	traceDir, err := os.MkdirTemp("", "gbforge-doctor-")
	if err != nil {
		return Summary{}, fmt.Errorf("doctor: create trace dir: %w", err)
	}
	defer os.RemoveAll(traceDir)

	romsDir := h.cfg.RomsDir()
	var summary Summary
	for index := 1; index <= 11; index++ {
		id := fmt.Sprintf("%02d", index)
		matches, err := filepath.Glob(filepath.Join(romsDir, id+"-*.gb"))
		if err != nil || len(matches) == 0 {
			h.log.Error("rom %s: no test rom found under %s", id, romsDir)
			summary.Failed = append(summary.Failed, id)
			if h.FailFast {
				break
			}
			continue
		}
		rom := matches[0]

		tracePath := filepath.Join(traceDir, id+".log")
		trace, err := h.invoker.Run(ctx, doctor.TraceBinary, rom)
		if err != nil {
			h.log.Error("rom %s: trace run failed: %v", id, err)
			summary.Failed = append(summary.Failed, id)
			if h.FailFast {
				break
			}
			continue
		}
		if err := os.WriteFile(tracePath, trace, 0o644); err != nil {
			return summary, fmt.Errorf("doctor: write trace %s: %w", id, err)
		}

		if _, err := h.invoker.Run(ctx, doctor.Comparator, tracePath, "cpu_instrs", strconv.Itoa(index)); err != nil {
			h.log.Error("rom %s: trace diverges from oracle", id)
			summary.Failed = append(summary.Failed, id)
			if h.FailFast {
				break
			}
			continue
		}
		h.log.Info("rom %s passed", id)
		summary.Passed = append(summary.Passed, id)
	}
	return summary, nil
}

// RunSM83Suite executes Mode B: one JSON vector file per opcode 0x00-0xFF.
// A missing vector file is skipped, never failed.
func (h *Harness) RunSM83Suite(ctx context.Context) (Summary, error) {
	doctor := h.cfg.Project.Doctor
	vectorsDir := h.cfg.VectorsDir()

	var summary Summary
	for opcode := 0x00; opcode <= 0xFF; opcode++ {
		id := fmt.Sprintf("%02x", opcode)
		vector := filepath.Join(vectorsDir, id+".json")
		if _, err := os.Stat(vector); err != nil {
			summary.Skipped = append(summary.Skipped, id)
			continue
		}
		if _, err := h.invoker.Run(ctx, doctor.StepBinary, vector); err != nil {
			h.log.Error("opcode %s: step vectors failed: %v", id, err)
			summary.Failed = append(summary.Failed, id)
			if h.FailFast {
				break
			}
			continue
		}
		summary.Passed = append(summary.Passed, id)
	}
	return summary, nil
}
