package sage

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"blackboard/tools/logger"
)

// Result holds the output of a local run
type Result struct {
	Success  bool
	Stdout   string
	Stderr   string
	Errors   []string
	Warnings []string
}

// LocalRunner wraps a local sage executable
type LocalRunner struct {
	executablePath string // absolute path to sage
	workDir        string // where scripts are written
	timeout        time.Duration
	log            *logger.Logger
}

// NewLocalRunner creates a runner. executablePath can be relative or absolute;
// it is resolved to an absolute path and must exist.
func NewLocalRunner(executablePath, workDir string, log *logger.Logger) (*LocalRunner, error) {
	if log == nil {
		log = logger.Default()
	}
	absExePath, err := filepath.Abs(executablePath)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve sage path: %w", err)
	}
	if _, err := os.Stat(absExePath); os.IsNotExist(err) {
		return nil, fmt.Errorf("sage not found at: %s", absExePath)
	}

	if workDir == "" {
		workDir = os.TempDir()
	}
	absWorkDir, err := filepath.Abs(workDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve work directory: %w", err)
	}
	if err := os.MkdirAll(absWorkDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create work directory: %w", err)
	}

	return &LocalRunner{
		executablePath: absExePath,
		workDir:        absWorkDir,
		timeout:        Timeout,
		log:            log.WithPrefix("sage"),
	}, nil
}

// SetTimeout overrides the per-call bound
func (r *LocalRunner) SetTimeout(d time.Duration) {
	r.timeout = d
}

// Run writes code to a temporary script and runs sage on it
func (r *LocalRunner) Run(ctx context.Context, code string) (*Result, error) {
	script, err := os.CreateTemp(r.workDir, "blackboard-*.sage")
	if err != nil {
		return nil, fmt.Errorf("failed to create script: %w", err)
	}
	defer os.Remove(script.Name())

	if _, err := script.WriteString(code); err != nil {
		script.Close()
		return nil, fmt.Errorf("failed to write script: %w", err)
	}
	if err := script.Close(); err != nil {
		return nil, fmt.Errorf("failed to write script: %w", err)
	}

	callCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	cmd := exec.CommandContext(callCtx, r.executablePath, filepath.Base(script.Name()))
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	cmd.Dir = r.workDir

	err = cmd.Run()
	if callCtx.Err() != nil {
		return nil, classify(ctx, callCtx, r.timeout, callCtx.Err())
	}

	result := &Result{
		Stdout: stdout.String(),
		Stderr: stderr.String(),
	}

	// Parse errors and warnings from stderr
	for _, line := range strings.Split(stderr.String(), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if strings.Contains(strings.ToLower(line), "warning") {
			result.Warnings = append(result.Warnings, line)
		} else {
			result.Errors = append(result.Errors, line)
		}
	}

	if err != nil {
		if len(result.Errors) == 0 {
			result.Errors = append(result.Errors, err.Error())
		}
		return result, nil
	}
	result.Success = true
	return result, nil
}

// Execute implements Backend
func (r *LocalRunner) Execute(ctx context.Context, code string) (string, error) {
	done := r.log.Step("sage run")
	defer done()

	result, err := r.Run(ctx, code)
	if err != nil {
		return "", err
	}
	for _, w := range result.Warnings {
		r.log.Warn("%s", w)
	}
	if !result.Success {
		return "", fmt.Errorf("sage computation failed: %s", strings.Join(result.Errors, "; "))
	}
	return strings.TrimSpace(result.Stdout), nil
}
