package harness

import (
	"context"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/sirupsen/logrus"
)

// Outcome is the result of one scenario
type Outcome struct {
	Scenario Scenario
	Passed   bool
	// Failures lists every failed check, empty when Passed
	Failures []string
	Result   Result
}

// RunScenario runs one scenario against a fresh copy of its fixture workbook
func (t *Tester) RunScenario(ctx context.Context, s Scenario) Outcome {
	outcome := Outcome{Scenario: s}

	dir, err := os.MkdirTemp("", "mcp-excel-scenario-*")
	if err != nil {
		outcome.Failures = append(outcome.Failures, fmt.Sprintf("failed to create work dir: %v", err))
		return outcome
	}
	defer func() { _ = os.RemoveAll(dir) }()

	path, err := WriteFixture(dir, s.Workbook)
	if err != nil {
		outcome.Failures = append(outcome.Failures, err.Error())
		return outcome
	}

	t.Logger.WithField("scenario", s.Name).Info("Running scenario")
	outcome.Result = t.RunAgent(ctx, s.Prompt, path)
	if !outcome.Result.Success {
		outcome.Failures = append(outcome.Failures, fmt.Sprintf("agent failed: %s", outcome.Result.Error))
		return outcome
	}

	if s.ExpectedPattern != "" {
		re, err := regexp.Compile("(?is)" + s.ExpectedPattern)
		switch {
		case err != nil:
			outcome.Failures = append(outcome.Failures, fmt.Sprintf("invalid expected pattern: %v", err))
		case !re.MatchString(outcome.Result.Output):
			outcome.Failures = append(outcome.Failures, fmt.Sprintf("response does not match '%s'", s.ExpectedPattern))
		}
	}

	for _, v := range s.Validations {
		ok, err := v.Check(t.Logger, path)
		switch {
		case err != nil:
			outcome.Failures = append(outcome.Failures, fmt.Sprintf("%s: %v", v, err))
		case !ok:
			outcome.Failures = append(outcome.Failures, fmt.Sprintf("%s: check failed", v))
		}
	}

	outcome.Passed = len(outcome.Failures) == 0
	return outcome
}

// RunAll runs scenarios in order, printing progress and a summary to w.
// It returns the number of failed scenarios.
func (t *Tester) RunAll(ctx context.Context, scenarios []Scenario, w io.Writer) int {
	started := time.Now()
	failed := 0
	green := color.New(color.FgGreen).SprintFunc()
	red := color.New(color.FgRed).SprintFunc()

	for i, s := range scenarios {
		if ctx.Err() != nil {
			break
		}
		fmt.Fprintf(w, "[%d/%d] %s ... ", i+1, len(scenarios), s.Name)
		outcome := t.RunScenario(ctx, s)
		if outcome.Passed {
			fmt.Fprintf(w, "%s (%s)\n", green("PASS"), outcome.Result.Duration.Round(time.Millisecond))
			continue
		}

		failed++
		fmt.Fprintln(w, red("FAIL"))
		for _, f := range outcome.Failures {
			fmt.Fprintf(w, "    - %s\n", f)
		}
		if out := strings.TrimSpace(outcome.Result.Output); out != "" {
			t.Logger.WithFields(logrus.Fields{"scenario": s.Name, "output": out}).Debug("Agent output")
		}
	}

	fmt.Fprintf(w, "\n%d passed, %d failed in %s\n", len(scenarios)-failed, failed, time.Since(started).Round(time.Second))
	return failed
}
