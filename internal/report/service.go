package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"sftpfind/internal/discovery"
	"sftpfind/internal/history"
	"sftpfind/internal/logger"
	"sftpfind/internal/templates"

	"github.com/aymerick/raymond"
)

func ParseFormat(name string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(name))) {
	case "", FormatJSON:
		return FormatJSON, nil
	case FormatText:
		return FormatText, nil
	}

	return "", fmt.Errorf("%w: %q (expected json or text)", ErrUnknownFormat, name)
}

// Writer renders results, failures and history in one format.
type Writer struct {
	out    io.Writer
	format Format
}

func NewWriter(out io.Writer, format Format) *Writer {
	return &Writer{out: out, format: format}
}

func (w *Writer) Result(result *discovery.Result) error {
	if result == nil {
		result = &discovery.Result{Files: []string{}}
	}

	if w.format == FormatJSON {
		return w.writeJSON(result)
	}

	return w.render(resultTemplatePath, map[string]interface{}{
		"files":    result.Files,
		"examined": result.Examined,
		"matched":  len(result.Files),
		"changed":  strconv.FormatBool(result.Changed),
	})
}

// NewFailure builds the failure document for err. Registered secrets are masked.
func NewFailure(err error) *Failure {
	kind, phase := discovery.Kind(err)

	return &Failure{
		Failed:  true,
		Changed: false,
		Msg:     logger.Mask(err.Error()),
		Kind:    kind,
		Phase:   string(phase),
	}
}

func (w *Writer) Failure(err error) error {
	failure := NewFailure(err)

	if w.format == FormatJSON {
		return w.writeJSON(failure)
	}

	return w.render(failureTemplatePath, map[string]interface{}{
		"kind":  failure.Kind,
		"phase": failure.Phase,
		"msg":   failure.Msg,
	})
}

func (w *Writer) Runs(runs []*history.Run) error {
	if w.format == FormatJSON {
		if runs == nil {
			runs = []*history.Run{}
		}
		return w.writeJSON(runs)
	}

	rows := make([]map[string]interface{}, 0, len(runs))
	for _, run := range runs {
		rows = append(rows, runContext(run))
	}

	return w.render(runsTemplatePath, map[string]interface{}{
		"runs": rows,
	})
}

func (w *Writer) Run(run *history.Run) error {
	if w.format == FormatJSON {
		return w.writeJSON(run)
	}

	return w.render(runTemplatePath, runContext(run))
}

func runContext(run *history.Run) map[string]interface{} {
	return map[string]interface{}{
		"id":        run.ID,
		"target":    fmt.Sprintf("%s@%s:%d", run.Username, run.Host, run.Port),
		"method":    run.Method,
		"path":      run.Path,
		"pattern":   run.Pattern,
		"startedAt": run.StartedAt.UTC().Format(time.RFC3339),
		"duration":  run.Duration().Round(time.Millisecond).String(),
		"outcome":   string(run.Outcome),
		"kind":      run.Kind,
		"phase":     run.Phase,
		"error":     run.Error,
		"examined":  run.Examined,
		"matched":   run.Matched,
		"files":     run.Files,
	}
}

func (w *Writer) writeJSON(value interface{}) error {
	encoder := json.NewEncoder(w.out)
	encoder.SetIndent("", "  ")
	encoder.SetEscapeHTML(false)

	if err := encoder.Encode(value); err != nil {
		return fmt.Errorf("%w: %v", ErrFailedToWriteOut, err)
	}

	return nil
}

func (w *Writer) render(templatePath string, ctx map[string]interface{}) error {
	template, err := templates.Reports.ReadFile(templatePath)

	if err != nil {
		return fmt.Errorf("%w: %v", ErrFailedToRender, err)
	}

	tpl, err := raymond.Parse(string(template))

	if err != nil {
		return fmt.Errorf("%w: %v", ErrFailedToRender, err)
	}

	contents, err := tpl.Exec(ctx)

	if err != nil {
		return fmt.Errorf("%w: %v", ErrFailedToRender, err)
	}

	if _, err := io.WriteString(w.out, contents); err != nil {
		return fmt.Errorf("%w: %v", ErrFailedToWriteOut, err)
	}

	return nil
}
