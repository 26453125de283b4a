package report

type Format string

const (
	FormatJSON Format = "json"
	FormatText Format = "text"
)

// Failure is the document emitted when a run fails.
type Failure struct {
	Failed  bool   `json:"failed"`
	Changed bool   `json:"changed"`
	Msg     string `json:"msg"`
	Kind    string `json:"kind"`
	Phase   string `json:"phase,omitempty"`
}

const (
	resultTemplatePath  = "reports/result.hbs"
	failureTemplatePath = "reports/failure.hbs"
	runsTemplatePath    = "reports/runs.hbs"
	runTemplatePath     = "reports/run.hbs"
)
