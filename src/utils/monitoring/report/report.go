package report

type Report struct {
	Run     *RunReport     `json:"run,omitempty"`
	Claimer *ClaimerReport `json:"claimer,omitempty"`
}
