// internal/workers/infrastructure/usage-quota/models.go
package usagequota

type Input struct {
	UserID string `json:"userId"`
}

// Output is the decision for one consumed request.
type Output struct {
	Allowed   bool   `json:"allowed"`
	Plan      string `json:"plan"`
	Used      int64  `json:"used"`
	Allowance int64  `json:"allowance"`
}

// Plan is a user's monthly request allowance. A negative allowance is unlimited.
type Plan struct {
	Name      string `json:"plan"`
	Allowance int64  `json:"allowance"`
}
