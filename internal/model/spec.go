package model

// ParameterSpec declares one parameter of a requested capability.
type ParameterSpec struct {
	Name     string `json:"name"`
	Type     string `json:"type"`
	Required bool   `json:"required"`
}

// CapabilitySpec is a caller-submitted synthesis request. The name is
// untrusted input; only its sanitized derivative is ever persisted.
type CapabilitySpec struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Parameters  []ParameterSpec `json:"parameters"`
}

// SynthesisStatus is the terminal state of one pipeline run.
type SynthesisStatus string

const (
	// SynthesisOK means the capability compiled and was registered.
	SynthesisOK SynthesisStatus = "ok"
	// SynthesisFailed means a stage failed; diagnostics are in the result.
	SynthesisFailed SynthesisStatus = "failed"
	// SynthesisPendingApproval means the pre-compilation gate halted the
	// pipeline; an operator must approve before compilation proceeds.
	SynthesisPendingApproval SynthesisStatus = "pending_approval"
	// SynthesisBlocked means the global forge flag disables synthesis.
	SynthesisBlocked SynthesisStatus = "blocked"
)

// SynthesisResult is returned to the caller for every pipeline run.
// A compile failure is a normal, fully-reported outcome, not a transport
// error.
type SynthesisResult struct {
	RequestID      string          `json:"request_id"`
	Success        bool            `json:"success"`
	Status         SynthesisStatus `json:"status"`
	ModuleID       string          `json:"module_id,omitempty"`
	ArtifactPath   string          `json:"artifact_path,omitempty"`
	Compiled       bool            `json:"compiled"`
	Message        string          `json:"message"`
	CompilerOutput string          `json:"compiler_output,omitempty"`
}
