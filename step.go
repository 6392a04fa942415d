package fcbatch

// Step defines a step within the load process.
type Step string

const (
	// StepScan describes reading the metadata sheet and statting binaries.
	StepScan Step = "scan"
	// StepParse describes mapping a row into a resource pair.
	StepParse Step = "parse"
	// StepExecute describes the repository calls creating the pair.
	StepExecute Step = "execute"
	// StepTrack describes writing the load protocol.
	StepTrack Step = "track"
	// StepOther describes a step different from all mentioned above.
	StepOther Step = "other"
)

// String converts a step to string.
func (s Step) String() string {
	return string(s)
}
