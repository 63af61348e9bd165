package pipeline

// Structure is the outcome of the CHECK_FOLDER probe. It is written once by
// the folder-check stage and read by the REORGANIZE stage to decide between
// skipping, renaming and fully reorganizing the cohort folder.
type Structure int

const (
	StructureUnknown Structure = iota
	StructureReady
	StructureReadyToReorganize
	StructureInvalid
)

func (s Structure) String() string {
	switch s {
	case StructureReady:
		return "Ready"
	case StructureReadyToReorganize:
		return "Ready_to_reorganize"
	case StructureInvalid:
		return "Invalid"
	default:
		return "Unknown"
	}
}

// Context is the cross-stage shared state of one pipeline run. It is mutated
// in stage execution order by the single dispatch goroutine; stages
// communicate exclusively through it.
type Context struct {
	// Globals accumulates the GLOBAL_PARAMETERS block plus values written
	// back by stages (e.g. SEGMENTATION sets with-segmentation).
	Globals Params

	// Structure is the folder-probe status recorded by CHECK_FOLDER.
	Structure Structure

	// PreviousOutput is the outputFolder of the last stage that declared a
	// non-empty one, seeded with the first stage's input folder until then;
	// it resolves the PREVIOUS_BLOCK_OUTPUT_FOLDER token.
	PreviousOutput string

	// InputPath is the command-line input folder; it resolves the '.' token.
	InputPath string
}

// NewContext returns an empty run context.
func NewContext() *Context {
	return &Context{Globals: make(Params)}
}
