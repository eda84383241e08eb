package pipeline

// State enumerates the stages a resolution passes through. States are
// first-class so failure injection can target any single stage and the
// transition log is auditable.
type State int

const (
	StateReceived State = iota
	StateClassified
	StateEscalatedSensitive
	StateRetrieved
	StateGenerated
	StateAssessed
	StateDecided
	StateLogged
	StateDone
)

func (s State) String() string {
	switch s {
	case StateReceived:
		return "received"
	case StateClassified:
		return "classified"
	case StateEscalatedSensitive:
		return "escalated_sensitive"
	case StateRetrieved:
		return "retrieved"
	case StateGenerated:
		return "generated"
	case StateAssessed:
		return "assessed"
	case StateDecided:
		return "decided"
	case StateLogged:
		return "logged"
	case StateDone:
		return "done"
	default:
		return "unknown"
	}
}

// Stage names used in failure annotations and metrics labels.
const (
	stageClassify = "classify"
	stageRetrieve = "retrieve"
	stageGenerate = "generate"
	stageLog      = "log"
)
