package supervisor

// State is the lifecycle stage of a run.
type State int

//go:generate go tool golang.org/x/tools/cmd/stringer -type=State
const (
	Idle State = iota
	Starting
	Running
	Done
	Failed
	Cancelled
)

// Final reports whether the run has ended.
func (s State) Final() bool {
	return s == Done || s == Failed || s == Cancelled
}
