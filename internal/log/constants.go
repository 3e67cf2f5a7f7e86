package log

const (
	Args       = "args"
	Cmd        = "cmd"
	Code       = "code"
	Count      = "count"
	Debounce   = "debounce"
	Dir        = "dir"
	Duration   = "duration"
	Error      = "error"
	Event      = "event"
	Files      = "files"
	Generation = "generation"
	Op         = "op"
	Path       = "path"
	Pattern    = "pattern"
	Pid        = "pid"
	RunID      = "run_id"
	Stage      = "stage"
	State      = "state"
	Target     = "target"
)
