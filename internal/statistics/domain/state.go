package domain

// State is the reducer's running view of a case: which status and activity
// are open, and who is working it where. Empty strings mean unknown.
type State struct {
	Status       string
	ActivityCode string
	Worker       string
	Unit         string
}

// Reduce folds one event into the state. It is total and pure: every event
// kind yields a state, and the inputs are never mutated.
//
// Task-derived worker/unit only ever apply to the activity currently open on
// the case; events for any other activity leave them untouched. A case-status
// change that switches activity invalidates both until a task event for the
// new activity re-supplies them.
func Reduce(s State, ev Event) State {
	switch e := ev.(type) {
	case CaseStatusChanged:
		next := State{Status: e.Status, ActivityCode: e.ActivityCode}
		switch {
		case e.ActivityCode == s.ActivityCode:
			// Same activity still open: the case-flow system's own worker
			// field is authoritative, the task-derived unit survives.
			next.Worker = e.LastWorker
			next.Unit = s.Unit
		case s.ActivityCode == "" && e.LastCompletedActivityCode == "":
			// First transition on a brand-new case.
			next.Worker = e.LastWorker
		default:
			// Activity switch: inherited worker/unit no longer describe
			// who is working the case.
		}
		return next

	case TaskEvent:
		if e.ActivityCode != s.ActivityCode {
			return s
		}
		switch e.Kind {
		case TaskCreated, TaskReserved, TaskUpdated:
			s.Worker = e.ReservedBy
			s.Unit = e.Unit
		case TaskUnreserved:
			s.Worker = ""
		case TaskClosed:
			s.Worker = ""
			s.Unit = ""
		}
		return s

	default:
		return s
	}
}
