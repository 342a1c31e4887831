package instrumentation

// Label helpers that keep metric cardinality bounded.

// Calendar operation types.
const (
	OperationListToday = "list_today"
	OperationInsert    = "insert"
)

// OAuth tool operation types.
const (
	OperationAuthStatus = "status"
	OperationAuthorize  = "authorize"
)

// AttendeeBucket maps an attendee count onto a small fixed label set.
//
//	AttendeeBucket(0)  // "0"
//	AttendeeBucket(3)  // "2-5"
//	AttendeeBucket(40) // "6+"
func AttendeeBucket(n int) string {
	switch {
	case n <= 0:
		return "0"
	case n == 1:
		return "1"
	case n <= 5:
		return "2-5"
	default:
		return "6+"
	}
}

// EventKind labels an event as timed or all-day.
func EventKind(allDay bool) string {
	if allDay {
		return "all_day"
	}
	return "timed"
}
