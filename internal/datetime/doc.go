// Package datetime decides whether a free-text date/time string is precise
// enough to schedule an event, or whether the caller must be asked a
// follow-up question.
//
// Only two literal formats are accepted as complete: "YYYY-MM-DD HH:MM" for a
// timed event and "YYYY-MM-DD" for an all-day event. Everything else (a bare
// time, "today", "next Friday", unrecognised text) becomes a Clarification
// whose Prompt is meant to be shown to the user verbatim.
package datetime
