// Package calendar_tools provides the MCP tools that read and write the
// user's primary Google Calendar:
//
//   - get_todays_events lists the events of the current local day.
//   - create_event inserts an event. Its datetime argument goes through the
//     datetime interpreter first; incomplete input is answered with a
//     clarification question instead of an event.
package calendar_tools
