// Package calendar talks to the Google Calendar API on behalf of the
// authorized user. It covers exactly what the MCP tools need: listing the
// events of the current local day and inserting a single event into the
// primary calendar.
//
// Example usage:
//
//	client, err := calendar.NewClient(ctx, manager.TokenSource(ctx), calendar.Options{
//	    ApplicationName: cfg.ApplicationName(),
//	})
//	if err != nil {
//	    return err
//	}
//
//	events, err := client.ListToday(ctx)
//	if err != nil {
//	    return err
//	}
//	fmt.Println(calendar.FormatEventList(events))
package calendar
