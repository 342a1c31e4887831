// Package config loads gcal-mcp settings from an optional YAML file and the
// process environment.
//
// File values win over environment variables, except that blank values and
// the template placeholders YOUR_CLIENT_ID / YOUR_CLIENT_SECRET count as
// unset. A minimal file looks like:
//
//	google:
//	  oauth:
//	    client:
//	      id: 1234.apps.googleusercontent.com
//	      secret: GOCSPX-...
//	  application:
//	    name: My Calendar Agent
package config
