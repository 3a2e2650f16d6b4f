// Package alerts evaluates threshold rules against live readings and
// delivers webhook notifications to Teams, Slack or generic HTTP targets
// when a rule fires or resolves.
package alerts
