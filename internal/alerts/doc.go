// Package alerts evaluates configured rule expressions against each county
// analysis and delivers webhook notifications to Slack, Teams, or generic
// HTTP targets when a rule starts or stops firing.
package alerts
