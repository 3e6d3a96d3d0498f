// Package alerts implements quality gates over evaluation results and their
// webhook delivery. Gates are "field op value" rules evaluated per team;
// notifications go to Teams, Slack or generic HTTP targets.
package alerts
