// sessionhooks is a set of event-triggered hooks for Claude Code:
// auto-approval of safe tool actions, session handoff generation on
// compaction and session end, and handoff reload at session start.
package main

func main() {
	Execute()
}
