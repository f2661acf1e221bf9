// Package roster keeps a crew member's task list for one day.
//
// Tasks are ordered by start time and may not overlap. By default times are
// compared as plain strings, exactly as entered ("legacy" mode); strict mode
// validates HH:MM clock times before they are accepted.
package roster
