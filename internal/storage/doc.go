// Package storage keeps crewsched's audit trail: who added or removed which
// task, and what the registry answered.
//
// Tasks themselves are not persisted; the schedule lives in memory only.
package storage
