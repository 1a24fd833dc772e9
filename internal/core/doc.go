// Package core provides the domain logic shared by the web server, the CLI
// and the terminal UI.
//
// # Conversion
//
// [ConvertToCSV] turns the free-form text returned by the profiling endpoint
// into CSV. A non-empty JSON array becomes a header row plus one row per
// element; anything else is quoted line by line. The function is total and
// never returns an error.
//
// # Results
//
// [Result] is a tagged variant (empty, failed, succeeded). Only successful
// results carry the two response fields, listed in [Fields] together with
// the filename each exports to.
//
// # Error Handling
//
// Technical errors are mapped to user-friendly messages using [MapError].
// Each error category has a unique code for support reference:
//
//   - FILE001-FILE004: File selection errors (size, missing, unreadable)
//   - UPL001-UPL005: Upload workflow errors (missing files, busy, timeout)
//   - EP001-EP006: Endpoint errors (unreachable, status, response body)
//   - EXP001-EXP002: Export errors
//   - RATE001: Request throttling
//
// # Concurrency
//
// [UploadLimiter] caps the number of uploads in flight against the endpoint
// across all sessions and lets shutdown wait for them to drain.
package core
