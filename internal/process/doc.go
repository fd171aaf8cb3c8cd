// Package process runs external programs to completion.
//
// Process wraps os/exec for a single run of an argv (no shell parsing):
//   - stdout is delivered line by line to an OutputHandler
//   - stderr is captured verbatim and logged through a pluggable LogParser
//   - cancelling the context sends SIGINT, then kills after a timeout
//
// Runner is the seam callers depend on, so a fake engine can stand in for
// the real one in tests:
//
//	runner := process.NewExecRunner(logger)
//	runner.LogParser = ffmpeg.ParseLogLevel
//	res, err := runner.Run(ctx, argv, process.LineFunc(func(line string) {
//	    // parse progress
//	}))
package process
