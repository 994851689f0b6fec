// Package shell owns privileged command execution.
//
// A Session is a long-running shell process (su, the kpatch compatibility
// binary, or a plain sh) fed through stdin. Jobs are written to it one at a
// time; each job ends with a unique marker that carries the exit status of its
// last command, so output can be streamed line by line while the job runs.
//
// Sessions are produced by a Strategy, which walks an ordered chain of
// elevation mechanisms and takes the first that completes a handshake. The
// chain always ends with an unprivileged sh; if even that cannot start, a dead
// session is returned whose jobs fail with the collected errors. Acquisition
// therefore never fails outright.
//
// The Manager holds the single current session. Refresh builds a new session,
// swaps it in atomically and only then closes the old one, which waits for its
// in-flight job. Manager-routed jobs that lose the race with a refresh are
// re-run on the new session.
//
// Example Usage:
//
//	strategy := shell.NewStrategy(shell.StrategyConfig{
//	    SuperCmd: "truncate",
//	    SuperKey: key,
//	    SContext: "u:r:magisk:s0",
//	}, logger, metrics)
//	manager := shell.NewManager(ctx, strategy, logger, metrics)
//
//	res := manager.Run("id -u")
//	ok := manager.FastCmdResult("cat /proc/filesystems | grep overlay")
//	manager.Stream(stdoutSink, stderrSink, "/data/adb/apd module install /cache/module_APM.zip")
package shell
