// Package process runs a single subprocess with graceful shutdown.
//
// A Process is one spawn: Start launches it in its own process group,
// stdout is forwarded as raw chunks to a ChunkHandler, and stderr is
// logged line by line through an optional LogParser. Stop sends SIGINT
// to the group and escalates to SIGKILL after a timeout.
//
//	p := process.NewProcess("transcoder", args, logger)
//	p.SetChunkHandler(broadcast)
//	p.SetLogParser(logging.GetLogger("ffmpeg"), ffmpeg.ParseLogLevel)
//	if err := p.Start(); err != nil { ... }
//	<-p.Done()
//
// Restart policy is left to the caller.
package process
