// Package nats mirrors relay events onto NATS subjects and accepts PTZ
// commands over NATS request/reply. It is optional: with no URL configured
// the relay runs without it, and a lost connection only drops mirrored events.
//
// # Subjects
//
//	ptzrelay.stream.state        # StreamStateChangedEvent
//	ptzrelay.stream.subscribers  # SubscribersChangedEvent
//	ptzrelay.stream.crashed      # TranscoderCrashedEvent
//	ptzrelay.stream.stats        # StreamStatsEvent
//	ptzrelay.ptz.command         # PTZCommandEvent
//	ptzrelay.control.ptz         # ControlRequest -> ControlReply
//
// # Debugging with the nats CLI
//
//	nats sub "ptzrelay.>"
//	nats request ptzrelay.control.ptz '{"action":"move","direction":"left","speed":30}'
//	nats request ptzrelay.control.ptz '{"action":"stop"}'
//
// An embedded server (Server) can be started in-process so the CLI has
// something to talk to on a single box.
package nats
