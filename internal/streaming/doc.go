// Package streaming relays one transcoder's MJPEG output to any number of
// websocket subscribers.
//
// The Supervisor runs the transcoder only while someone is watching: the
// first subscriber starts it, the last one leaving arms a grace timer, and an
// unexpected exit is restarted after a fixed delay while subscribers remain.
// The Broadcaster fans each stdout chunk out to every subscriber and evicts
// the ones that cannot keep up. The Registry keeps the two in step, and the
// Server exposes it over websocket.
package streaming
