// Package chunks is the root of a cognitive rule engine over graphs
// of chunks.
//
// A chunk is a typed, named record of properties.  Graphs of chunks
// carry an activation model that decays and primes chunks as they're
// used.  Rules match chunks in module buffers and act on modules.
//
// The DSL and graphs are in package 'chunks', matching is in 'match',
// and the rule engine is in 'engine'.  Package 'sio' couples an
// engine to stdio, WebSockets, and MQTT, and 'cmd/chunks' is the
// command-line tool.
package chunks
