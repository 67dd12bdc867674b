// Package aokit is an embedded-style real-time active-object framework:
// event-driven, hierarchically state-machine-encapsulated objects that
// communicate exclusively by asynchronous message passing, scheduled by a
// preemptive priority-ceiling scheduler.
//
// A typical program builds a Context, registers one or more ActiveObjects
// against hierarchical statecharts built from internal/hsm's State/Machine
// primitives, and drives time with Context.StartTicking. See cmd/aodemo
// for a complete worked example.
package aokit
