/*
Copyright 2026 The Mangrove Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package mgerrors

// Code classifies an error. The set mirrors the canonical rpc codes so that
// errors can cross the wire boundary without translation.
type Code int

const (
	// OK means no error. It is never carried by an actual error value.
	OK Code = iota
	// Canceled means the operation was canceled, typically by the caller.
	Canceled
	// Unknown is the code of errors created outside this package.
	Unknown
	// InvalidArgument means the caller specified an invalid argument.
	InvalidArgument
	// DeadlineExceeded means the operation expired before completion.
	DeadlineExceeded
	// NotFound means a requested entity was not found.
	NotFound
	// ResourceExhausted means a per-operation resource has been exhausted.
	ResourceExhausted
	// FailedPrecondition means the system is not in a state required for
	// the operation's execution.
	FailedPrecondition
	// Aborted means the operation was aborted because of a concurrency
	// issue such as a write conflict. Retrying the whole operation may
	// succeed.
	Aborted
	// Internal means an invariant expected by the system was broken.
	Internal
	// Unavailable means the service is currently unavailable. This is most
	// likely a transient condition.
	Unavailable
)

var codeNames = map[Code]string{
	OK:                 "OK",
	Canceled:           "CANCELED",
	Unknown:            "UNKNOWN",
	InvalidArgument:    "INVALID_ARGUMENT",
	DeadlineExceeded:   "DEADLINE_EXCEEDED",
	NotFound:           "NOT_FOUND",
	ResourceExhausted:  "RESOURCE_EXHAUSTED",
	FailedPrecondition: "FAILED_PRECONDITION",
	Aborted:            "ABORTED",
	Internal:           "INTERNAL",
	Unavailable:        "UNAVAILABLE",
}

func (c Code) String() string {
	if name, ok := codeNames[c]; ok {
		return name
	}
	return "UNKNOWN"
}
