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

// Package mgerrors provides the error type used across Mangrove. Every error
// carries a Code that classifies it; wrapping preserves the code of the
// innermost coded error.
//
// Create errors with New or Errorf, and annotate errors from lower layers
// with Wrap or Wrapf. Retrieve the code of any error, wrapped or not, with
// Code.
package mgerrors

import (
	"errors"
	"fmt"
)

// fundamental is an error with a code and a message.
type fundamental struct {
	code Code
	msg  string
}

func (f *fundamental) Error() string {
	return f.msg
}

// wrapped is an error that decorates a cause with an additional message.
type wrapped struct {
	cause error
	msg   string
}

func (w *wrapped) Error() string {
	return w.msg + ": " + w.cause.Error()
}

func (w *wrapped) Unwrap() error {
	return w.cause
}

// New returns an error with the supplied message and code.
func New(code Code, message string) error {
	return &fundamental{code: code, msg: message}
}

// Errorf formats according to a format specifier and returns the string
// as a value that satisfies error, with the given code.
func Errorf(code Code, format string, args ...any) error {
	return &fundamental{code: code, msg: fmt.Sprintf(format, args...)}
}

// Wrap returns an error annotating err with a message. If err is nil,
// Wrap returns nil.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return &wrapped{cause: err, msg: message}
}

// Wrapf returns an error annotating err with the format specifier. If err is
// nil, Wrapf returns nil.
func Wrapf(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return &wrapped{cause: err, msg: fmt.Sprintf(format, args...)}
}

// CodeOf returns the error code of the innermost coded error in err's chain.
// A nil error has code OK; an uncoded error has code Unknown.
func CodeOf(err error) Code {
	if err == nil {
		return OK
	}
	var f *fundamental
	if errors.As(err, &f) {
		return f.code
	}
	return Unknown
}
