// Copyright 2026 The Ringlink Authors
// SPDX-License-Identifier: Apache-2.0

// Package testutil holds small helpers shared by package tests.
package testutil

import (
	"testing"
	"time"
)

// waitTimeout bounds every blocking helper so a broken test fails fast
// instead of hanging the run.
const waitTimeout = 5 * time.Second

// RequireReceive receives from ch or fails the test after a timeout.
func RequireReceive[T any](t *testing.T, ch <-chan T, what string) T {
	t.Helper()
	select {
	case v := <-ch:
		return v
	case <-time.After(waitTimeout):
		t.Fatalf("timed out waiting to receive %s", what)
		panic("unreachable")
	}
}

// RequireSend sends v to ch or fails the test after a timeout.
func RequireSend[T any](t *testing.T, ch chan<- T, v T, what string) {
	t.Helper()
	select {
	case ch <- v:
	case <-time.After(waitTimeout):
		t.Fatalf("timed out waiting to send %s", what)
	}
}

// RequireClosed waits for ch to be closed (or to yield a value) or
// fails the test after a timeout.
func RequireClosed[T any](t *testing.T, ch <-chan T, what string) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(waitTimeout):
		t.Fatalf("timed out waiting for %s", what)
	}
}
