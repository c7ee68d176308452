package ratelimit

import (
	"testing"
	"time"
)

func TestAdmitFirstUseAlwaysAllowed(t *testing.T) {
	l := New(60 * time.Second)
	now := time.Now()
	if !l.Admit("/var/log/app.log:err", now) {
		t.Fatal("expected first admission for a new key to succeed")
	}
}

func TestAdmitSuppressesWithinWindow(t *testing.T) {
	l := New(60 * time.Second)
	now := time.Now()
	if !l.Admit("k", now) {
		t.Fatal("expected first admission to succeed")
	}
	if l.Admit("k", now.Add(10*time.Second)) {
		t.Fatal("expected admission within the window to be suppressed")
	}
}

func TestAdmitAllowsAfterWindowElapses(t *testing.T) {
	l := New(60 * time.Second)
	now := time.Now()
	l.Admit("k", now)
	if !l.Admit("k", now.Add(61*time.Second)) {
		t.Fatal("expected admission after the window elapsed to succeed")
	}
}

func TestAdmitBoundaryIsInclusive(t *testing.T) {
	l := New(60 * time.Second)
	now := time.Now()
	l.Admit("k", now)
	if !l.Admit("k", now.Add(60*time.Second)) {
		t.Fatal("expected now-last == window to be admitted")
	}
}

func TestAdmitKeysAreIndependent(t *testing.T) {
	l := New(60 * time.Second)
	now := time.Now()
	l.Admit("a", now)
	if !l.Admit("b", now) {
		t.Fatal("expected a different key to be unaffected by another key's admission")
	}
}

func TestPruneRemovesStaleEntriesOnly(t *testing.T) {
	l := New(60 * time.Second)
	now := time.Now()
	l.Admit("stale", now)
	l.Admit("fresh", now.Add(50*time.Second))

	l.Prune(now.Add(65 * time.Second))

	if _, ok := l.last["stale"]; ok {
		t.Fatal("expected stale entry to be pruned")
	}
	if _, ok := l.last["fresh"]; !ok {
		t.Fatal("expected fresh entry to survive pruning")
	}
}
