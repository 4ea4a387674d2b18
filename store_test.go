package main

import (
	"context"
	"path/filepath"
	"testing"
	"time"
)

func openTestIndex(t *testing.T) *captureIndex {
	t.Helper()
	index, err := openIndex(filepath.Join(t.TempDir(), "captures.db"))
	if err != nil {
		t.Fatalf("open index: %v", err)
	}
	t.Cleanup(func() { _ = index.Close() })
	return index
}

func TestCaptureIndexRecordAndList(t *testing.T) {
	t.Parallel()
	index := openTestIndex(t)
	fixed := time.Unix(1700000000, 123).UTC()
	index.now = func() time.Time { return fixed }
	ctx := context.Background()

	for _, c := range []Capture{
		{DeliveryID: "a", EventType: "push", Action: "default", Path: "fixtures/push/default.json", Size: 2},
		{DeliveryID: "b", EventType: "issues", Action: "opened", Path: "fixtures/issues/opened.json", Size: 40, Recognized: true},
		{DeliveryID: "c", EventType: "push", Action: "default", Path: "fixtures/push/default.json", Size: 3},
	} {
		if _, err := index.Record(ctx, c); err != nil {
			t.Fatalf("Record() error = %v", err)
		}
	}

	all, err := index.List(ctx, "", 10)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("List() = %d captures, want 3", len(all))
	}
	if all[0].DeliveryID != "c" || all[2].DeliveryID != "a" {
		t.Fatalf("List() order = %s,%s,%s, want c,b,a", all[0].DeliveryID, all[1].DeliveryID, all[2].DeliveryID)
	}
	if !all[1].Recognized || all[1].Size != 40 {
		t.Fatalf("issues capture = %+v", all[1])
	}
	if !all[0].ReceivedAt.Equal(fixed) {
		t.Fatalf("ReceivedAt = %v, want %v", all[0].ReceivedAt, fixed)
	}

	push, err := index.List(ctx, "push", 1)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(push) != 1 || push[0].DeliveryID != "c" {
		t.Fatalf("List(push, 1) = %+v", push)
	}
}

func TestCaptureIndexEmpty(t *testing.T) {
	t.Parallel()
	captures, err := openTestIndex(t).List(context.Background(), "", 10)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if captures == nil || len(captures) != 0 {
		t.Fatalf("List() = %#v, want empty slice", captures)
	}
}
