package vote

import (
	"errors"
	"testing"
)

func TestOptions_AddFindClear(t *testing.T) {
	var o Options
	if err := o.Add("change_map dm1"); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := o.Add("restart"); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := o.Add("RESTART"); !errors.Is(err, ErrOptionExists) {
		t.Fatalf("expected ErrOptionExists, got %v", err)
	}
	if err := o.Add("bad\nline"); !errors.Is(err, ErrOptionInvalid) {
		t.Fatalf("expected ErrOptionInvalid, got %v", err)
	}
	if got, ok := o.Find("Change_Map DM1"); !ok || got != "change_map dm1" {
		t.Fatalf("Find=%q ok=%v", got, ok)
	}
	if _, ok := o.Find("change_map"); ok {
		t.Fatalf("prefix must not match")
	}
	all := o.All()
	if len(all) != 2 || all[0] != "change_map dm1" || all[1] != "restart" {
		t.Fatalf("All=%q", all)
	}
	o.Clear()
	if o.Len() != 0 {
		t.Fatalf("expected empty after Clear")
	}
}
