package services

import (
	"errors"
	"testing"
)

func TestDefaultRoutine_FiveBlocks(t *testing.T) {
	routine := DefaultRoutine()
	if len(routine) != 5 {
		t.Fatalf("expected 5 blocks, got %d", len(routine))
	}
	for index, block := range routine {
		if len(block.Activities) == 0 {
			t.Errorf("block %d has no activities", index)
		}
		seen := make(map[string]bool)
		for _, activity := range block.Activities {
			if seen[activity.ID] {
				t.Errorf("block %d repeats activity %q", index, activity.ID)
			}
			seen[activity.ID] = true
		}
	}
}

func TestChecklist_StartsUnchecked(t *testing.T) {
	checklist := NewChecklist(DefaultRoutine(), false)

	done, total := checklist.Progress()
	if done != 0 || total != 13 {
		t.Errorf("expected 0/13, got %d/%d", done, total)
	}
}

func TestChecklist_AlternateStartsChecked(t *testing.T) {
	checklist := NewChecklist(DefaultRoutine(), true)

	done, total := checklist.Progress()
	if done != total {
		t.Errorf("expected everything checked, got %d/%d", done, total)
	}
}

func TestChecklist_Toggle(t *testing.T) {
	checklist := NewChecklist(DefaultRoutine(), false)

	checked, err := checklist.Toggle(0, "wake")
	if err != nil {
		t.Fatalf("toggling: %v", err)
	}
	if !checked || !checklist.IsChecked(0, "wake") {
		t.Error("expected activity checked")
	}
	if checklist.IsChecked(1, "wake") {
		t.Error("check state must be keyed by block")
	}

	checked, _ = checklist.Toggle(0, "wake")
	if checked {
		t.Error("expected second toggle to uncheck")
	}
}

func TestChecklist_UnknownActivity(t *testing.T) {
	checklist := NewChecklist(DefaultRoutine(), false)

	if _, err := checklist.Toggle(0, "reflect"); !errors.Is(err, ErrUnknownActivity) {
		t.Errorf("expected ErrUnknownActivity, got %v", err)
	}
	if _, err := checklist.Toggle(9, "wake"); !errors.Is(err, ErrUnknownActivity) {
		t.Errorf("expected ErrUnknownActivity, got %v", err)
	}
}

func TestChecklist_Blocks(t *testing.T) {
	checklist := NewChecklist(DefaultRoutine(), false)
	checklist.Toggle(4, "reflect")

	blocks := checklist.Blocks()
	if blocks[4].Items[0].ID != "reflect" || !blocks[4].Items[0].Checked {
		t.Errorf("unexpected block state %+v", blocks[4])
	}
	if blocks[0].Items[0].Checked {
		t.Error("untouched activity reported checked")
	}
}
