package dispatch

import (
	"reflect"
	"testing"
)

func TestCarPositionIdleEqualsCurrent(t *testing.T) {
	if pos := CarPosition(StatusClosed, 5, 5, 1, 10); pos != 5 {
		t.Errorf("CarPosition = %d, want 5", pos)
	}
}

func TestCarPositionAdvancesWhileBetween(t *testing.T) {
	pos := CarPosition(StatusBetween, 5, 8, 1, 10)
	if pos != 6 {
		t.Errorf("CarPosition = %d, want 6 (one step towards 8)", pos)
	}
}

func TestCarPositionAdvancesWhileClosing(t *testing.T) {
	pos := CarPosition(StatusClosing, 5, 3, 1, 10)
	if pos != 4 {
		t.Errorf("CarPosition = %d, want 4 (one step towards 3)", pos)
	}
}

func TestCarPositionDoesNotAdvanceWhileOpen(t *testing.T) {
	pos := CarPosition(StatusOpen, 5, 8, 1, 10)
	if pos != 5 {
		t.Errorf("CarPosition = %d, want 5 (Open does not anticipate motion)", pos)
	}
}

func TestSweepUpFromActiveMotion(t *testing.T) {
	if !SweepUp(5, 8, nil, 0) {
		t.Error("expected sweep up when moving from 5 to 8")
	}
	if SweepUp(8, 5, nil, 0) {
		t.Error("expected sweep down when moving from 8 to 5")
	}
}

func TestSweepUpFromQueueHeadWhenIdle(t *testing.T) {
	if !SweepUp(5, 5, []int{8}, 0) {
		t.Error("expected sweep up toward queue head 8")
	}
	if SweepUp(5, 5, []int{2}, 0) {
		t.Error("expected sweep down toward queue head 2")
	}
}

func TestSweepUpFromNewFloorWhenIdleAndEmpty(t *testing.T) {
	if !SweepUp(5, 5, nil, 9) {
		t.Error("expected sweep up toward new floor 9")
	}
}

// TestInsertionAscendingRunAfterAnchoredHead: car at axis 5
// moving up to 8, queue [8]; inserting 9 yields [8, 9].
func TestInsertionAscendingRunAfterAnchoredHead(t *testing.T) {
	axis, labels := Insert(5, 8, 5, []int{8}, []string{"8"}, 9, "9")
	if !reflect.DeepEqual(axis, []int{8, 9}) {
		t.Errorf("queue axis = %v, want [8 9]", axis)
	}
	if !reflect.DeepEqual(labels, []string{"8", "9"}) {
		t.Errorf("queue labels = %v, want [8 9]", labels)
	}
}

// TestInsertionOppositeSideAppendsToTail: car at axis 5 moving up to 8,
// queue [8]; inserting the call from 3 to 1 yields [8, 3, 1] since both
// are on the opposite side of the sweep.
func TestInsertionOppositeSideAppendsToTail(t *testing.T) {
	axis, labels := Insert(5, 8, 5, []int{8}, []string{"8"}, 3, "3")
	if !reflect.DeepEqual(axis, []int{8, 3}) {
		t.Fatalf("queue axis after inserting 3 = %v, want [8 3]", axis)
	}

	axis, labels = Insert(5, 8, 5, axis, labels, 1, "1")
	if !reflect.DeepEqual(axis, []int{8, 3, 1}) {
		t.Errorf("queue axis = %v, want [8 3 1]", axis)
	}
	if !reflect.DeepEqual(labels, []string{"8", "3", "1"}) {
		t.Errorf("queue labels = %v, want [8 3 1]", labels)
	}
}

func TestInsertionKeepsAscendingRunSorted(t *testing.T) {
	axis, _ := Insert(5, 8, 5, []int{8, 10}, []string{"8", "10"}, 9, "9")
	if !reflect.DeepEqual(axis, []int{8, 9, 10}) {
		t.Errorf("queue axis = %v, want [8 9 10]", axis)
	}
}

func TestInsertionSkipsDuplicate(t *testing.T) {
	axis, labels := Insert(5, 8, 5, []int{8, 9}, []string{"8", "9"}, 9, "9")
	if !reflect.DeepEqual(axis, []int{8, 9}) {
		t.Errorf("duplicate insertion changed queue: %v", axis)
	}
	if !reflect.DeepEqual(labels, []string{"8", "9"}) {
		t.Errorf("duplicate insertion changed labels: %v", labels)
	}
}

func TestInsertionIntoEmptyQueue(t *testing.T) {
	axis, labels := Insert(5, 5, 5, nil, nil, 7, "7")
	if !reflect.DeepEqual(axis, []int{7}) {
		t.Errorf("queue axis = %v, want [7]", axis)
	}
	if !reflect.DeepEqual(labels, []string{"7"}) {
		t.Errorf("queue labels = %v, want [7]", labels)
	}
}

func TestInsertionDescendingSweep(t *testing.T) {
	// Car at axis 8 moving down to 3; queue [3]. Inserting 2 belongs in
	// the descending run after the anchored head.
	axis, _ := Insert(8, 3, 8, []int{3}, []string{"3"}, 2, "2")
	if !reflect.DeepEqual(axis, []int{3, 2}) {
		t.Errorf("queue axis = %v, want [3 2]", axis)
	}
}
