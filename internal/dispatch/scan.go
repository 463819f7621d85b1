// Package dispatch implements the dispatcher (C7): the multi-client TCP
// server that tracks a fleet of cars and, for each passenger call,
// selects a car and splices the request into that car's SCAN-discipline
// floor queue.
package dispatch

import "github.com/liftgrid/liftgrid/internal/floor"

// CarPosition computes the car's position for scheduling purposes. It
// is usually the current floor, but if the car is already moving
// (Closing or Between) toward a different destination, the position is
// advanced one step in that direction, since the car will have moved by
// the time it is actually free to act on a new assignment.
func CarPosition(status string, current, destination, lowest, highest int) int {
	if current == destination {
		return current
	}
	if status != StatusClosing && status != StatusBetween {
		return current
	}
	next, err := floor.StepTowards(current, destination, lowest, highest)
	if err != nil {
		return current
	}
	return next
}

// SweepUp determines the active sweep direction: the direction of
// in-progress motion if the car isn't idle, else the direction toward
// the queue head if one exists, else the direction toward the floor
// being inserted.
func SweepUp(current, destination int, queue []int, newFloor int) bool {
	if current != destination {
		return destination > current
	}
	if len(queue) > 0 {
		return queue[0] > current
	}
	return newFloor > current
}

// InsertionIndex returns where newFloor should be spliced into queue to
// preserve SCAN discipline, given the car's current position and active
// sweep direction. The queue's head (index 0), when present, is the
// car's already-committed target and is never displaced.
//
// A floor on the same side of carPos as the sweep direction is placed
// into the contiguous same-direction run starting at the head, in
// sorted order; a floor on the opposite side, or one that lies between
// carPos and the anchored head, is appended to the tail, in arrival
// order, since it belongs to the sweep the car hasn't started yet.
func InsertionIndex(carPos int, sweepUp bool, queue []int, newFloor int) int {
	if len(queue) == 0 {
		return 0
	}

	sameSide := newFloor > carPos
	if !sweepUp {
		sameSide = newFloor < carPos
	}
	if !sameSide {
		return len(queue)
	}

	beforeHead := newFloor < queue[0]
	if !sweepUp {
		beforeHead = newFloor > queue[0]
	}
	if beforeHead {
		return len(queue)
	}

	runEnd := 1
	for runEnd < len(queue) {
		continuesRun := queue[runEnd] > queue[runEnd-1]
		if !sweepUp {
			continuesRun = queue[runEnd] < queue[runEnd-1]
		}
		if !continuesRun {
			break
		}
		runEnd++
	}

	for j := 1; j < runEnd; j++ {
		fitsBefore := newFloor < queue[j]
		if !sweepUp {
			fitsBefore = newFloor > queue[j]
		}
		if fitsBefore {
			return j
		}
	}

	return runEnd
}

// Insert splices newFloor into queue per SCAN discipline, returning the
// updated queue. Duplicate floors (equal axis, hence equal label) are
// silently skipped. queueAxis and queueLabels are parallel slices;
// newFloorLabel is stored verbatim in the result.
func Insert(current, destination, carPos int, queueAxis []int, queueLabels []string, newFloorAxis int, newFloorLabel string) ([]int, []string) {
	for _, a := range queueAxis {
		if a == newFloorAxis {
			return queueAxis, queueLabels
		}
	}

	sweepUp := SweepUp(current, destination, queueAxis, newFloorAxis)
	idx := InsertionIndex(carPos, sweepUp, queueAxis, newFloorAxis)

	newAxis := make([]int, 0, len(queueAxis)+1)
	newAxis = append(newAxis, queueAxis[:idx]...)
	newAxis = append(newAxis, newFloorAxis)
	newAxis = append(newAxis, queueAxis[idx:]...)

	newLabels := make([]string, 0, len(queueLabels)+1)
	newLabels = append(newLabels, queueLabels[:idx]...)
	newLabels = append(newLabels, newFloorLabel)
	newLabels = append(newLabels, queueLabels[idx:]...)

	return newAxis, newLabels
}
