// Command liftctl is the manual-service tool: a one-shot writer into a
// car's shared state region. Argument parsing is deliberately the
// standard library's flag/os.Args, not Cobra — like cmd/call, this is a
// thin external collaborator rather than one of the long-running
// processes that own structured logging and configuration layering.
package main

import (
	"fmt"
	"os"

	"github.com/liftgrid/liftgrid/internal/carstate"
	"github.com/liftgrid/liftgrid/internal/floor"
)

func main() {
	if len(os.Args) != 3 {
		fmt.Fprintf(os.Stderr, "Usage: %s <car_name> <operation>\n", os.Args[0])
		os.Exit(1)
	}

	carName := os.Args[1]
	operation := os.Args[2]

	region, err := carstate.Open(carName)
	if err != nil {
		fmt.Printf("Unable to access car %s.\n", carName)
		os.Exit(1)
	}
	defer region.Close()

	err = region.WithLock(func(s *carstate.State) bool {
		switch operation {
		case "open":
			s.OpenButton = true
			return true

		case "close":
			s.CloseButton = true
			return true

		case "stop":
			s.EmergencyStop = true
			return true

		case "service_on":
			s.IndividualServiceMode = true
			s.EmergencyMode = false
			return true

		case "service_off":
			s.IndividualServiceMode = false
			return true

		case "up", "down":
			return applyManualMove(s, operation)

		default:
			fmt.Println("Invalid operation.")
			return false
		}
	})
	if err != nil {
		fmt.Printf("Unable to access car %s.\n", carName)
		os.Exit(1)
	}
}

// applyManualMove implements the up/down manual-service directive: it
// requires individual service mode and the car idle with doors closed,
// then sets destination_floor one axis unit away, skipping zero.
func applyManualMove(s *carstate.State, operation string) bool {
	if !s.IndividualServiceMode {
		fmt.Println("Operation only allowed in service mode.")
		return false
	}

	switch s.Status {
	case carstate.StatusClosed:
		// fall through to compute the move

	case carstate.StatusOpen, carstate.StatusOpening, carstate.StatusClosing:
		fmt.Println("Operation not allowed while doors are open.")
		return false

	default:
		fmt.Println("Operation not allowed while elevator is moving.")
		return false
	}

	current, err := floor.Parse(s.CurrentFloor)
	if err != nil {
		fmt.Println("Invalid operation.")
		return false
	}

	direction := 1
	if operation == "down" {
		direction = -1
	}

	next := current.Axis + direction
	if next == 0 {
		next += direction
	}

	s.DestinationFloor = floor.Render(next, next < 0)
	return true
}
