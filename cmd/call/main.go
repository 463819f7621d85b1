// Command call is the passenger-call client: a one-shot tool that asks
// the dispatcher for a ride and prints the result. Argument parsing is
// deliberately the standard library's flag/os.Args, not Cobra — this
// tool is a thin external collaborator, not one of the long-running
// processes that own structured logging and configuration layering.
package main

import (
	"fmt"
	"net"
	"os"
	"time"

	"github.com/liftgrid/liftgrid/internal/dispatch"
	"github.com/liftgrid/liftgrid/internal/floor"
	"github.com/liftgrid/liftgrid/internal/wire"
)

func main() {
	if len(os.Args) != 3 {
		fmt.Fprintf(os.Stderr, "usage: %s <source> <destination>\n", os.Args[0])
		os.Exit(1)
	}

	source, destination := os.Args[1], os.Args[2]

	if _, err := floor.Parse(source); err != nil {
		fmt.Println("Invalid floor(s) specified.")
		os.Exit(1)
	}
	if _, err := floor.Parse(destination); err != nil {
		fmt.Println("Invalid floor(s) specified.")
		os.Exit(1)
	}
	if source == destination {
		fmt.Println("You are already on that floor!")
		return
	}

	addr := os.Getenv("LIFTGRID_DISPATCHER_ADDR")
	if addr == "" {
		addr = dispatch.DefaultAddr
	}

	conn, err := net.DialTimeout("tcp", addr, 5*time.Second)
	if err != nil {
		fmt.Println("Unable to connect to elevator system.")
		os.Exit(1)
	}
	defer conn.Close()

	if err := wire.Send(conn, wire.Render(wire.Call{Source: source, Destination: destination})); err != nil {
		fmt.Println("Unable to connect to elevator system.")
		os.Exit(1)
	}

	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	payload, err := wire.Receive(conn)
	if err != nil {
		fmt.Println("Unable to connect to elevator system.")
		os.Exit(1)
	}

	msg, err := wire.Parse(payload)
	if err != nil {
		fmt.Println("Unable to connect to elevator system.")
		os.Exit(1)
	}

	switch m := msg.(type) {
	case wire.CarAssigned:
		fmt.Printf("Car %s is arriving.\n", m.Name)
	case wire.Unavailable:
		fmt.Println("Sorry, no car is available to take this request.")
	default:
		fmt.Println("Unable to connect to elevator system.")
	}
}
