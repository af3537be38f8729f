package main

import (
	"bufio"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/charmbracelet/lipgloss"

	"retrocore/core"
	"retrocore/registry"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205"))
	menuStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("243"))
	errStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
)

// runDebugConsole is a headless, scriptable stand-in for the video
// frontend: a styled REPL in the shape of the teacher's Bus.BIOS, with
// commands built around the core.System contract instead of direct
// CPU register pokes (registry.Load hides which concrete console
// package is running underneath).
func runDebugConsole(sys core.System, path string) error {
	sigQuit := make(chan os.Signal, 1)
	signal.Notify(sigQuit, syscall.SIGINT, syscall.SIGTERM)

	scanner := bufio.NewScanner(os.Stdin)

	menu := menuStyle.Render(strings.Join([]string{
		"(r)un     - run until interrupted",
		"(s)tep    - advance one frame",
		"(c)old    - cold reset",
		"(w)arm    - warm reset",
		"video     - poll for a frame finished since the last poll",
		"save <p>  - write a save state to p",
		"load <p>  - restore a save state from p",
		"(q)uit",
	}, "\n"))

	for {
		fmt.Println(headerStyle.Render(fmt.Sprintf("retrocore debug console - %s", path)))
		fmt.Println(menu)
		fmt.Print("> ")

		if !scanner.Scan() {
			return nil
		}
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}

		switch fields[0] {
		case "r", "run":
			runUntilSignal(sys, sigQuit)
		case "s", "step":
			sys.RunFrame()
			if f, ok := sys.PollVideo(); ok {
				fmt.Printf("frame %d (%dx%d)\n", f.FrameNumber, f.Width, f.Height)
			}
		case "c", "cold":
			sys.Reset(true)
		case "w", "warm":
			sys.Reset(false)
		case "video":
			if f, ok := sys.PollVideo(); ok {
				fmt.Printf("%dx%d, frame %d\n", f.Width, f.Height, f.FrameNumber)
			} else {
				fmt.Println("no new frame since the last poll")
			}
		case "save":
			if len(fields) < 2 {
				fmt.Println(errStyle.Render("usage: save <path>"))
				continue
			}
			data, err := sys.GetState()
			if err != nil {
				fmt.Println(errStyle.Render(err.Error()))
				continue
			}
			if err := registry.SaveStateToFile(fields[1], data); err != nil {
				fmt.Println(errStyle.Render(err.Error()))
			}
		case "load":
			if len(fields) < 2 {
				fmt.Println(errStyle.Render("usage: load <path>"))
				continue
			}
			data, err := registry.LoadStateFromFile(fields[1])
			if err != nil {
				fmt.Println(errStyle.Render(err.Error()))
				continue
			}
			if err := sys.SetState(data); err != nil {
				fmt.Println(errStyle.Render(err.Error()))
			}
		case "q", "quit":
			return nil
		default:
			fmt.Println(errStyle.Render("unrecognized command"))
		}
	}
}

func runUntilSignal(sys core.System, sigQuit chan os.Signal) {
	for {
		select {
		case <-sigQuit:
			return
		default:
			sys.RunFrame()
		}
	}
}
