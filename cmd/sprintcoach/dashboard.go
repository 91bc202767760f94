package main

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"github.com/sprintcoach/sprintcoach/internal/safego"
	"github.com/sprintcoach/sprintcoach/internal/session"
	"github.com/sprintcoach/sprintcoach/internal/workout"
)

// dashboard is the terminal UI: live session state on the left, completed
// unit results on the right. It is glue only; every transition goes through
// the orchestrator's operations.
type dashboard struct {
	logger *log.Logger
	o      *workout.Orchestrator
	ts     session.TrainingSession

	app         *tview.Application
	statusPanel *tview.TextView
	resultPanel *tview.TextView

	stateCh chan workout.Snapshot
	done    chan struct{}
	cancels []func()
}

func newDashboard(logger *log.Logger, o *workout.Orchestrator, ts session.TrainingSession) *dashboard {
	return &dashboard{
		logger:  logger,
		o:       o,
		ts:      ts,
		app:     tview.NewApplication(),
		stateCh: make(chan workout.Snapshot, 16),
		done:    make(chan struct{}),
	}
}

// Run blocks until the user quits.
func (d *dashboard) Run() error {
	d.statusPanel = tview.NewTextView().SetDynamicColors(true)
	d.statusPanel.SetBorder(true).SetTitle(" Session ")

	d.resultPanel = tview.NewTextView().
		SetDynamicColors(true).
		SetScrollable(true).
		SetChangedFunc(func() { d.app.Draw() })
	d.resultPanel.SetBorder(true).SetTitle(" Results ")

	help := tview.NewTextView().
		SetDynamicColors(true).
		SetTextAlign(tview.AlignCenter)
	help.SetText("[yellow]Space[white] Start/Pause  |  [yellow]A[white] Advance Phase  |  [yellow]F[white] Finish Sprint  |  [yellow]S[white] Stop  |  [yellow]Q[white] Quit")

	flex := tview.NewFlex().SetDirection(tview.FlexRow).
		AddItem(tview.NewFlex().
			AddItem(d.statusPanel, 0, 1, true).
			AddItem(d.resultPanel, 0, 1, false), 0, 1, true).
		AddItem(help, 1, 0, false)

	d.cancels = append(d.cancels,
		d.o.Events().State.Subscribe(d.stateCh),
		d.o.Events().UnitCompleted.Subscribe(d.onUnitCompleted),
	)
	defer func() {
		for _, c := range d.cancels {
			c()
		}
	}()

	safego.Go(d.logger, d.renderLoop)
	defer close(d.done)

	d.app.SetInputCapture(d.onKey)
	d.renderStatus(d.o.GetState())

	return d.app.SetRoot(flex, true).SetFocus(d.statusPanel).Run()
}

func (d *dashboard) onKey(event *tcell.EventKey) *tcell.EventKey {
	switch {
	case event.Key() == tcell.KeyEscape, event.Rune() == 'q', event.Rune() == 'Q':
		d.app.Stop()
		return nil
	case event.Rune() == ' ':
		st := d.o.GetState()
		switch {
		case !st.Running:
			d.o.Start()
		case st.Paused:
			d.o.Resume()
		default:
			d.o.Pause()
		}
		return nil
	case event.Rune() == 'a', event.Rune() == 'A':
		d.o.Advance()
		return nil
	case event.Rune() == 'f', event.Rune() == 'F':
		d.o.FinishSprint()
		return nil
	case event.Rune() == 's', event.Rune() == 'S':
		d.o.Stop()
		return nil
	}
	return event
}

func (d *dashboard) renderLoop() {
	for {
		select {
		case <-d.done:
			return
		case snap := <-d.stateCh:
			d.app.QueueUpdateDraw(func() { d.renderStatus(snap) })
		}
	}
}

func (d *dashboard) renderStatus(snap workout.Snapshot) {
	var b strings.Builder

	fmt.Fprintf(&b, "[::b]Week %d Day %d[-:-:-]  %s / %s\n", d.ts.Week, d.ts.Day, d.ts.Type, d.ts.Focus)
	fmt.Fprintf(&b, "Prescription: [yellow]%d x %d yd @ %d%%[white]\n\n",
		d.ts.Sprint.Reps, d.ts.Sprint.DistanceYards, d.ts.Sprint.Intensity)

	fmt.Fprintf(&b, "Phase:   [green]%s[white]\n", snap.Phase)
	fmt.Fprintf(&b, "Elapsed: %s\n", formatSeconds(snap.PhaseElapsed))

	if snap.TotalUnits > 0 {
		fmt.Fprintf(&b, "Rep:     %d / %d\n", snap.UnitIndex+1, snap.TotalUnits)
	}
	if snap.Resting {
		fmt.Fprintf(&b, "Rest:    [aqua]%s remaining[white]\n", formatSeconds(snap.RestRemaining))
	}

	b.WriteString("\nStatus:  ")
	switch {
	case snap.Phase.Terminal():
		b.WriteString("[green]Complete[white]")
	case !snap.Running:
		b.WriteString("[gray]Stopped[white]")
	case snap.Paused:
		b.WriteString("[yellow]Paused[white]")
	default:
		b.WriteString("[green]Running[white]")
	}
	fmt.Fprintf(&b, "\nDevice:  %s\n", snap.Origin)

	d.statusPanel.SetText(b.String())
}

// onUnitCompleted appends one line per finished rep. Writing to the view is
// safe from the orchestrator's goroutine; the changed-func redraws.
func (d *dashboard) onUnitCompleted(u workout.UnitResult) {
	stamp := time.Now().Format("15:04:05")
	if u.Unit.Measured() && !u.Synthetic {
		fmt.Fprintf(d.resultPanel, "%s  %s: [yellow]%.2fs[white]  %.1f yd  max %.1f mph\n",
			stamp, u.Unit.Label, u.Result.Time, u.Result.Distance, u.Result.MaxSpeed)
		return
	}
	fmt.Fprintf(d.resultPanel, "%s  %s: %.1fs\n", stamp, u.Unit.Label, u.Result.Time)
}

func formatSeconds(s float64) string {
	total := int(s)
	return fmt.Sprintf("%d:%02d", total/60, total%60)
}
