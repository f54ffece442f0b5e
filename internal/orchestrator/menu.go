package orchestrator

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"

	"github.com/fatih/color"

	"github.com/Debrajkhanra88/Gaia/internal/httpapi"
	"github.com/Debrajkhanra88/Gaia/internal/lifecycle"
	"github.com/Debrajkhanra88/Gaia/pkg/types"
)

var (
	stateRunning = color.New(color.FgGreen).SprintFunc()
	stateStopped = color.New(color.FgYellow).SprintFunc()
	stateOther   = color.New(color.FgRed).SprintFunc()
)

func paintState(st types.NodeState) string {
	switch st {
	case types.StateRunning:
		return stateRunning(string(st))
	case types.StateStopped, types.StateInitialized:
		return stateStopped(string(st))
	default:
		return stateOther(string(st))
	}
}

// RunMenu serves the operator loop until exit or EOF. Bad input never exits
// the loop; exit leaves running nodes running.
func (o *Orchestrator) RunMenu(in io.Reader, out io.Writer) error {
	sc := bufio.NewScanner(in)
	for {
		fmt.Fprintf(out, "\ngaia nodes (%d managed)\n", o.nodeCount)
		fmt.Fprintln(out, "  1) list node status")
		fmt.Fprintln(out, "  2) start a node")
		fmt.Fprintln(out, "  3) stop a node")
		fmt.Fprintln(out, "  4) restart all nodes")
		fmt.Fprintln(out, "  5) attach to a node's output")
		fmt.Fprintln(out, "  6) exit")
		fmt.Fprint(out, "> ")
		if !sc.Scan() {
			return sc.Err()
		}
		switch strings.TrimSpace(sc.Text()) {
		case "1":
			o.printStatus(out)
		case "2":
			o.withIndex(sc, out, func(i int) {
				err := o.lc.Start(i)
				httpapi.RecordNodeOp("start", err)
				o.report(out, i, "started", err)
			})
		case "3":
			o.withIndex(sc, out, func(i int) {
				err := o.lc.Stop(i)
				httpapi.RecordNodeOp("stop", err)
				o.report(out, i, "stopped", err)
			})
		case "4":
			o.restartAll(out)
		case "5":
			o.withIndex(sc, out, func(i int) { o.attach(out, i) })
		case "6", "q", "quit", "exit":
			fmt.Fprintln(out, "exiting; nodes keep running")
			return nil
		default:
			fmt.Fprintln(out, "invalid selection, choose 1-6")
		}
	}
}

func (o *Orchestrator) printStatus(out io.Writer) {
	for _, n := range o.Nodes() {
		fmt.Fprintf(out, "node %-2d  %-13s port %-5d model %s\n", n.Index, paintState(n.State), n.Port, n.Model)
		if n.LastError != "" {
			fmt.Fprintf(out, "         last error: %s\n", n.LastError)
		}
	}
}

// withIndex prompts for a node index and runs fn only when it is within
// 1..N; anything else is rejected and the loop continues.
func (o *Orchestrator) withIndex(sc *bufio.Scanner, out io.Writer, fn func(int)) {
	fmt.Fprintf(out, "node index (1-%d): ", o.nodeCount)
	if !sc.Scan() {
		return
	}
	i, err := strconv.Atoi(strings.TrimSpace(sc.Text()))
	if err != nil || i < 1 || i > o.nodeCount {
		fmt.Fprintf(out, "node index out of range (1-%d)\n", o.nodeCount)
		return
	}
	fn(i)
}

func (o *Orchestrator) report(out io.Writer, index int, verb string, err error) {
	if err != nil {
		o.log.Errorf("node %d: %v", index, err)
		fmt.Fprintf(out, "node %d: %v\n", index, err)
		return
	}
	o.log.Infof("node %d %s", index, verb)
	fmt.Fprintf(out, "node %d %s\n", index, verb)
}

func (o *Orchestrator) restartAll(out io.Writer) {
	for _, r := range o.store.Snapshot() {
		err := o.lc.Restart(r.Index)
		httpapi.RecordNodeOp("restart", err)
		o.report(out, r.Index, "restarted", err)
	}
}

// attach follows the node's output capture until interrupted.
func (o *Orchestrator) attach(out io.Writer, index int) {
	st, err := o.lc.Status(index)
	if err != nil {
		fmt.Fprintf(out, "node %d: %v\n", index, err)
		return
	}
	if st != types.StateRunning {
		fmt.Fprintf(out, "node %d is %s, nothing to attach to\n", index, st)
		return
	}
	path, err := o.lc.NodeLogPath(index)
	if err != nil {
		fmt.Fprintf(out, "node %d: %v\n", index, err)
		return
	}
	fmt.Fprintf(out, "attached to node %d (Ctrl+C to detach)\n", index)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := lifecycle.FollowLog(ctx, path, out); err != nil {
		fmt.Fprintf(out, "attach: %v\n", err)
	}
}
