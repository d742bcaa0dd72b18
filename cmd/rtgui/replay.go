package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"pkt.systems/pslog"
	"pkt.systems/rtgui"
	"pkt.systems/rtgui/core"
	"pkt.systems/rtgui/schema"
)

const (
	quietPeriod = 20 * time.Millisecond
	quietLimit  = 2 * time.Second
)

// Script is a scripted session: a screen and an ordered list of steps.
type Script struct {
	Screen *ScriptScreen `yaml:"screen"`
	Steps  []Step        `yaml:"steps"`
}

// ScriptScreen sizes the display.
type ScriptScreen struct {
	Width  int `yaml:"width"`
	Height int `yaml:"height"`
}

// Step is one scripted operation. Window names an alias bound by a create
// step.
type Step struct {
	Thread  string `yaml:"thread"`
	Op      string `yaml:"op"`
	Window  string `yaml:"window"`
	Group   string `yaml:"group"`
	Rect    []int  `yaml:"rect"`
	Title   string `yaml:"title"`
	X       int    `yaml:"x"`
	Y       int    `yaml:"y"`
	Key     string `yaml:"key"`
	AfterMS int    `yaml:"after_ms"`
}

var (
	windowOps = map[string]bool{
		"show": true, "hide": true, "activate": true, "deactivate": true,
		"close": true, "destroy": true, "maximize": true, "restore": true,
		"minimize": true, "move": true, "resize": true, "invalidate": true,
		"repaint": true, "veto": true,
	}
	otherOps = map[string]bool{"create": true, "click": true, "key": true, "timer": true}
)

func newReplayCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "replay <script.yaml>",
		Short: "Run a scripted session and print what each thread received",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			script, err := ParseScript(data)
			if err != nil {
				return fmt.Errorf("%s: %w", args[0], err)
			}
			return runReplay(cmd.Context(), script, cmd.OutOrStdout(), pslog.Ctx(cmd.Context()))
		},
	}
}

// ParseScript decodes and checks a replay script.
func ParseScript(data []byte) (Script, error) {
	var script Script
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&script); err != nil {
		if errors.Is(err, io.EOF) {
			return Script{}, errors.New("script is empty")
		}
		return Script{}, fmt.Errorf("parse script: %w", err)
	}
	if len(script.Steps) == 0 {
		return Script{}, errors.New("script has no steps")
	}
	bound := make(map[string]bool)
	for i, step := range script.Steps {
		if err := checkStep(step, bound); err != nil {
			return Script{}, fmt.Errorf("step %d (%s): %w", i+1, step.Op, err)
		}
		if step.Op == "create" {
			bound[step.Window] = true
		}
	}
	return script, nil
}

func checkStep(step Step, bound map[string]bool) error {
	switch {
	case windowOps[step.Op]:
		if !bound[step.Window] {
			return fmt.Errorf("window %q is not created by an earlier step", step.Window)
		}
	case otherOps[step.Op]:
	default:
		return errors.New("unknown op")
	}
	switch step.Op {
	case "create":
		if step.Window == "" {
			return errors.New("create needs a window alias")
		}
		if bound[step.Window] {
			return fmt.Errorf("window %q already created", step.Window)
		}
		if step.Thread == "" {
			return errors.New("create needs a thread")
		}
		if len(step.Rect) != 4 {
			return errors.New("create needs rect [x0, y0, x1, y1]")
		}
	case "resize", "invalidate":
		if len(step.Rect) != 4 {
			return errors.New("rect must be [x0, y0, x1, y1]")
		}
	case "key":
		if utf8.RuneCountInString(step.Key) != 1 {
			return errors.New("key must be a single character")
		}
	case "timer":
		if step.Thread == "" || step.AfterMS <= 0 {
			return errors.New("timer needs a thread and a positive after_ms")
		}
	}
	return nil
}

type delivery struct {
	thread schema.ThreadID
	ev     schema.Event
}

// replayer runs one script against a live shell.
type replayer struct {
	shell   *rtgui.Shell
	threads map[schema.ThreadID]*core.Thread

	mu       sync.Mutex
	received []delivery
	aliases  map[string]schema.WindowID
	names    map[schema.WindowID]string
}

func runReplay(ctx context.Context, script Script, out io.Writer, logger pslog.Logger) error {
	if logger == nil {
		logger = pslog.Ctx(ctx)
	}
	cfg := schema.CoreConfig{}
	if script.Screen != nil {
		cfg.Screen = schema.R(0, 0, script.Screen.Width, script.Screen.Height)
	}
	shell, err := rtgui.New(rtgui.ShellConfig{Core: cfg, ClickToActivate: true},
		rtgui.ShellDeps{Logger: logger}, rtgui.WithInput(), rtgui.WithTimers())
	if err != nil {
		return err
	}
	r := &replayer{
		shell:   shell,
		threads: make(map[schema.ThreadID]*core.Thread),
		aliases: make(map[string]schema.WindowID),
		names:   make(map[schema.WindowID]string),
	}
	for _, step := range script.Steps {
		id := schema.ThreadID(step.Thread)
		if step.Thread == "" || r.threads[id] != nil {
			continue
		}
		th, err := shell.NewThread(id, rtgui.ThreadOptions{Observer: r.observe(id)})
		if err != nil {
			return fmt.Errorf("thread %s: %w", id, err)
		}
		r.threads[id] = th
	}
	if err := shell.Start(ctx); err != nil {
		return err
	}
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), stopTimeout)
		defer cancel()
		_ = shell.Stop(stopCtx)
	}()

	for i, step := range script.Steps {
		if err := r.run(ctx, step); err != nil {
			fmt.Fprintf(out, "step %d %s %s: %v\n", i+1, step.Op, step.Window, err)
			logger.Debug("replay step failed", "step", i+1, "op", step.Op, "err", err)
		}
		r.settle(ctx)
	}
	r.settle(ctx)
	return r.report(out)
}

func (r *replayer) observe(id schema.ThreadID) func(schema.Event) {
	return func(ev schema.Event) {
		r.mu.Lock()
		r.received = append(r.received, delivery{thread: id, ev: ev})
		r.mu.Unlock()
	}
}

func (r *replayer) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.received)
}

// settle waits until no thread has received anything for quietPeriod.
func (r *replayer) settle(ctx context.Context) {
	deadline := time.Now().Add(quietLimit)
	last := r.count()
	quietSince := time.Now()
	for time.Now().Before(deadline) {
		select {
		case <-ctx.Done():
			return
		case <-time.After(2 * time.Millisecond):
		}
		if n := r.count(); n != last {
			last = n
			quietSince = time.Now()
			continue
		}
		if time.Since(quietSince) >= quietPeriod {
			return
		}
	}
}

func (r *replayer) window(alias string) schema.WindowID {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.aliases[alias]
}

func (r *replayer) client(step Step, wid schema.WindowID) (*core.Client, error) {
	if step.Thread != "" {
		return r.threads[schema.ThreadID(step.Thread)].Client(), nil
	}
	snap, err := r.shell.Coordinator().Window(wid)
	if err != nil {
		return nil, err
	}
	th := r.threads[snap.Owner]
	if th == nil {
		return nil, fmt.Errorf("owner %s is not a script thread", snap.Owner)
	}
	return th.Client(), nil
}

func rectOf(v []int) schema.Rect {
	return schema.R(v[0], v[1], v[2], v[3])
}

func (r *replayer) run(ctx context.Context, step Step) error {
	switch step.Op {
	case "create":
		th := r.threads[schema.ThreadID(step.Thread)]
		top, err := th.CreateWindow(ctx, schema.GroupID(step.Group), rectOf(step.Rect), step.Title)
		if err != nil {
			return err
		}
		r.mu.Lock()
		r.aliases[step.Window] = top.ID()
		r.names[top.ID()] = step.Window
		r.mu.Unlock()
		return nil
	case "click":
		return r.shell.Input().Button(ctx, step.X, step.Y, schema.MouseButtonLeft|schema.MouseButtonDown)
	case "key":
		ch, _ := utf8.DecodeRuneInString(step.Key)
		return r.shell.Input().Key(ctx, schema.KeyDown, uint16(ch), schema.ModNone, ch)
	case "timer":
		_, err := r.shell.Timers().After(schema.ThreadID(step.Thread), time.Duration(step.AfterMS)*time.Millisecond)
		if err != nil {
			return err
		}
		// Let it fire before the next step.
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Duration(step.AfterMS) * time.Millisecond):
		}
		return nil
	}

	wid := r.window(step.Window)
	coord := r.shell.Coordinator()
	switch step.Op {
	case "veto":
		return coord.SetCloseVeto(wid, func(context.Context, schema.WindowID) error {
			return errors.New("vetoed by script")
		})
	case "restore":
		return coord.Restore(ctx, wid)
	}
	client, err := r.client(step, wid)
	if err != nil {
		return err
	}
	switch step.Op {
	case "show":
		return client.Show(ctx, wid)
	case "hide":
		return client.Hide(ctx, wid)
	case "activate":
		return client.Activate(ctx, wid)
	case "deactivate":
		return client.Deactivate(ctx, wid)
	case "close":
		return client.Close(ctx, wid)
	case "destroy":
		return client.Destroy(ctx, wid)
	case "maximize":
		return client.Maximize(ctx, wid)
	case "minimize":
		return client.Minimize(ctx, wid)
	case "move":
		return client.Move(ctx, wid, step.X, step.Y)
	case "resize":
		return client.Resize(ctx, wid, rectOf(step.Rect))
	case "invalidate":
		return client.Invalidate(wid, rectOf(step.Rect))
	case "repaint":
		return client.Repaint(wid)
	}
	return fmt.Errorf("unknown op %q", step.Op)
}

// report prints the deliveries grouped by thread, in arrival order.
func (r *replayer) report(out io.Writer) error {
	r.mu.Lock()
	received := append([]delivery(nil), r.received...)
	names := make(map[schema.WindowID]string, len(r.names))
	for k, v := range r.names {
		names[k] = v
	}
	r.mu.Unlock()

	byThread := make(map[schema.ThreadID][]string)
	for _, d := range received {
		byThread[d.thread] = append(byThread[d.thread], describe(d.ev, names))
	}
	ids := make([]string, 0, len(r.threads))
	for id := range r.threads {
		ids = append(ids, string(id))
	}
	sort.Strings(ids)
	for _, id := range ids {
		if _, err := fmt.Fprintf(out, "thread %s\n", id); err != nil {
			return err
		}
		for _, line := range byThread[schema.ThreadID(id)] {
			if _, err := fmt.Fprintf(out, "  %s\n", line); err != nil {
				return err
			}
		}
	}
	return nil
}

func rectsString(rects []schema.Rect) string {
	parts := make([]string, len(rects))
	for i, rc := range rects {
		parts[i] = rc.String()
	}
	return "[" + strings.Join(parts, " ") + "]"
}

// describe renders one delivered message on a single line.
func describe(ev schema.Event, names map[schema.WindowID]string) string {
	name := func(wid schema.WindowID) string {
		if n, ok := names[wid]; ok {
			return n
		}
		return wid.String()
	}
	kind := ev.Kind().String()
	switch e := ev.(type) {
	case *schema.Clip:
		return fmt.Sprintf("%s %s serial=%d %s", kind, name(e.Window), e.Serial(), rectsString(e.Rects()))
	case *schema.Update:
		return fmt.Sprintf("%s %s %s", kind, name(e.Window), e.Rect)
	case *schema.Paint:
		return fmt.Sprintf("%s %s full=%t", kind, name(e.Window), e.Full)
	case *schema.Move:
		return fmt.Sprintf("%s %s %d,%d", kind, name(e.Window), e.X, e.Y)
	case *schema.Resize:
		return fmt.Sprintf("%s %s %s", kind, name(e.Window), e.Rect)
	case *schema.MouseButton:
		return fmt.Sprintf("%s %s %d,%d button=%#x", kind, name(e.Window), e.X, e.Y, e.Button)
	case *schema.MouseMotion:
		return fmt.Sprintf("%s %s %d,%d", kind, name(e.Window), e.X, e.Y)
	case *schema.Keyboard:
		return fmt.Sprintf("%s %s key=%q", kind, name(e.Window), e.Unicode)
	case *schema.Timer:
		return fmt.Sprintf("%s ref=%d", kind, e.Ref)
	case *schema.Command:
		return fmt.Sprintf("%s %s type=%#x id=%d text=%q", kind, name(e.Window), e.Type, e.ID, e.Text())
	case *schema.Focused:
		return fmt.Sprintf("%s %s widget=%s", kind, name(e.Window), e.Widget)
	}
	if wid, ok := schema.TargetOf(ev); ok {
		return kind + " " + name(wid)
	}
	return kind
}
