package audio

import (
	"context"
	"fmt"
	"math"
	"os/exec"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"
)

var volumeRe = regexp.MustCompile(`(\d+)\s*%`)

type sinkInput struct {
	ID      int
	Volume  int
	AppName string
}

// pactlFunc runs pactl with args and returns its stdout.
type pactlFunc func(ctx context.Context, args ...string) ([]byte, error)

func runPactl(ctx context.Context, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, "pactl", args...).Output()
}

// Ducker lowers the volume of other PulseAudio sink inputs while a command is
// captured and restores them afterwards. Streams whose application.name is
// listed in keep are left alone.
type Ducker struct {
	mu     sync.Mutex
	keep   []string
	factor float64
	fade   time.Duration
	floor  int
	saved  map[int]int
	pactl  pactlFunc
}

func NewDucker(keep []string, factor float64, fade time.Duration) *Ducker {
	return &Ducker{
		keep:   slices.Clone(keep),
		factor: math.Max(0, math.Min(1, factor)),
		fade:   fade,
		floor:  5,
		pactl:  runPactl,
	}
}

// Duck fades every foreign stream down to factor of its current volume.
// Calling Duck twice without Restore is a no-op.
func (d *Ducker) Duck(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.saved != nil {
		return nil
	}

	inputs, err := d.list(ctx)
	if err != nil {
		return err
	}

	d.saved = make(map[int]int, len(inputs))
	steps := make(map[int][2]int, len(inputs))
	for _, in := range inputs {
		target := max(int(math.Round(float64(in.Volume)*d.factor)), d.floor)
		if target >= in.Volume {
			continue
		}
		d.saved[in.ID] = in.Volume
		steps[in.ID] = [2]int{in.Volume, target}
	}

	return d.ramp(ctx, steps)
}

// Restore fades streams ducked by the last Duck back to their saved volume.
// Streams that disappeared in between are skipped.
func (d *Ducker) Restore(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.saved == nil {
		return nil
	}
	saved := d.saved
	d.saved = nil

	inputs, err := d.list(ctx)
	if err != nil {
		return err
	}

	steps := make(map[int][2]int)
	for _, in := range inputs {
		if orig, ok := saved[in.ID]; ok {
			steps[in.ID] = [2]int{in.Volume, orig}
		}
	}

	return d.ramp(ctx, steps)
}

func (d *Ducker) list(ctx context.Context) ([]sinkInput, error) {
	out, err := d.pactl(ctx, "list", "sink-inputs")
	if err != nil {
		return nil, fmt.Errorf("pactl list sink-inputs: %w", err)
	}

	var res []sinkInput
	for _, in := range parseSinkInputs(string(out)) {
		if !slices.Contains(d.keep, in.AppName) {
			res = append(res, in)
		}
	}
	return res, nil
}

// ramp moves every stream from [0] to [1] in 10ms steps over d.fade.
func (d *Ducker) ramp(ctx context.Context, steps map[int][2]int) error {
	if len(steps) == 0 {
		return nil
	}

	n := max(int(d.fade/(10*time.Millisecond)), 1)
	for i := 1; i <= n; i++ {
		frac := float64(i) / float64(n)
		for id, s := range steps {
			v := s[0] + int(math.Round(float64(s[1]-s[0])*frac))
			arg := strconv.Itoa(min(max(v, 0), 150)) + "%"
			if _, err := d.pactl(ctx, "set-sink-input-volume", strconv.Itoa(id), arg); err != nil {
				return fmt.Errorf("set volume id=%d: %w", id, err)
			}
		}

		if i < n {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(d.fade / time.Duration(n)):
			}
		}
	}

	return nil
}

func parseSinkInputs(text string) []sinkInput {
	var res []sinkInput

	blocks := strings.Split(text, "Sink Input #")
	for _, block := range blocks[1:] {
		header, body, _ := strings.Cut(block, "\n")
		id, err := strconv.Atoi(strings.TrimSpace(header))
		if err != nil {
			continue
		}

		in := sinkInput{ID: id, Volume: -1}
		for _, line := range strings.Split(body, "\n") {
			line = strings.TrimSpace(line)

			if strings.HasPrefix(line, "Volume:") && in.Volume < 0 {
				if m := volumeRe.FindStringSubmatch(line); m != nil {
					in.Volume, _ = strconv.Atoi(m[1])
				}
			}

			if rest, ok := strings.CutPrefix(line, "application.name = "); ok && in.AppName == "" {
				in.AppName = strings.Trim(rest, `"`)
			}
		}

		if in.Volume >= 0 {
			res = append(res, in)
		}
	}

	return res
}
