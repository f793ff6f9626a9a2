package engine

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/menta2k/image-tracer/pkg/binarize"
	"github.com/menta2k/image-tracer/pkg/schedule"
	"github.com/menta2k/image-tracer/pkg/types"
)

// DefaultPotracePath is looked up in PATH when no explicit binary is configured
const DefaultPotracePath = "potrace"

// Potrace runs the potrace executable on the thresholded bitmap
type Potrace struct {
	path     string
	timeout  time.Duration
	schedule schedule.Config
	logger   logrus.FieldLogger
}

// NewPotrace creates an engine running the given binary. An empty path uses DefaultPotracePath.
func NewPotrace(path string, timeout time.Duration, cfg schedule.Config, logger logrus.FieldLogger) *Potrace {
	if path == "" {
		path = DefaultPotracePath
	}
	return &Potrace{
		path:     path,
		timeout:  timeout,
		schedule: cfg,
		logger:   orDiscard(logger),
	}
}

// Name implements Engine
func (p *Potrace) Name() string {
	return "potrace"
}

// Trace implements Engine
func (p *Potrace) Trace(ctx context.Context, pixels *types.PixelBuffer, settings types.Settings) (string, error) {
	grid, err := binarize.Binarize(ctx, pixels, settings.Threshold, settings.BlackOnWhite, binarize.Options{
		BatchRows: p.schedule.BinarizeRows,
	})
	if err != nil {
		return "", err
	}

	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	var input bytes.Buffer
	if err := EncodePBM(&input, grid); err != nil {
		return "", fmt.Errorf("failed to encode bitmap: %w", err)
	}

	args := PotraceArgs(settings)
	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, p.path, args...)
	cmd.Stdin = &input
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	p.logger.WithFields(logrus.Fields{
		"binary": p.path,
		"args":   strings.Join(args, " "),
	}).Debug("running potrace")

	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return "", fmt.Errorf("potrace failed: %w: %s", err, msg)
		}
		return "", fmt.Errorf("potrace failed: %w", err)
	}
	if stdout.Len() == 0 {
		return "", ErrEmptyOutput
	}
	return stdout.String(), nil
}

// PotraceArgs builds the potrace command line for settings; input is read from
// stdin and the SVG is written to stdout
func PotraceArgs(settings types.Settings) []string {
	args := []string{
		"--backend", "svg",
		"--output", "-",
		"--turdsize", strconv.Itoa(settings.TurdSize),
		"--alphamax", strconv.FormatFloat(settings.AlphaMax, 'f', -1, 64),
		"--opttolerance", strconv.FormatFloat(settings.OptTolerance, 'f', -1, 64),
		"--turnpolicy", settings.TurnPolicy.String(),
	}
	if !settings.OptCurve {
		args = append(args, "--longcurve")
	}
	return append(args, "-")
}

// EncodePBM writes grid as a binary (P4) portable bitmap with foreground as black
func EncodePBM(w io.Writer, grid *binarize.Grid) error {
	bw := bufio.NewWriter(w)
	if _, err := fmt.Fprintf(bw, "P4\n%d %d\n", grid.Width, grid.Height); err != nil {
		return err
	}

	row := make([]byte, (grid.Width+7)/8)
	for y := 0; y < grid.Height; y++ {
		clear(row)
		for x := 0; x < grid.Width; x++ {
			if grid.At(x, y) {
				row[x/8] |= 0x80 >> (x % 8)
			}
		}
		if _, err := bw.Write(row); err != nil {
			return err
		}
	}
	return bw.Flush()
}
