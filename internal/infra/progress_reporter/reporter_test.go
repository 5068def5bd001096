package progressreporter

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahrav/docleaks/internal/domain/scanning"
	"github.com/ahrav/docleaks/pkg/common/logger"
)

func TestBar_RendersProgress(t *testing.T) {
	var buf bytes.Buffer
	bar := NewBar(&buf)
	ctx := context.Background()

	bar.Start(ctx, 3, 1)
	bar.Advance(ctx, scanning.NewScanTarget("/corpus", "b.txt"), false)
	bar.Advance(ctx, scanning.NewScanTarget("/corpus", "c.txt"), true)
	bar.Finish(ctx, scanning.RunReport{})

	assert.Contains(t, buf.String(), "scanning")
	assert.Contains(t, buf.String(), "3/3")
}

func TestBar_AdvanceBeforeStartIsIgnored(t *testing.T) {
	bar := NewBar(&bytes.Buffer{})
	assert.NotPanics(t, func() {
		bar.Advance(context.Background(), scanning.NewScanTarget("/corpus", "a.txt"), false)
		bar.Finish(context.Background(), scanning.RunReport{})
	})
}

func TestLog_ReportsEveryInterval(t *testing.T) {
	var buf bytes.Buffer
	log := NewLog(logger.New(&buf, logger.LevelInfo, "docscan", nil), 2)
	ctx := context.Background()

	log.Start(ctx, 3, 0)
	for _, name := range []string{"a.txt", "b.txt", "c.txt"} {
		log.Advance(ctx, scanning.NewScanTarget("/corpus", name), name == "b.txt")
	}
	log.Finish(ctx, scanning.RunReport{Total: 3})

	var progress []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		var entry map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &entry))
		if entry["msg"] == "Scan progress" {
			progress = append(progress, entry)
		}
	}

	require.Len(t, progress, 2)
	assert.EqualValues(t, 2, progress[0]["done"])
	assert.EqualValues(t, 3, progress[1]["done"])
	assert.EqualValues(t, 1, progress[1]["failed"])
}

type countingReporter struct{ starts, advances, finishes int }

func (c *countingReporter) Start(context.Context, int, int) { c.starts++ }
func (c *countingReporter) Advance(context.Context, scanning.ScanTarget, bool) {
	c.advances++
}
func (c *countingReporter) Finish(context.Context, scanning.RunReport) { c.finishes++ }

func TestMulti_FansOut(t *testing.T) {
	a, b := &countingReporter{}, &countingReporter{}
	m := Multi{a, b}
	ctx := context.Background()

	m.Start(ctx, 1, 0)
	m.Advance(ctx, scanning.NewScanTarget("/corpus", "a.txt"), false)
	m.Finish(ctx, scanning.RunReport{})

	for _, r := range []*countingReporter{a, b} {
		assert.Equal(t, 1, r.starts)
		assert.Equal(t, 1, r.advances)
		assert.Equal(t, 1, r.finishes)
	}
}
