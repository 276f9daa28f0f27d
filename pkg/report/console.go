package report

import (
	"fmt"
	"io"
	"sort"
	"text/tabwriter"

	"github.com/erain9/itchbook/pkg/feed"
	"github.com/erain9/itchbook/pkg/itch"
	"github.com/fatih/color"
)

// Totals are end-of-run sizes of the engine and reference state.
type Totals struct {
	Orders       int
	Trades       int
	Instruments  int
	Participants int
}

// PrintSummary writes the end-of-run summary. The first line is always
// "Parsed: N messages".
func PrintSummary(w io.Writer, res feed.Result, stats feed.StatsSummary, totals Totals) error {
	cyan := color.New(color.FgCyan).SprintfFunc()
	red := color.New(color.FgRed).SprintfFunc()
	green := color.New(color.FgGreen).SprintfFunc()

	if _, err := fmt.Fprintf(w, "Parsed: %d messages\n", res.Frames); err != nil {
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	stop := string(res.Reason)
	if res.Reason == feed.StopUnknownType {
		stop = fmt.Sprintf("%s (%q)", stop, rune(res.Tag))
	}
	fmt.Fprintf(tw, "%s\t%s\n", cyan("Stopped"), stop)
	fmt.Fprintf(tw, "%s\t%s\n", cyan("Elapsed"), stats.Elapsed)
	fmt.Fprintf(tw, "%s\t%.0f\n", cyan("Frames/s"), stats.FramesPerSecond())
	fmt.Fprintf(tw, "%s\tp50=%s p99=%s max=%s\n", cyan("Apply latency"), stats.LatencyP50, stats.LatencyP99, stats.LatencyMax)
	fmt.Fprintf(tw, "%s\t%d\n", cyan("Live orders"), totals.Orders)
	fmt.Fprintf(tw, "%s\t%d\n", cyan("Trades"), totals.Trades)
	fmt.Fprintf(tw, "%s\t%d\n", cyan("Instruments"), totals.Instruments)
	fmt.Fprintf(tw, "%s\t%d\n", cyan("Participants"), totals.Participants)
	fmt.Fprintf(tw, "%s\t%d\n", cyan("Skipped"), stats.Skipped)
	fmt.Fprintf(tw, "%s\t%d\n", cyan("Ignored"), stats.Ignored)

	status := green
	if stats.Violations > 0 || stats.LookupErrors > 0 || stats.PublishErrors > 0 {
		status = red
	}
	fmt.Fprintf(tw, "%s\t%s\n", cyan("Violations"), status("%d", stats.Violations))
	fmt.Fprintf(tw, "%s\t%s\n", cyan("Lookup errors"), status("%d", stats.LookupErrors))
	fmt.Fprintf(tw, "%s\t%d published, %s failed\n", cyan("Trade tape"), stats.TradesPublished, status("%d", stats.PublishErrors))
	fmt.Fprintf(tw, "%s\t%d\n", cyan("Snapshots"), stats.Snapshots)

	types := make([]itch.MessageType, 0, len(stats.ByType))
	for t := range stats.ByType {
		types = append(types, t)
	}
	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })
	for _, t := range types {
		fmt.Fprintf(tw, "  %s\t%d\n", t, stats.ByType[t])
	}
	return tw.Flush()
}
