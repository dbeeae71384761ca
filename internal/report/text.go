package report

import (
	"context"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/0x6d61/pshelper/internal/exposure"
	"github.com/0x6d61/pshelper/internal/session"
	"github.com/0x6d61/pshelper/internal/status"
)

const (
	doubleLine = "\u2550" // ═
	singleLine = "\u2500" // ─
	lineWidth  = 72
)

// TextReporter outputs plain terminal text.
type TextReporter struct {
	// Verbose controls detail level: 0=table only, 1=+per-session details.
	Verbose int
}

// Format returns "text".
func (r *TextReporter) Format() string {
	return "text"
}

// Generate writes the formatted listing to w.
func (r *TextReporter) Generate(ctx context.Context, listing *Listing, w io.Writer) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	b := &strings.Builder{}

	// Header
	doubleBar := strings.Repeat(doubleLine, lineWidth)
	singleBar := strings.Repeat(singleLine, lineWidth)

	fmt.Fprintln(b, doubleBar)
	fmt.Fprintln(b, "pshelper - Photogrammetry Sessions")
	fmt.Fprintln(b, doubleBar)

	if listing.Collection != "" {
		fmt.Fprintf(b, "Collection: %s\n", listing.Collection)
	}
	if sc := listing.Scan; sc != nil {
		duration := sc.EndTime.Sub(sc.StartTime)
		fmt.Fprintf(b, "Duration:   %.1fs\n", duration.Seconds())
		fmt.Fprintf(b, "Converted:  %d   Resynced: %d   Ignored: %d\n", sc.Converted, sc.Resynced, sc.Ignored)
	}

	// Sessions
	fmt.Fprintln(b, singleBar)
	if len(listing.Sessions) == 0 {
		fmt.Fprintln(b, "No sessions found.")
	} else {
		writeTable(b, listing.Sessions)
	}

	if r.Verbose > 0 {
		for _, s := range listing.Sessions {
			fmt.Fprintln(b, singleBar)
			writeDetails(b, s)
		}
	}

	if len(listing.PendingApproval) > 0 {
		fmt.Fprintln(b, singleBar)
		fmt.Fprintln(b, "Awaiting approval:")
		for _, p := range listing.PendingApproval {
			fmt.Fprintf(b, "  - %s\n", p)
		}
	}

	// Errors section
	if len(listing.Errors) > 0 {
		fmt.Fprintln(b, singleBar)
		fmt.Fprintln(b, "Errors:")
		for _, e := range listing.Errors {
			fmt.Fprintf(b, "  - %s\n", e.Error())
		}
	}

	// Summary
	st := Summarize(listing.Sessions)
	fmt.Fprintln(b, doubleBar)
	fmt.Fprintf(b, "Summary: %d session(s), %d ignored, %d out of sync\n", st.Total, st.Ignored, st.Unsynchronized)
	fmt.Fprintf(b, "Without descriptor: %d   alignment: %d   dense cloud: %d   model: %d\n",
		st.WithoutDescriptor, st.WithoutAlignment, st.WithoutDenseCloud, st.WithoutModel)
	fmt.Fprintln(b, doubleBar)

	_, err := io.WriteString(w, b.String())
	return err
}

func writeTable(b *strings.Builder, snaps []session.Snapshot) {
	tw := tabwriter.NewWriter(b, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tSTATUS\tRAW\tPROC\tMASKS\tALIGN\tCLOUD\tMODEL\tTEXTURE\tSYNC")
	for _, s := range snaps {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%d\t%d\t%d\t%s\t%s\t%s\t%s\t%s\n",
			s.ID,
			displayName(s),
			s.Status.ShortName(),
			s.RawCount,
			s.ProcessedCount,
			s.MaskCount,
			status.DescribeAlign(s.Metrics),
			status.DescribeDenseCloud(s.Metrics),
			status.DescribeModel(s.Metrics),
			status.DescribeTexture(s.Metrics),
			syncLabel(s),
		)
	}
	tw.Flush()
}

func writeDetails(b *strings.Builder, s session.Snapshot) {
	fmt.Fprintf(b, "[%d] %s\n", s.ID, displayName(s))
	fmt.Fprintf(b, "  Folder:      %s\n", s.Root)
	fmt.Fprintf(b, "  Status:      %s (%s)\n", s.Status, s.Status.Description())
	if s.Description != "" {
		fmt.Fprintf(b, "  Description: %s\n", s.Description)
	}
	if !s.CapturedAt.IsZero() {
		fmt.Fprintf(b, "  Captured:    %s\n", s.CapturedAt.Format("2006-01-02 15:04:05"))
	}
	if s.ProjectFile != "" {
		fmt.Fprintf(b, "  Project:     %s\n", s.ProjectFile)
	}
	fmt.Fprintf(b, "  Images:      %d raw, %d processed, %d masks\n", s.RawCount, s.ProcessedCount, s.MaskCount)
	if s.ChunkCount > 0 {
		fmt.Fprintf(b, "  Chunks:      %d (active %d)\n", s.ChunkCount, s.ActiveChunkIndex)
	}
	m := s.Metrics
	fmt.Fprintf(b, "  Alignment:   %s [%d]\n", status.DescribeAlign(m), status.AlignScore(m))
	fmt.Fprintf(b, "  Dense cloud: %s [%d]\n", status.DescribeDenseCloud(m), status.DenseCloudScore(m))
	fmt.Fprintf(b, "  Model:       %s [%d]\n", status.DescribeModel(m), status.ModelScore(m))
	fmt.Fprintf(b, "  Texture:     %s [%d]\n", status.DescribeTexture(m), status.TextureScore(m))
	fmt.Fprintf(b, "  Exposure:    %s\n", DescribeExposure(s.Exposure))
	fmt.Fprintf(b, "  Record:      %s\n", syncLabel(s))
	for i, n := range s.Notes {
		fmt.Fprintf(b, "  Note %d:      %s\n", i+1, n)
	}
}

func displayName(s session.Snapshot) string {
	if s.Name != "" {
		return s.Name
	}
	return s.Folder()
}

func syncLabel(s session.Snapshot) string {
	switch {
	case s.Ignored:
		return "ignored"
	case !s.Initialized:
		return "new"
	case !s.Synchronized && s.Mismatch != "":
		return "stale (" + s.Mismatch + ")"
	case !s.Synchronized:
		return "stale"
	default:
		return "ok"
	}
}

// DescribeExposure renders exposure settings as one line of text.
func DescribeExposure(e exposure.Settings) string {
	wb := e.WBMode.String()
	if e.WBMode == exposure.WBCustom {
		wb = fmt.Sprintf("custom %g/%g/%g/%g", e.WBCustom[0], e.WBCustom[1], e.WBCustom[2], e.WBCustom[3])
	}
	bright := e.BrightMode.String()
	if e.BrightMode == exposure.BrightScaled {
		bright = fmt.Sprintf("scaled x%g", e.BrightScale)
	}
	return "white balance " + wb + ", brightness " + bright
}
