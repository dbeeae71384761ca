package report

import (
	"context"
	"encoding/json"
	"io"
	"time"

	"github.com/0x6d61/pshelper/internal/session"
	"github.com/0x6d61/pshelper/internal/status"
)

// JSONReporter outputs structured JSON.
type JSONReporter struct {
	// Compact outputs single-line JSON when true (no indentation).
	Compact bool
}

// Format returns "json".
func (r *JSONReporter) Format() string {
	return "json"
}

// jsonOutput is the top-level JSON structure.
type jsonOutput struct {
	SchemaVersion   string        `json:"schema_version"`
	Tool            string        `json:"tool"`
	Collection      string        `json:"collection,omitempty"`
	Scan            *jsonScan     `json:"scan,omitempty"`
	Sessions        []jsonSession `json:"sessions"`
	PendingApproval []string      `json:"pending_approval,omitempty"`
	Summary         Stats         `json:"summary"`
	Errors          []string      `json:"errors,omitempty"`
}

// jsonScan represents scan metadata in JSON.
type jsonScan struct {
	ID              string    `json:"id"`
	StartTime       time.Time `json:"start_time"`
	EndTime         time.Time `json:"end_time"`
	DurationSeconds float64   `json:"duration_seconds"`
	Converted       int       `json:"converted"`
	Resynced        int       `json:"resynced"`
	Ignored         int       `json:"ignored"`
}

// jsonSession is a snapshot plus the rendered phase descriptions.
type jsonSession struct {
	session.Snapshot
	StatusName string     `json:"status_name"`
	Phases     jsonPhases `json:"phases"`
}

// jsonPhases holds a description and score per reconstruction phase.
type jsonPhases struct {
	Alignment  jsonPhase `json:"alignment"`
	DenseCloud jsonPhase `json:"dense_cloud"`
	Model      jsonPhase `json:"model"`
	Texture    jsonPhase `json:"texture"`
}

type jsonPhase struct {
	Description string `json:"description"`
	Score       int    `json:"score"`
}

func phasesOf(m status.Metrics) jsonPhases {
	return jsonPhases{
		Alignment:  jsonPhase{status.DescribeAlign(m), status.AlignScore(m)},
		DenseCloud: jsonPhase{status.DescribeDenseCloud(m), status.DenseCloudScore(m)},
		Model:      jsonPhase{status.DescribeModel(m), status.ModelScore(m)},
		Texture:    jsonPhase{status.DescribeTexture(m), status.TextureScore(m)},
	}
}

// Generate writes the JSON listing to w.
func (r *JSONReporter) Generate(ctx context.Context, listing *Listing, w io.Writer) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	output := jsonOutput{
		SchemaVersion:   "1.0",
		Tool:            "pshelper",
		Collection:      listing.Collection,
		Sessions:        make([]jsonSession, 0, len(listing.Sessions)),
		PendingApproval: listing.PendingApproval,
		Summary:         Summarize(listing.Sessions),
	}

	if sc := listing.Scan; sc != nil {
		output.Scan = &jsonScan{
			ID:              sc.ID,
			StartTime:       sc.StartTime,
			EndTime:         sc.EndTime,
			DurationSeconds: sc.EndTime.Sub(sc.StartTime).Seconds(),
			Converted:       sc.Converted,
			Resynced:        sc.Resynced,
			Ignored:         sc.Ignored,
		}
	}

	for _, s := range listing.Sessions {
		output.Sessions = append(output.Sessions, jsonSession{
			Snapshot:   s,
			StatusName: s.Status.String(),
			Phases:     phasesOf(s.Metrics),
		})
	}

	// Errors
	if len(listing.Errors) > 0 {
		output.Errors = make([]string, len(listing.Errors))
		for i, e := range listing.Errors {
			output.Errors[i] = e.Error()
		}
	}

	enc := json.NewEncoder(w)
	if !r.Compact {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(output)
}
