// Package persist reads and writes documents in two textual forms.
//
// The verbose form is a JSON container carrying the document, the part
// index and the id counters. Fields it does not understand are kept and
// written back. The compact form is a Lisp program of one form per node; it
// carries the graph and materials only, so loading it always re-derives the
// part index.
package persist

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/chazu/lignin/pkg/graph"
	"github.com/chazu/lignin/pkg/metrics"
	"github.com/chazu/lignin/pkg/part"
	"github.com/chazu/lignin/pkg/store"
	"github.com/google/uuid"
)

// ErrMalformed is wrapped by every load error.
var ErrMalformed = graph.ErrMalformed

// Format selects an encoding.
type Format string

const (
	FormatVerbose Format = "verbose"
	FormatCompact Format = "compact"
)

// ParseFormat accepts "verbose", "compact" or their file extensions.
func ParseFormat(s string) (Format, error) {
	switch s {
	case "verbose", "json", ".json":
		return FormatVerbose, nil
	case "compact", "lisp", ".lisp", "lgn", ".lgn":
		return FormatCompact, nil
	}
	return "", fmt.Errorf("unknown format %q", s)
}

// Sniff picks the format from the first non-space byte: '{' is verbose,
// anything else compact.
func Sniff(data []byte) Format {
	trimmed := bytes.TrimLeft(data, " \t\r\n\ufeff")
	if len(trimmed) > 0 && trimmed[0] == '{' {
		return FormatVerbose
	}
	return FormatCompact
}

// File is a loaded document together with its container metadata.
type File struct {
	// ID identifies the document across saves. Compact files carry none, so
	// one is generated on load.
	ID     string
	State  *store.State
	Format Format
	// Derived is set when the part index was reconstructed on load.
	Derived bool
	// Skipped lists roots the part deriver could not classify.
	Skipped []graph.NodeID

	extra map[string]json.RawMessage
}

// NewFile wraps a state with a fresh document id.
func NewFile(st *store.State) *File {
	return &File{ID: uuid.NewString(), State: st, Format: FormatVerbose}
}

// DefaultLoadTimeout bounds compact decoding.
const DefaultLoadTimeout = 5 * time.Second

// Codec loads and encodes documents. The zero value is ready to use.
type Codec struct {
	// Timeout bounds compact decoding. Zero means DefaultLoadTimeout.
	Timeout time.Duration
	Logger  *slog.Logger
	Metrics *metrics.Metrics
}

func (c *Codec) logger() *slog.Logger {
	if c.Logger == nil {
		return slog.Default()
	}
	return c.Logger
}

func (c *Codec) timeout() time.Duration {
	if c.Timeout <= 0 {
		return DefaultLoadTimeout
	}
	return c.Timeout
}

// Load decodes data in whichever format it sniffs as. The result is
// validated: every error wraps ErrMalformed and no partial document is
// returned.
func (c *Codec) Load(ctx context.Context, data []byte) (*File, error) {
	f, err := c.decode(ctx, data, true)
	if err == nil {
		err = check(f.State)
	}
	c.Metrics.RecordLoad(string(Sniff(data)), err)
	if err != nil {
		c.logger().Warn("document load failed", "format", Sniff(data), "error", err)
		return nil, err
	}
	c.logger().Info("document loaded",
		"format", f.Format,
		"id", f.ID,
		"nodes", f.State.Doc.NodeCount(),
		"parts", len(f.State.Parts),
		"derived", f.Derived,
		"skipped_roots", len(f.Skipped))
	return f, nil
}

// Inspect decodes data like Load but keeps documents that fail the
// structural checks, returning every finding alongside the file. Only
// input that cannot be parsed at all is an error.
func (c *Codec) Inspect(ctx context.Context, data []byte) (*File, []graph.ValidationError, error) {
	f, err := c.decode(ctx, data, false)
	if err != nil {
		return nil, nil, err
	}
	findings := f.State.Validate()
	c.logger().Debug("document inspected",
		"format", f.Format,
		"nodes", f.State.Doc.NodeCount(),
		"findings", len(findings))
	return f, findings, nil
}

func (c *Codec) decode(ctx context.Context, data []byte, strict bool) (*File, error) {
	format := Sniff(data)
	var (
		f   *File
		err error
	)
	switch format {
	case FormatVerbose:
		f, err = decodeVerbose(data, strict)
	default:
		f, err = c.loadCompact(ctx, data, strict)
	}
	if err != nil {
		return nil, err
	}
	f.Format = format
	return f, nil
}

func (c *Codec) loadCompact(ctx context.Context, data []byte, strict bool) (*File, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout())
	defer cancel()
	doc, err := decodeCompactWithContext(ctx, string(data))
	if err != nil {
		return nil, err
	}
	if err := checkGraph(doc, strict); err != nil {
		return nil, err
	}
	res := part.Derive(doc)
	return &File{
		ID:      uuid.NewString(),
		State:   store.FromDerived(doc, res),
		Derived: true,
		Skipped: res.Skipped,
	}, nil
}

// Encode writes f in the given format. Both forms are deterministic.
func (c *Codec) Encode(f *File, format Format) ([]byte, error) {
	switch format {
	case FormatVerbose:
		return encodeVerbose(f)
	case FormatCompact:
		return EncodeCompact(f.State.Doc)
	}
	return nil, fmt.Errorf("unknown format %q", format)
}

// Load is Codec.Load with defaults.
func Load(data []byte) (*File, error) {
	var c Codec
	return c.Load(context.Background(), data)
}

// Encode is Codec.Encode with defaults.
func Encode(f *File, format Format) ([]byte, error) {
	var c Codec
	return c.Encode(f, format)
}

// checkGraph rejects documents with structural errors when strict is set.
// Warnings pass.
func checkGraph(d *graph.Document, strict bool) error {
	if !strict {
		return nil
	}
	return firstError(graph.Validate(d))
}

// check rejects states whose graph or part index is inconsistent.
func check(st *store.State) error {
	return firstError(st.Validate())
}

func firstError(findings []graph.ValidationError) error {
	errs := graph.Errors(findings)
	switch len(errs) {
	case 0:
		return nil
	case 1:
		return fmt.Errorf("%w: %v", ErrMalformed, errs[0])
	}
	return fmt.Errorf("%w: %v (and %d more)", ErrMalformed, errs[0], len(errs)-1)
}

func isMalformed(err error) bool {
	return errors.Is(err, ErrMalformed)
}
