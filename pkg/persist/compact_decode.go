package persist

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/chazu/lignin/pkg/graph"
	zygo "github.com/glycerine/zygomys/zygo"
)

// SyntaxError reports compact input the reader or a form rejected.
type SyntaxError struct {
	Line    int
	Message string
}

func (e *SyntaxError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("line %d: %s", e.Line, e.Message)
	}
	return e.Message
}

// Is makes SyntaxError match ErrMalformed.
func (e *SyntaxError) Is(target error) bool { return target == ErrMalformed }

// DecodeCompact parses compact text into a document. It does not validate
// references or derive parts; Load does both.
func DecodeCompact(src string) (*graph.Document, error) {
	if !hasForms(src) {
		return graph.New(), nil
	}

	// A fresh sandbox per call: no filesystem or syscall access, and no
	// state shared between documents.
	env := zygo.NewZlispSandbox()
	defer env.Stop()

	b := &compactBuilder{doc: graph.New()}
	b.register(env)

	if err := env.LoadString(preprocessSource(src)); err != nil {
		return nil, parseZygomysError(err)
	}
	if _, err := env.Run(); err != nil {
		se := parseZygomysError(err)
		if b.err != nil {
			se.Message = b.err.Error()
		}
		return nil, se
	}
	return b.doc, nil
}

// hasForms reports whether src holds anything besides blank and comment
// lines.
func hasForms(src string) bool {
	for _, line := range strings.Split(src, "\n") {
		line = strings.TrimSpace(line)
		if line != "" && !strings.HasPrefix(line, ";") {
			return true
		}
	}
	return false
}

type decodeResult struct {
	doc *graph.Document
	err error
}

// decodeCompactWithContext runs DecodeCompact on its own goroutine and
// gives up when ctx ends. The interpreter cannot be interrupted, so an
// abandoned run finishes in the background and its result is dropped.
func decodeCompactWithContext(ctx context.Context, src string) (*graph.Document, error) {
	ch := make(chan decodeResult, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				ch <- decodeResult{err: fmt.Errorf("%w: panic during compact decode: %v", ErrMalformed, r)}
			}
		}()
		doc, err := DecodeCompact(src)
		ch <- decodeResult{doc: doc, err: err}
	}()

	select {
	case res := <-ch:
		return res.doc, res.err
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("compact decode timed out: %w", ctx.Err())
		}
		return nil, ctx.Err()
	}
}

// ---------------------------------------------------------------------------
// Source preprocessing
// ---------------------------------------------------------------------------

// kwPrefix marks keywords rewritten by preprocessSource.
const kwPrefix = "__kw_"

// preprocessSource rewrites compact text into something zygomys reads:
//
//  1. :keyword becomes the quoted symbol __kw_keyword, so no string
//     literal can pass for a keyword.
//  2. kebab-case identifiers become snake_case (linear-pattern).
//  3. ; line comments become // comments.
//
// String literals are left alone.
func preprocessSource(source string) string {
	result := make([]byte, 0, len(source)+len(source)/4)
	b := []byte(source)
	i := 0
	for i < len(b) {
		if b[i] == '"' {
			result = append(result, b[i])
			i++
			for i < len(b) && b[i] != '"' {
				if b[i] == '\\' && i+1 < len(b) {
					result = append(result, b[i], b[i+1])
					i += 2
					continue
				}
				result = append(result, b[i])
				i++
			}
			if i < len(b) {
				result = append(result, b[i])
				i++
			}
			continue
		}
		if b[i] == ';' {
			result = append(result, '/', '/')
			i++
			for i < len(b) && b[i] == ';' {
				i++
			}
			for i < len(b) && b[i] != '\n' {
				result = append(result, b[i])
				i++
			}
			continue
		}
		if b[i] == ':' && i+1 < len(b) && isLetter(b[i+1]) {
			j := i + 1
			for j < len(b) && isKWChar(b[j]) {
				j++
			}
			result = append(result, "(quote "...)
			result = append(result, kwPrefix...)
			for _, c := range b[i+1 : j] {
				if c == '-' {
					c = '_'
				}
				result = append(result, c)
			}
			result = append(result, ')')
			i = j
			continue
		}
		// Only a hyphen between identifier characters; "-5" stays a number.
		if b[i] == '-' && i > 0 && i+1 < len(b) && isIdentChar(b[i-1]) && isLetter(b[i+1]) {
			result = append(result, '_')
			i++
			continue
		}
		result = append(result, b[i])
		i++
	}
	return string(result)
}

func isLetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isKWChar(c byte) bool {
	return isLetter(c) || (c >= '0' && c <= '9') || c == '-' || c == '_'
}

func isIdentChar(c byte) bool {
	return isLetter(c) || (c >= '0' && c <= '9') || c == '_'
}

// ---------------------------------------------------------------------------
// Reader errors
// ---------------------------------------------------------------------------

var (
	linePattern      = regexp.MustCompile(`(?i)(?:error )?on line (\d+):\s*(.*)`)
	linePatternShort = regexp.MustCompile(`(?i)^line (\d+):\s*(.*)`)
)

// parseZygomysError turns an interpreter error into a SyntaxError, keeping
// the line number when the message carries one.
func parseZygomysError(err error) *SyntaxError {
	msg := err.Error()
	for _, re := range []*regexp.Regexp{linePattern, linePatternShort} {
		if m := re.FindStringSubmatch(msg); m != nil {
			line, _ := strconv.Atoi(m[1])
			return &SyntaxError{Line: line, Message: strings.TrimSpace(m[2])}
		}
	}
	return &SyntaxError{Message: strings.TrimSpace(msg)}
}
