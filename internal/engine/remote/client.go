package remote

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"github.com/dshills/calcdown/internal/engine"
)

// maxFrameSize bounds a single wire frame.
const maxFrameSize = 16 << 20

// Client implements engine.Engine over the wire protocol.
//
// Requests are serialized: the scheduler keeps at most one evaluation
// in flight, and the client enforces the same discipline with a mutex
// so request and response frames never interleave.
type Client struct {
	mu     sync.Mutex
	w      io.Writer
	r      *bufio.Scanner
	nextID int64
	closed bool
}

// NewClient creates a client speaking the engine protocol over r and w.
func NewClient(r io.Reader, w io.Writer) *Client {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxFrameSize)
	return &Client{w: w, r: scanner}
}

// Close marks the client unusable. It does not close the underlying
// streams; their owner does.
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
}

// call performs one request/response round trip.
func (c *Client) call(ctx context.Context, method string, params map[string]any) (gjson.Result, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return gjson.Result{}, engine.ErrUnavailable
	}
	if err := ctx.Err(); err != nil {
		return gjson.Result{}, err
	}

	c.nextID++
	id := c.nextID

	frame := "{}"
	var err error
	if frame, err = sjson.Set(frame, "id", id); err != nil {
		return gjson.Result{}, fmt.Errorf("%w: %v", engine.ErrRequestFailed, err)
	}
	if frame, err = sjson.Set(frame, "method", method); err != nil {
		return gjson.Result{}, fmt.Errorf("%w: %v", engine.ErrRequestFailed, err)
	}
	for key, value := range params {
		if frame, err = sjson.Set(frame, "params."+key, value); err != nil {
			return gjson.Result{}, fmt.Errorf("%w: %v", engine.ErrRequestFailed, err)
		}
	}

	if _, err := io.WriteString(c.w, frame+"\n"); err != nil {
		return gjson.Result{}, fmt.Errorf("%w: %v", engine.ErrRequestFailed, err)
	}

	if !c.r.Scan() {
		if err := c.r.Err(); err != nil {
			return gjson.Result{}, fmt.Errorf("%w: %v", engine.ErrRequestFailed, err)
		}
		return gjson.Result{}, engine.ErrUnavailable
	}

	payload := c.r.Text()
	if !gjson.Valid(payload) {
		return gjson.Result{}, engine.ErrMalformedResponse
	}
	resp := gjson.Parse(payload)
	if resp.Get("id").Int() != id {
		return gjson.Result{}, fmt.Errorf("%w: response id mismatch", engine.ErrMalformedResponse)
	}
	if errMsg := resp.Get("error"); errMsg.Exists() {
		return gjson.Result{}, fmt.Errorf("%w: %s", engine.ErrRequestFailed, errMsg.String())
	}
	result := resp.Get("result")
	if !result.Exists() {
		return gjson.Result{}, fmt.Errorf("%w: missing result", engine.ErrMalformedResponse)
	}
	return result, nil
}

// ClassifyLines returns one classification per input line, in order.
func (c *Client) ClassifyLines(ctx context.Context, lines []string) ([]engine.LineKind, error) {
	result, err := c.call(ctx, methodClassifyLines, map[string]any{"lines": lines})
	if err != nil {
		return nil, err
	}
	if !result.IsArray() {
		return nil, engine.ErrMalformedResponse
	}
	var kinds []engine.LineKind
	result.ForEach(func(_, item gjson.Result) bool {
		kinds = append(kinds, kindFromString(item.String()))
		return true
	})
	if len(kinds) != len(lines) {
		return nil, fmt.Errorf("%w: expected %d classifications, got %d",
			engine.ErrMalformedResponse, len(lines), len(kinds))
	}
	return kinds, nil
}

// Tokenize returns the tokens for one calculation line.
func (c *Client) Tokenize(ctx context.Context, line string) ([]engine.Token, error) {
	result, err := c.call(ctx, methodTokenize, map[string]any{"line": line})
	if err != nil {
		return nil, err
	}
	tokens, ok := decodeTokens(result)
	if !ok {
		return nil, engine.ErrMalformedResponse
	}
	return tokens, nil
}

// EvaluateDocument evaluates the full document text.
func (c *Client) EvaluateDocument(ctx context.Context, fullText string, useGlobalContext bool) ([]engine.EvalResult, error) {
	result, err := c.call(ctx, methodEvaluateDocument, map[string]any{
		"text":             fullText,
		"useGlobalContext": useGlobalContext,
	})
	if err != nil {
		return nil, err
	}
	results, ok := decodeResults(result)
	if !ok {
		return nil, engine.ErrMalformedResponse
	}
	return results, nil
}

// Validate checks the full document text.
func (c *Client) Validate(ctx context.Context, fullText string) (map[int][]engine.Diagnostic, error) {
	result, err := c.call(ctx, methodValidate, map[string]any{"text": fullText})
	if err != nil {
		return nil, err
	}
	byLine, ok := decodeDiagnostics(result)
	if !ok {
		return nil, engine.ErrMalformedResponse
	}
	return byLine, nil
}

// ResetContext clears variable bindings persisted by prior evaluations.
func (c *Client) ResetContext(ctx context.Context) error {
	_, err := c.call(ctx, methodResetContext, nil)
	return err
}

// Version returns the remote engine's identification string.
func (c *Client) Version(ctx context.Context) (string, error) {
	result, err := c.call(ctx, methodGetVersion, nil)
	if err != nil {
		return "", err
	}
	return result.String(), nil
}
