package remote

import (
	"bufio"
	"context"
	"fmt"
	"io"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"github.com/dshills/calcdown/internal/engine"
)

// Server hosts an engine implementation behind the wire protocol.
// It is the other half of Client: anything implementing engine.Engine
// can be served across a process boundary.
type Server struct {
	eng engine.Engine
}

// NewServer creates a server for the given engine.
func NewServer(eng engine.Engine) *Server {
	return &Server{eng: eng}
}

// Serve reads request frames from r and writes response frames to w
// until r is exhausted or ctx is cancelled. A request that cannot be
// parsed produces an error response when it has an id, and is dropped
// otherwise.
func (s *Server) Serve(ctx context.Context, r io.Reader, w io.Writer) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxFrameSize)

	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}

		payload := scanner.Text()
		if !gjson.Valid(payload) {
			continue
		}
		req := gjson.Parse(payload)
		id := req.Get("id")
		if !id.Exists() {
			continue
		}

		resp, err := s.handle(ctx, req)
		if err != nil {
			resp = errorFrame(id.Int(), err)
		}
		if _, err := io.WriteString(w, resp+"\n"); err != nil {
			return err
		}
	}
	return scanner.Err()
}

// handle dispatches one request and builds its response frame.
func (s *Server) handle(ctx context.Context, req gjson.Result) (string, error) {
	id := req.Get("id").Int()
	method := req.Get("method").String()
	params := req.Get("params")

	switch method {
	case methodClassifyLines:
		var lines []string
		params.Get("lines").ForEach(func(_, item gjson.Result) bool {
			lines = append(lines, item.String())
			return true
		})
		kinds, err := s.eng.ClassifyLines(ctx, lines)
		if err != nil {
			return "", err
		}
		names := make([]string, len(kinds))
		for i, k := range kinds {
			names[i] = k.String()
		}
		return resultFrame(id, names)

	case methodTokenize:
		tokens, err := s.eng.Tokenize(ctx, params.Get("line").String())
		if err != nil {
			return "", err
		}
		encoded, err := encodeTokens(tokens)
		if err != nil {
			return "", err
		}
		return rawResultFrame(id, encoded)

	case methodEvaluateDocument:
		results, err := s.eng.EvaluateDocument(ctx,
			params.Get("text").String(), params.Get("useGlobalContext").Bool())
		if err != nil {
			return "", err
		}
		encoded, err := encodeResults(results)
		if err != nil {
			return "", err
		}
		return rawResultFrame(id, encoded)

	case methodValidate:
		byLine, err := s.eng.Validate(ctx, params.Get("text").String())
		if err != nil {
			return "", err
		}
		encoded, err := encodeDiagnostics(byLine)
		if err != nil {
			return "", err
		}
		return rawResultFrame(id, encoded)

	case methodResetContext:
		if err := s.eng.ResetContext(ctx); err != nil {
			return "", err
		}
		return resultFrame(id, true)

	case methodGetVersion:
		version, err := s.eng.Version(ctx)
		if err != nil {
			return "", err
		}
		return resultFrame(id, version)

	default:
		return "", fmt.Errorf("unknown method %q", method)
	}
}

// resultFrame builds a response frame with a marshalable result value.
func resultFrame(id int64, result any) (string, error) {
	frame, err := sjson.Set("{}", "id", id)
	if err != nil {
		return "", err
	}
	return sjson.Set(frame, "result", result)
}

// rawResultFrame builds a response frame with pre-encoded JSON.
func rawResultFrame(id int64, encoded string) (string, error) {
	frame, err := sjson.Set("{}", "id", id)
	if err != nil {
		return "", err
	}
	return sjson.SetRaw(frame, "result", encoded)
}

// errorFrame builds an error response frame.
func errorFrame(id int64, err error) string {
	frame, _ := sjson.Set("{}", "id", id)
	frame, _ = sjson.Set(frame, "error", err.Error())
	return frame
}
