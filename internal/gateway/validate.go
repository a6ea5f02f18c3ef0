package gateway

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/santhosh-tekuri/jsonschema/v6"

	"whiterabbit/internal/apiclient"
	"whiterabbit/internal/domain"
)

var (
	idPattern        = regexp.MustCompile(`^[a-zA-Z0-9_-]{1,128}$`)
	audioFilePattern = regexp.MustCompile(`^[a-f0-9]+\.(wav|mp3)$`)
)

const (
	maxQueryLen = 200
	maxTTSBody  = 64 << 10
)

// ttsSchema mirrors the backend's TTS request model
const ttsSchema = `{
  "type": "object",
  "required": ["mystery_id", "text"],
  "properties": {
    "mystery_id": {"type": "string", "pattern": "^[a-zA-Z0-9_-]{1,128}$"},
    "text": {"type": "string", "minLength": 1, "maxLength": 5000},
    "voice_id": {"type": "string", "maxLength": 128}
  }
}`

func compileTTSSchema() (*jsonschema.Schema, error) {
	doc, err := jsonschema.UnmarshalJSON(strings.NewReader(ttsSchema))
	if err != nil {
		return nil, err
	}
	c := jsonschema.NewCompiler()
	if err := c.AddResource("tts.json", doc); err != nil {
		return nil, err
	}
	return c.Compile("tts.json")
}

// intParam reads an optional bounded integer query parameter
func intParam(q url.Values, name string, def, min, max int) (int, error) {
	raw := q.Get(name)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, invalid(name, "must be an integer")
	}
	if n < min || n > max {
		return 0, invalid(name, "must be between %d and %d", min, max)
	}
	return n, nil
}

func searchParams(q url.Values) (string, int, error) {
	query := strings.TrimSpace(q.Get("q"))
	if query == "" {
		return "", 0, invalid("q", "is required")
	}
	if utf8.RuneCountInString(query) > maxQueryLen {
		return "", 0, invalid("q", "must be at most %d characters", maxQueryLen)
	}
	limit, err := intParam(q, "limit", 10, 1, 100)
	if err != nil {
		return "", 0, err
	}
	return query, limit, nil
}

func listParams(q url.Values) (apiclient.ListParams, error) {
	var p apiclient.ListParams
	var err error
	if p.Limit, err = intParam(q, "limit", 20, 1, 100); err != nil {
		return p, err
	}
	if p.Offset, err = intParam(q, "offset", 0, 0, 1<<20); err != nil {
		return p, err
	}
	if raw := q.Get("status"); raw != "" {
		p.Status = domain.MysteryStatus(raw)
		if !p.Status.Valid() {
			return p, invalid("status", "unknown status %q", raw)
		}
	}
	for _, f := range []struct {
		name string
		dst  *string
	}{
		{"category", &p.Category},
		{"location", &p.Location},
		{"time_period", &p.TimePeriod},
	} {
		raw := q.Get(f.name)
		if raw == "" {
			continue
		}
		if !idPattern.MatchString(raw) {
			return p, invalid(f.name, "malformed id")
		}
		*f.dst = raw
	}
	return p, nil
}

func graphParams(q url.Values) (depth, nodeLimit int, err error) {
	if depth, err = intParam(q, "depth", 1, 1, 3); err != nil {
		return 0, 0, err
	}
	if nodeLimit, err = intParam(q, "node_limit", 500, 1, 1000); err != nil {
		return 0, 0, err
	}
	return depth, nodeLimit, nil
}

func mysteryID(raw string) (string, error) {
	if !idPattern.MatchString(raw) {
		return "", invalid("id", "malformed mystery id")
	}
	return raw, nil
}

func nodeType(raw string) (domain.Category, error) {
	c := domain.Category(raw)
	if !c.Valid() {
		return "", invalid("type", "must be one of Mystery, Location, TimePeriod, Category")
	}
	return c, nil
}

func audioFilename(raw string) (string, error) {
	if !audioFilePattern.MatchString(raw) {
		return "", invalid("filename", "must be a hex hash with a .wav or .mp3 extension")
	}
	return raw, nil
}

// decodeTTS reads and validates a TTS request body
func (s *Server) decodeTTS(body io.Reader) (domain.TTSRequest, error) {
	var req domain.TTSRequest
	raw, err := io.ReadAll(io.LimitReader(body, maxTTSBody+1))
	if err != nil {
		return req, invalid("body", "unreadable")
	}
	if len(raw) > maxTTSBody {
		return req, invalid("body", "too large")
	}

	inst, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		return req, invalid("body", "must be JSON")
	}
	if err := s.ttsSchema.Validate(inst); err != nil {
		var ve *jsonschema.ValidationError
		if errors.As(err, &ve) {
			return req, invalid("body", "%s", firstCause(ve))
		}
		return req, invalid("body", "%v", err)
	}

	if err := json.Unmarshal(raw, &req); err != nil {
		return req, invalid("body", "must be JSON")
	}
	if req.VoiceID == "default" {
		req.VoiceID = ""
	}
	return req, nil
}

// firstCause names the innermost location and keyword of a schema failure
func firstCause(ve *jsonschema.ValidationError) string {
	for len(ve.Causes) > 0 {
		ve = ve.Causes[0]
	}
	loc := "/" + strings.Join(ve.InstanceLocation, "/")
	return loc + " fails " + strings.Join(ve.ErrorKind.KeywordPath(), "/")
}
