package livingapps

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/tour-dashboard/backend/internal/storage/models"
)

// Record is one record of a collection, tagged with its identifier.
type Record[F any] struct {
	ID        string `json:"record_id"`
	CreatedAt string `json:"createdat,omitempty"`
	UpdatedAt string `json:"updatedat,omitempty"`
	Fields    F      `json:"fields"`
}

// wireRecord is a record body as the service sends it.
type wireRecord[F any] struct {
	ID        models.Text `json:"id"`
	CreatedAt models.Text `json:"createdat"`
	UpdatedAt models.Text `json:"updatedat"`
	Fields    F           `json:"fields"`
}

func decodeRecord[F any](id string, data []byte) (Record[F], error) {
	var w wireRecord[F]
	if err := json.Unmarshal(data, &w); err != nil {
		return Record[F]{}, err
	}
	if w.ID != "" {
		id = string(w.ID)
	}
	return Record[F]{
		ID:        id,
		CreatedAt: string(w.CreatedAt),
		UpdatedAt: string(w.UpdatedAt),
		Fields:    w.Fields,
	}, nil
}

// Response is a decoded write response body.
type Response map[string]any

// ID returns the record id carried by the response, if any.
func (r Response) ID() string {
	for _, key := range []string{"id", "record_id"} {
		if s, ok := r[key].(string); ok && s != "" {
			return s
		}
	}
	return ""
}

// writeRequest is the envelope for create and update payloads.
type writeRequest struct {
	Fields any `json:"fields"`
}

// Collection is a typed view of one remote collection ("app").
type Collection[F any] struct {
	client *Client
	name   string
	appID  string
}

// NewCollection binds a collection id to a client. name labels logs and metrics.
func NewCollection[F any](client *Client, name, appID string) *Collection[F] {
	return &Collection[F]{client: client, name: name, appID: appID}
}

// Name returns the collection label.
func (c *Collection[F]) Name() string {
	return c.name
}

// AppID returns the remote collection id.
func (c *Collection[F]) AppID() string {
	return c.appID
}

func (c *Collection[F]) recordsPath() string {
	return "/apps/" + c.appID + "/records"
}

// List returns every record of the collection in the order the service sent
// them. Records whose body is not an object with an object "fields" member are
// skipped and logged.
func (c *Collection[F]) List(ctx context.Context) ([]Record[F], error) {
	data, err := c.client.call(ctx, c.name, http.MethodGet, c.recordsPath(), nil)
	if err != nil {
		return nil, err
	}

	records, skipped, err := decodeRecordMap[F](data)
	if err != nil {
		return nil, fmt.Errorf("decoding %s records: %w", c.name, err)
	}
	for _, id := range skipped {
		c.client.logger.Warn().Str("collection", c.name).Str("record_id", id).Msg("skipping malformed record")
	}
	return records, nil
}

// decodeRecordMap walks the id -> body object with a token decoder so the
// service's ordering is preserved.
func decodeRecordMap[F any](data []byte) ([]Record[F], []string, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return nil, nil, err
	}
	if tok == nil {
		return []Record[F]{}, nil, nil
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, nil, fmt.Errorf("expected object, got %v", tok)
	}

	records := make([]Record[F], 0)
	var skipped []string
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, nil, err
		}
		id, _ := keyTok.(string)

		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return nil, nil, err
		}
		rec, err := decodeRecord[F](id, raw)
		if err != nil {
			skipped = append(skipped, id)
			continue
		}
		// The map key is authoritative for list responses.
		rec.ID = id
		records = append(records, rec)
	}
	if _, err := dec.Token(); err != nil {
		return nil, nil, err
	}
	return records, skipped, nil
}

// Get returns one record. A 404, or a null body, yields an error matching ErrNotFound.
func (c *Collection[F]) Get(ctx context.Context, id string) (*Record[F], error) {
	data, err := c.client.call(ctx, c.name, http.MethodGet, c.recordsPath()+"/"+id, nil)
	if err != nil {
		return nil, err
	}
	if trimmed := bytes.TrimSpace(data); len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, ErrNotFound
	}

	rec, err := decodeRecord[F](id, data)
	if err != nil {
		return nil, fmt.Errorf("decoding %s record: %w", c.name, err)
	}
	return &rec, nil
}

// Create posts a new record. fields is sent as {"fields": fields}; it may be
// the typed fields struct or a map when explicit nulls are needed.
func (c *Collection[F]) Create(ctx context.Context, fields any) (Response, error) {
	return c.write(ctx, http.MethodPost, c.recordsPath(), fields)
}

// Update patches an existing record with a partial set of fields.
func (c *Collection[F]) Update(ctx context.Context, id string, fields any) (Response, error) {
	return c.write(ctx, http.MethodPatch, c.recordsPath()+"/"+id, fields)
}

// Delete removes a record. The body of a successful response is ignored.
func (c *Collection[F]) Delete(ctx context.Context, id string) (bool, error) {
	if _, err := c.client.call(ctx, c.name, http.MethodDelete, c.recordsPath()+"/"+id, nil); err != nil {
		return false, err
	}
	return true, nil
}

func (c *Collection[F]) write(ctx context.Context, method, endpoint string, fields any) (Response, error) {
	data, err := c.client.call(ctx, c.name, method, endpoint, writeRequest{Fields: fields})
	if err != nil {
		return nil, err
	}
	resp := Response{}
	if len(bytes.TrimSpace(data)) == 0 {
		return resp, nil
	}
	if err := json.Unmarshal(data, &resp); err == nil {
		return resp, nil
	}
	// Scalar or array bodies are kept under "result".
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("decoding %s response: %w", c.name, err)
	}
	return Response{"result": v}, nil
}
