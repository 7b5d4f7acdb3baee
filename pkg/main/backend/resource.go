package backend

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/Kellerman81/go_admissions_admin/pkg/main/apperrors"
	"github.com/Kellerman81/go_admissions_admin/pkg/main/config"
	"github.com/Kellerman81/go_admissions_admin/pkg/main/datatable"
	"github.com/goccy/go-json"
)

// Resource is the REST repository of one entity type for one session.
type Resource[T datatable.Record] struct {
	client *Client
	sess   *Session
	entity config.EntityConfig
}

// NewResource binds the endpoints of entity to sess.
func NewResource[T datatable.Record](client *Client, sess *Session, entity config.EntityConfig) *Resource[T] {
	return &Resource[T]{client: client, sess: sess, entity: entity}
}

func (r *Resource[T]) op(action string) string {
	return r.entity.Name + "_" + action
}

// List fetches the whole collection. The backend may answer with a bare
// array or wrap it in data, items or results.
func (r *Resource[T]) List(ctx context.Context) ([]T, error) {
	if r.entity.ListEndpoint == "" {
		return nil, apperrors.New(apperrors.ErrClassConfig, r.op("list"), "Aucun endpoint de liste configuré.")
	}
	var raw json.RawMessage
	if err := r.client.Do(ctx, r.sess, r.op("list"), http.MethodGet, r.entity.ListEndpoint, nil, &raw); err != nil {
		return nil, err
	}
	rows, err := decodeList[T](raw)
	if err != nil {
		return nil, apperrors.WrapWithMessage(apperrors.ErrClassBackend, r.op("list"), "Réponse du serveur illisible.", err)
	}
	return rows, nil
}

// Add creates rec and returns the stored record. When the backend answers
// without a record, rec is returned unchanged.
func (r *Resource[T]) Add(ctx context.Context, rec T) (T, error) {
	return r.write(ctx, "add", r.entity.AddEndpoint, rec)
}

// Update saves rec.
func (r *Resource[T]) Update(ctx context.Context, rec T) (T, error) {
	if rec.RecordID() == "" {
		var zero T
		return zero, apperrors.New(apperrors.ErrClassValidation, r.op("update"), "Identifiant manquant.")
	}
	return r.write(ctx, "update", r.entity.UpdateEndpoint, rec)
}

func (r *Resource[T]) write(ctx context.Context, action, endpoint string, rec T) (T, error) {
	if endpoint == "" {
		var zero T
		return zero, apperrors.New(apperrors.ErrClassConfig, r.op(action), "Action non disponible pour cette entité.")
	}
	var raw json.RawMessage
	if err := r.client.Do(ctx, r.sess, r.op(action), http.MethodPost, endpoint, rec, &raw); err != nil {
		var zero T
		return zero, err
	}
	if out, ok := decodeOne[T](raw); ok {
		return out, nil
	}
	return rec, nil
}

// Delete removes id with the configured method: POST with {"id": id} or
// DELETE on the endpoint followed by the escaped id.
func (r *Resource[T]) Delete(ctx context.Context, id string) error {
	if id == "" {
		return apperrors.New(apperrors.ErrClassValidation, r.op("delete"), "Identifiant manquant.")
	}
	if r.entity.DeleteEndpoint == "" {
		return apperrors.New(apperrors.ErrClassConfig, r.op("delete"), "Action non disponible pour cette entité.")
	}
	if strings.EqualFold(r.entity.DeleteMethod, http.MethodDelete) {
		endpoint := strings.TrimRight(r.entity.DeleteEndpoint, "/") + "/" + url.PathEscape(id)
		return r.client.Do(ctx, r.sess, r.op("delete"), http.MethodDelete, endpoint, nil, nil)
	}
	return r.client.Do(ctx, r.sess, r.op("delete"), http.MethodPost, r.entity.DeleteEndpoint,
		map[string]string{"id": id}, nil)
}

var (
	listKeys  = []string{"data", "items", "results"}
	errNoList = errors.New("response holds no list")
)

func decodeList[T any](raw json.RawMessage) ([]T, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, nil
	}
	if raw[0] == '[' {
		var rows []T
		err := json.Unmarshal(raw, &rows)
		return rows, err
	}
	var wrapper map[string]json.RawMessage
	if err := json.Unmarshal(raw, &wrapper); err != nil {
		return nil, err
	}
	for _, key := range listKeys {
		if inner, ok := wrapper[key]; ok {
			return decodeList[T](inner)
		}
	}
	return nil, errNoList
}

func decodeOne[T datatable.Record](raw json.RawMessage) (T, bool) {
	var zero T
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || raw[0] != '{' {
		return zero, false
	}
	var wrapper map[string]json.RawMessage
	if err := json.Unmarshal(raw, &wrapper); err != nil {
		return zero, false
	}
	if inner, ok := wrapper["data"]; ok {
		return decodeOne[T](inner)
	}
	var out T
	if err := json.Unmarshal(raw, &out); err != nil || out.RecordID() == "" {
		return zero, false
	}
	return out, true
}
