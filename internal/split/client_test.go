// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package split

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, h http.Handler, opts ...Option) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	opts = append([]Option{
		WithBaseURL(srv.URL),
		WithRetryWait(time.Millisecond, 5*time.Millisecond),
		WithRetryMax(0),
	}, opts...)
	c, err := NewClient("test-key", opts...)
	require.NoError(t, err)
	return c
}

func writeJSON(t *testing.T, w http.ResponseWriter, v any) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	require.NoError(t, json.NewEncoder(w).Encode(v))
}

func TestNewClient_MissingKey(t *testing.T) {
	_, err := NewClient("  ")
	assert.ErrorIs(t, err, ErrMissingAPIKey)
}

func TestAPIKeyFromEnv(t *testing.T) {
	t.Setenv("SPLIT_ADMIN_API_KEY", "")
	t.Setenv("ADMIN_API_KEY", "legacy")
	assert.Equal(t, "legacy", APIKeyFromEnv())

	t.Setenv("SPLIT_ADMIN_API_KEY", "primary")
	assert.Equal(t, "primary", APIKeyFromEnv())
}

func TestWorkspaces_PaginatesAndAuthenticates(t *testing.T) {
	all := []Workspace{}
	for i := 0; i < 5; i++ {
		all = append(all, Workspace{ID: fmt.Sprintf("ws%d", i), Name: fmt.Sprintf("W%d", i)})
	}

	n := len(all)
	var calls int32
	mux := http.NewServeMux()
	mux.HandleFunc("/workspaces", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		end := offset + limit
		if end > len(all) {
			end = len(all)
		}
		writeJSON(t, w, page[Workspace]{
			Objects:    all[offset:end],
			Offset:     offset,
			Limit:      limit,
			TotalCount: &n,
		})
	})

	c := newTestClient(t, mux, WithPageSize(2))
	got, err := c.Workspaces(context.Background())
	require.NoError(t, err)
	assert.Equal(t, all, got)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestEnvironments(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/environments/ws/ws1", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, []Environment{
			{ID: "e1", Name: "Production", Production: true},
			{ID: "e2", Name: "Staging"},
		})
	})

	c := newTestClient(t, mux)
	envs, err := c.Environments(context.Background(), "ws1")
	require.NoError(t, err)
	require.Len(t, envs, 2)
	assert.True(t, envs[0].Production)

	env, err := c.FindEnvironment(context.Background(), "ws1", "Staging")
	require.NoError(t, err)
	assert.Equal(t, "e2", env.ID)

	_, err = c.FindEnvironment(context.Background(), "ws1", "QA")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSegmentKeys(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/segments/e1/beta_users/keys", func(w http.ResponseWriter, r *http.Request) {
		offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
		resp := map[string]any{"count": 3, "offset": offset}
		switch offset {
		case 0:
			resp["keys"] = []map[string]string{{"key": "a"}, {"key": "b"}}
		default:
			resp["keys"] = []map[string]string{{"key": "c"}}
		}
		writeJSON(t, w, resp)
	})

	c := newTestClient(t, mux, WithPageSize(2))
	keys, err := c.SegmentKeys(context.Background(), "e1", "beta_users")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, keys)
}

func TestUploadSegmentKeys(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/segments/e1/holdout_users/uploadKeys", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "true", r.URL.Query().Get("replace"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var body uploadKeysBody
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, []string{"k1", "k2"}, body.Keys)
		assert.Equal(t, "sync", body.Comment)
		w.WriteHeader(http.StatusOK)
	})

	c := newTestClient(t, mux)
	err := c.UploadSegmentKeys(context.Background(), "e1", "holdout_users", []string{"k1", "k2"}, true, "sync")
	assert.NoError(t, err)
}

func TestSplitDefinitionWrites(t *testing.T) {
	type call struct {
		method, path, comment string
		body                  DefinitionRequest
	}
	seen := make(chan call, 2)
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body DefinitionRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		seen <- call{r.Method, r.URL.EscapedPath(), r.URL.Query().Get("comment"), body}
		writeJSON(t, w, map[string]string{"name": "checkout"})
	})

	def := SplitDefinition{
		ID:                "d1",
		Name:              "checkout",
		Environment:       Ref{ID: "e1", Name: "Prod"},
		Treatments:        []Treatment{{Name: "on", Keys: []string{"k1"}}, {Name: "off"}},
		DefaultTreatment:  "off",
		TrafficAllocation: 50,
		DefaultRule:       []Bucket{{Treatment: "off", Size: 100}},
	}

	c := newTestClient(t, h)
	ctx := context.Background()
	require.NoError(t, c.CreateSplitDefinition(ctx, "ws1", "e2", "checkout", def.Request(), "copied"))
	require.NoError(t, c.UpdateSplitDefinition(ctx, "ws1", "e2", "checkout", def.Request(), ""))

	created := <-seen
	assert.Equal(t, http.MethodPost, created.method)
	assert.Equal(t, "/splits/ws/ws1/checkout/environments/e2", created.path)
	assert.Equal(t, "copied", created.comment)
	assert.Equal(t, def.Request(), created.body)

	updated := <-seen
	assert.Equal(t, http.MethodPut, updated.method)
	assert.Equal(t, 50, updated.body.TrafficAllocation)
	assert.Empty(t, updated.comment)
}

func TestActivateSegment(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/segments/e2/beta", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/segments/e9/beta", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	c := newTestClient(t, mux)
	require.NoError(t, c.ActivateSegment(context.Background(), "e2", "beta"))
	assert.ErrorIs(t, c.ActivateSegment(context.Background(), "e9", "beta"), ErrNotFound)
}

func TestUsers_MarkerPagination(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/users", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "ACTIVE", r.URL.Query().Get("status"))
		switch r.URL.Query().Get("after") {
		case "":
			writeJSON(t, w, userPage{Data: []User{{ID: "u1", Email: "a@x.com"}}, NextMarker: "m1"})
		case "m1":
			writeJSON(t, w, userPage{Data: []User{{ID: "u2", Email: "B@x.com"}}})
		default:
			t.Errorf("unexpected marker %q", r.URL.Query().Get("after"))
		}
	})

	c := newTestClient(t, mux)
	users, err := c.Users(context.Background(), "active")
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, "u2", users[1].ID)
}

func TestFindUser_CaseInsensitive(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/users", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, userPage{Data: []User{{ID: "u1", Email: "Alice@X.com"}}})
	})

	c := newTestClient(t, mux)
	u, err := c.FindUser(context.Background(), "alice@x.com")
	require.NoError(t, err)
	assert.Equal(t, "u1", u.ID)

	_, err = c.FindUser(context.Background(), "bob@x.com")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestAPIError(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/groups/g1", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		http.Error(w, `{"message":"no such group"}`, http.StatusNotFound)
	})
	mux.HandleFunc("/groups", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})

	c := newTestClient(t, mux)

	err := c.DeleteGroup(context.Background(), "g1")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotFound)
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusNotFound, apiErr.StatusCode)
	assert.Contains(t, apiErr.Error(), "no such group")

	_, err = c.Groups(context.Background())
	assert.ErrorIs(t, err, ErrUnauthorized)
	assert.NotErrorIs(t, err, ErrNotFound)
}

func TestRetryOnRateLimit(t *testing.T) {
	one := 1
	var calls int32
	mux := http.NewServeMux()
	mux.HandleFunc("/groups", func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		writeJSON(t, w, page[Group]{Objects: []Group{{ID: "g1", Name: "admins"}}, TotalCount: &one})
	})

	c := newTestClient(t, mux, WithRetryMax(3))
	groups, err := c.Groups(context.Background())
	require.NoError(t, err)
	require.Len(t, groups, 1)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestRetryExhausted(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/groups", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = io.WriteString(w, "slow down")
	})

	c := newTestClient(t, mux, WithRetryMax(1))
	_, err := c.Groups(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrRateLimited)
	assert.Contains(t, err.Error(), "slow down")
}

func TestDeletePaths(t *testing.T) {
	seen := make(chan string, 4)
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		seen <- r.URL.EscapedPath()
		w.WriteHeader(http.StatusNoContent)
	})

	c := newTestClient(t, h)
	ctx := context.Background()
	require.NoError(t, c.DeleteSplit(ctx, "ws1", "new checkout"))
	require.NoError(t, c.DeleteSegment(ctx, "ws1", "beta"))
	require.NoError(t, c.DeleteEnvironment(ctx, "ws1", "e1"))
	require.NoError(t, c.DeleteGroup(ctx, "g1"))

	assert.Equal(t, "/splits/ws/ws1/new%20checkout", <-seen)
	assert.Equal(t, "/segments/ws/ws1/beta", <-seen)
	assert.Equal(t, "/environments/ws/ws1/e1", <-seen)
	assert.Equal(t, "/groups/g1", <-seen)
}

func TestPaginate_StopsOnError(t *testing.T) {
	boom := errors.New("boom")
	calls := 0
	_, err := Paginate(context.Background(), 2, func(_ context.Context, opts ListOptions) ([]int, int, error) {
		calls++
		if opts.Offset > 0 {
			return nil, 0, boom
		}
		return []int{1, 2}, 10, nil
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 2, calls)
}

func TestPaginate_UnknownTotal(t *testing.T) {
	data := []int{1, 2, 3, 4, 5}
	got, err := Paginate(context.Background(), 2, func(_ context.Context, opts ListOptions) ([]int, int, error) {
		end := opts.Offset + opts.Limit
		if end > len(data) {
			end = len(data)
		}
		return data[opts.Offset:end], -1, nil
	})
	require.NoError(t, err)
	assert.Equal(t, data, got)
}

func TestPaginate_ZeroTotalIsUnknown(t *testing.T) {
	data := []int{1, 2, 3, 4, 5}
	got, err := Paginate(context.Background(), 2, func(_ context.Context, opts ListOptions) ([]int, int, error) {
		end := min(opts.Offset+opts.Limit, len(data))
		return data[opts.Offset:end], 0, nil
	})
	require.NoError(t, err)
	assert.Equal(t, data, got)
}

func TestPaginate_ServerCapsLimit(t *testing.T) {
	const total, limitCap = 120, 50
	calls := 0
	got, err := Paginate(context.Background(), 100, func(_ context.Context, opts ListOptions) ([]int, int, error) {
		calls++
		end := min(opts.Offset+min(opts.Limit, limitCap), total)
		items := make([]int, 0, end-opts.Offset)
		for i := opts.Offset; i < end; i++ {
			items = append(items, i)
		}
		return items, total, nil
	})
	require.NoError(t, err)
	assert.Len(t, got, total)
	assert.Equal(t, 3, calls)
}

func TestSegmentKeys_MissingCount(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/segments/e1/beta_users/keys", func(w http.ResponseWriter, r *http.Request) {
		offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
		keys := []map[string]string{}
		switch offset {
		case 0:
			keys = []map[string]string{{"key": "a"}, {"key": "b"}}
		case 2:
			keys = []map[string]string{{"key": "c"}, {"key": "d"}}
		}
		writeJSON(t, w, map[string]any{"keys": keys, "offset": offset})
	})

	c := newTestClient(t, mux, WithPageSize(2))
	keys, err := c.SegmentKeys(context.Background(), "e1", "beta_users")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c", "d"}, keys)
}

func TestPaginate_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Paginate(ctx, 2, func(context.Context, ListOptions) ([]int, int, error) {
		return []int{1}, 1, nil
	})
	assert.ErrorIs(t, err, context.Canceled)
}
