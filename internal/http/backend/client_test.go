package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/bwise1/bookgroups/internal/model"
	"github.com/bwise1/bookgroups/util/tracing"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordedRequest struct {
	Method string
	Path   string
	Query  map[string]string
	Header http.Header
	Body   []byte
}

type fakeAPI struct {
	t      *testing.T
	mu     sync.Mutex
	reqs   []recordedRequest
	server *httptest.Server
}

// newFakeAPI serves handler and records every request it receives.
func newFakeAPI(t *testing.T, handler http.HandlerFunc) (*fakeAPI, *Client) {
	t.Helper()

	f := &fakeAPI{t: t}
	f.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		q := map[string]string{}
		for k := range r.URL.Query() {
			q[k] = r.URL.Query().Get(k)
		}
		f.mu.Lock()
		f.reqs = append(f.reqs, recordedRequest{Method: r.Method, Path: r.URL.Path, Query: q, Header: r.Header.Clone(), Body: body})
		f.mu.Unlock()
		handler(w, r)
	}))
	t.Cleanup(f.server.Close)

	client, err := NewClient(f.server.URL, 2*time.Second)
	require.NoError(t, err)
	client.RequestSource = "test-suite"
	return f, client
}

func (f *fakeAPI) requests() []recordedRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]recordedRequest(nil), f.reqs...)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func groupFixture(n int, start int) []model.Group {
	groups := make([]model.Group, 0, n)
	for i := 0; i < n; i++ {
		id := start + i
		groups = append(groups, model.Group{
			ID:                model.GroupID(id),
			Name:              fmt.Sprintf("group %d", id),
			RecruitmentStatus: true,
			MeetingType:       model.MeetingOnline,
			ParticipantLimit:  10,
		})
	}
	return groups
}

func TestNewClient(t *testing.T) {
	_, err := NewClient("not a url", time.Second)
	assert.Error(t, err)

	c, err := NewClient("https://api.example.com/v1/", 0)
	require.NoError(t, err)
	assert.Equal(t, "/v1", c.BaseURL.Path)
	assert.Equal(t, defaultTimeout, c.HTTPClient.Timeout)
	assert.Equal(t, DefaultPageLimit, c.PageLimit)
}

func TestClient_Headers(t *testing.T) {
	f, client := newFakeAPI(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, model.Page[model.Group]{Documents: groupFixture(1, 1)})
	})

	ctx := WithToken(context.Background(), "tok-123")
	ctx = tracing.WithContext(ctx, tracing.Context{RequestID: "req-1", RequestSource: "web"})

	_, err := client.FindGroups(ctx, 1)
	require.NoError(t, err)

	reqs := f.requests()
	require.Len(t, reqs, 1)
	assert.Equal(t, "Bearer tok-123", reqs[0].Header.Get("Authorization"))
	assert.Equal(t, "req-1", reqs[0].Header.Get("X-Request-ID"))
	assert.Equal(t, "test-suite", reqs[0].Header.Get("X-Request-Source"))
	assert.Equal(t, "application/json", reqs[0].Header.Get("Accept"))
}

func TestClient_FindGroups(t *testing.T) {
	f, client := newFakeAPI(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("page") {
		case "1":
			writeJSON(w, http.StatusOK, model.Page[model.Group]{Documents: groupFixture(5, 1), IsEnd: false})
		case "2":
			writeJSON(w, http.StatusOK, model.Page[model.Group]{Documents: groupFixture(2, 6), IsEnd: true})
		default:
			w.WriteHeader(http.StatusBadRequest)
		}
	})

	first, err := client.FindGroups(context.Background(), 1)
	require.NoError(t, err)
	assert.Len(t, first.Documents, 5)
	assert.False(t, first.IsEnd)

	second, err := client.FindGroups(context.Background(), 2)
	require.NoError(t, err)
	assert.Len(t, second.Documents, 2)
	assert.True(t, second.IsEnd)

	reqs := f.requests()
	require.Len(t, reqs, 2)
	assert.Equal(t, http.MethodGet, reqs[0].Method)
	assert.Equal(t, "/groups/find", reqs[0].Path)
	assert.Equal(t, map[string]string{"page": "1", "limit": "5"}, reqs[0].Query)
	assert.Equal(t, "2", reqs[1].Query["page"])
}

func TestClient_FindGroups_Failures(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
		code    ErrorCode
		message string
	}{
		{
			name: "server error",
			handler: func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "database exploded", http.StatusInternalServerError)
			},
			code:    ErrorCodeRequestFailed,
			message: MsgGroupsFailed,
		},
		{
			name: "null payload",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte("null"))
			},
			code:    ErrorCodeEmptyResponse,
			message: MsgGroupsNotFound,
		},
		{
			name: "empty body",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
			},
			code:    ErrorCodeEmptyResponse,
			message: MsgGroupsNotFound,
		},
		{
			name: "malformed json",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte("{documents:"))
			},
			code:    ErrorCodeRequestFailed,
			message: MsgGroupsFailed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, client := newFakeAPI(t, tt.handler)

			_, err := client.FindGroups(context.Background(), 1)
			require.Error(t, err)
			assert.Equal(t, tt.message, err.Error())
			assert.Equal(t, tt.code, CodeOf(err))
		})
	}
}

func TestClient_GetGroup(t *testing.T) {
	f, client := newFakeAPI(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/groups/7":
			g := groupFixture(1, 7)[0]
			g.Members = []model.Member{{UserID: "u1", Nickname: "mina"}}
			writeJSON(w, http.StatusOK, map[string]interface{}{"group": g})
		case "/groups/8":
			writeJSON(w, http.StatusOK, map[string]interface{}{"group": nil})
		default:
			http.Error(w, `{"message":"no such group"}`, http.StatusNotFound)
		}
	})

	g, err := client.GetGroup(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, model.GroupID(7), g.ID)
	require.Len(t, g.Members, 1)
	assert.Equal(t, "mina", g.Members[0].Nickname)

	_, err = client.GetGroup(context.Background(), 8)
	require.Error(t, err)
	assert.Equal(t, MsgGroupDetailNotFound, err.Error())

	_, err = client.GetGroup(context.Background(), 404)
	require.Error(t, err)
	assert.Equal(t, MsgGroupDetailNotFound, err.Error())
	assert.True(t, IsNotFound(err))
	assert.NotContains(t, err.Error(), "404")

	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr), "cause stays reachable for logging")
	assert.Equal(t, http.StatusNotFound, statusErr.StatusCode)

	assert.Len(t, f.requests(), 3)
}

func TestClient_GetGroup_NetworkError(t *testing.T) {
	f, client := newFakeAPI(t, func(w http.ResponseWriter, r *http.Request) {})
	f.server.Close()

	_, err := client.GetGroup(context.Background(), 1)
	require.Error(t, err)
	assert.Equal(t, MsgGroupDetailFailed, err.Error())
	assert.Equal(t, ErrorCodeRequestFailed, CodeOf(err))
}

func TestClient_CreateGroup(t *testing.T) {
	form := model.GroupForm{
		Name:             "Happy readers",
		MeetingType:      model.MeetingOffline,
		Day:              "Monday",
		Time:             "15:00",
		Region:           "Seoul",
		Description:      "Read and share",
		ParticipantLimit: 20,
		OpenChatLink:     "https://open.kakao.com/o/abc",
	}

	t.Run("string id", func(t *testing.T) {
		f, client := newFakeAPI(t, func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusCreated, map[string]string{"group_id": "17"})
		})

		id, err := client.CreateGroup(context.Background(), form)
		require.NoError(t, err)
		assert.Equal(t, model.GroupID(17), id)

		reqs := f.requests()
		require.Len(t, reqs, 1)
		assert.Equal(t, http.MethodPost, reqs[0].Method)
		assert.Equal(t, "/groups", reqs[0].Path)
		assert.Equal(t, "application/json", reqs[0].Header.Get("Content-Type"))

		var sent map[string]interface{}
		require.NoError(t, json.Unmarshal(reqs[0].Body, &sent))
		assert.Equal(t, true, sent["recruitment_status"])
		assert.Equal(t, "Happy readers", sent["name"])
		assert.EqualValues(t, 20, sent["participant_limit"])
		assert.Equal(t, "offline", sent["meeting_type"])
	})

	t.Run("missing id", func(t *testing.T) {
		_, client := newFakeAPI(t, func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusCreated, map[string]string{})
		})

		_, err := client.CreateGroup(context.Background(), form)
		require.Error(t, err)
		assert.Equal(t, MsgCreateMissingID, err.Error())
	})

	t.Run("rejected", func(t *testing.T) {
		_, client := newFakeAPI(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
		})

		_, err := client.CreateGroup(context.Background(), form)
		require.Error(t, err)
		assert.Equal(t, MsgCreateFailed, err.Error())
		assert.Equal(t, ErrorCodeUnauthorized, CodeOf(err))
	})
}

// Membership changes report failures to the caller instead of only logging them.
func TestClient_Membership_ReportsFailures(t *testing.T) {
	f, client := newFakeAPI(t, func(w http.ResponseWriter, r *http.Request) {})
	f.server.Close()

	err := client.JoinGroup(context.Background(), 3)
	require.Error(t, err)
	assert.Equal(t, MsgJoinFailed, err.Error())

	err = client.LeaveGroup(context.Background(), 3)
	require.Error(t, err)
	assert.Equal(t, MsgLeaveFailed, err.Error())
}

func TestClient_Membership(t *testing.T) {
	f, client := newFakeAPI(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	require.NoError(t, client.JoinGroup(context.Background(), 3))
	require.NoError(t, client.LeaveGroup(context.Background(), 3))
	require.NoError(t, client.DeleteMember(context.Background(), 3, "u9"))

	reqs := f.requests()
	require.Len(t, reqs, 3)
	assert.Equal(t, "/groups/user/3/join", reqs[0].Path)
	assert.Equal(t, http.MethodPost, reqs[0].Method)
	assert.Equal(t, "/groups/user/3/leave", reqs[1].Path)
	assert.Equal(t, "/groups/3/delete-user/u9", reqs[2].Path)
	assert.Equal(t, http.MethodDelete, reqs[2].Method)

	err := client.DeleteMember(context.Background(), 3, "")
	assert.Equal(t, ErrorCodeInvalidArgument, CodeOf(err))
	assert.Len(t, f.requests(), 3, "invalid arguments never reach the network")
}

func TestClient_UpdateGroup(t *testing.T) {
	f, client := newFakeAPI(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	err := client.UpdateGroup(context.Background(), 5, model.GroupPatch{})
	assert.Equal(t, ErrorCodeInvalidArgument, CodeOf(err))
	assert.Empty(t, f.requests())

	closed := false
	require.NoError(t, client.UpdateGroup(context.Background(), 5, model.GroupPatch{RecruitmentStatus: &closed}))

	reqs := f.requests()
	require.Len(t, reqs, 1)
	assert.Equal(t, http.MethodPatch, reqs[0].Method)
	assert.Equal(t, "/groups/5", reqs[0].Path)
	assert.JSONEq(t, `{"recruitment_status": false}`, string(reqs[0].Body))
}

func TestClient_UserGroups(t *testing.T) {
	f, client := newFakeAPI(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/groups/user-group" {
			writeJSON(w, http.StatusOK, groupFixture(2, 1))
			return
		}
		_, _ = w.Write([]byte("null"))
	})

	mine, err := client.UserGroups(context.Background(), "")
	require.NoError(t, err)
	assert.Len(t, mine, 2)

	theirs, err := client.UserGroups(context.Background(), "u42")
	require.NoError(t, err)
	assert.NotNil(t, theirs)
	assert.Empty(t, theirs)

	reqs := f.requests()
	require.Len(t, reqs, 2)
	assert.Equal(t, "/groups/user-group/u42", reqs[1].Path)
}

func TestClient_SearchBooks(t *testing.T) {
	f, client := newFakeAPI(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, model.Page[model.Book]{
			Documents: []model.Book{{Title: "Demian", ISBN: "1"}},
			IsEnd:     true,
		})
	})

	_, err := client.SearchBooks(context.Background(), "   ", 1)
	assert.Equal(t, ErrorCodeInvalidArgument, CodeOf(err))
	assert.Empty(t, f.requests())

	page, err := client.SearchBooks(context.Background(), "hesse", 0)
	require.NoError(t, err)
	assert.True(t, page.IsEnd)
	require.Len(t, page.Documents, 1)

	reqs := f.requests()
	require.Len(t, reqs, 1)
	assert.Equal(t, "/books/search", reqs[0].Path)
	assert.Equal(t, map[string]string{"query": "hesse", "page": "1"}, reqs[0].Query)
}

func TestClient_HomeFeed(t *testing.T) {
	_, client := newFakeAPI(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/groups/best":
			writeJSON(w, http.StatusOK, groupFixture(3, 1))
		case "/bookshelf/best":
			writeJSON(w, http.StatusOK, []model.BookshelfPreview{{MemberID: "1", Nickname: "reader", Images: []string{"covers/a"}}})
		}
	})

	best, err := client.BestGroups(context.Background())
	require.NoError(t, err)
	assert.Len(t, best, 3)

	shelves, err := client.BestBookshelves(context.Background())
	require.NoError(t, err)
	require.Len(t, shelves, 1)
	assert.Equal(t, "reader", shelves[0].Nickname)
}

func TestClient_ContextCancelled(t *testing.T) {
	release := make(chan struct{})
	_, client := newFakeAPI(t, func(w http.ResponseWriter, r *http.Request) {
		<-release
	})
	defer close(release)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.FindGroups(ctx, 1)
	require.Error(t, err)
	assert.Equal(t, MsgGroupsFailed, err.Error())
	assert.True(t, errors.Is(err, context.Canceled))
}
