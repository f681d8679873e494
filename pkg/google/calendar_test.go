package google

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"

	"github.com/harrisonrobin/studyplan/pkg/index"
	"github.com/harrisonrobin/studyplan/pkg/model"
	"github.com/harrisonrobin/studyplan/pkg/util"
)

// fakeCalendar serves the subset of the Calendar v3 API the client uses.
type fakeCalendar struct {
	mu      sync.Mutex
	events  map[string]*calendar.Event
	nextID  int
	inserts int
	patches int
}

func (f *fakeCalendar) handler(t *testing.T) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/users/me/calendarList", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("pageToken") == "" {
			json.NewEncoder(w).Encode(calendar.CalendarList{
				Items:         []*calendar.CalendarListEntry{{Id: "other-id", Summary: "Work"}},
				NextPageToken: "p2",
			})
			return
		}
		json.NewEncoder(w).Encode(calendar.CalendarList{Items: []*calendar.CalendarListEntry{
			{Id: "cal1", Summary: "Study"},
		}})
	})

	mux.HandleFunc("/calendars/cal1/events", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		switch r.Method {
		case http.MethodGet:
			want := strings.TrimPrefix(r.URL.Query().Get("privateExtendedProperty"), util.KeyProperty+"=")
			var items []*calendar.Event
			for _, ev := range f.events {
				if ev.ExtendedProperties != nil && ev.ExtendedProperties.Private[util.KeyProperty] == want {
					items = append(items, ev)
				}
			}
			json.NewEncoder(w).Encode(calendar.Events{Items: items})
		case http.MethodPost:
			var ev calendar.Event
			require.NoError(t, json.NewDecoder(r.Body).Decode(&ev))
			f.nextID++
			f.inserts++
			ev.Id = fmt.Sprintf("ev%d", f.nextID)
			f.events[ev.Id] = &ev
			json.NewEncoder(w).Encode(ev)
		default:
			http.Error(w, "unexpected method", http.StatusMethodNotAllowed)
		}
	})

	mux.HandleFunc("/calendars/cal1/events/", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		id := strings.TrimPrefix(r.URL.Path, "/calendars/cal1/events/")
		ev, ok := f.events[id]
		if !ok {
			http.Error(w, `{"error":{"code":404,"message":"Not Found"}}`, http.StatusNotFound)
			return
		}
		switch r.Method {
		case http.MethodGet:
			json.NewEncoder(w).Encode(ev)
		case http.MethodPatch:
			var patch calendar.Event
			require.NoError(t, json.NewDecoder(r.Body).Decode(&patch))
			f.patches++
			if patch.Summary != "" {
				ev.Summary = patch.Summary
			}
			if patch.Start != nil {
				ev.Start, ev.End = patch.Start, patch.End
			}
			json.NewEncoder(w).Encode(ev)
		case http.MethodDelete:
			delete(f.events, id)
			w.WriteHeader(http.StatusNoContent)
		default:
			http.Error(w, "unexpected method", http.StatusMethodNotAllowed)
		}
	})
	return mux
}

func newTestService(t *testing.T) (*calendar.Service, *fakeCalendar) {
	t.Helper()
	fake := &fakeCalendar{events: make(map[string]*calendar.Event)}
	ts := httptest.NewServer(fake.handler(t))
	t.Cleanup(ts.Close)

	srv, err := calendar.NewService(context.Background(),
		option.WithEndpoint(ts.URL+"/"),
		option.WithHTTPClient(ts.Client()),
	)
	require.NoError(t, err)
	return srv, fake
}

func TestResolveCalendar(t *testing.T) {
	srv, _ := newTestService(t)
	ctx := context.Background()

	id, err := ResolveCalendar(ctx, srv, "Study")
	require.NoError(t, err)
	assert.Equal(t, "cal1", id)

	id, err = ResolveCalendar(ctx, srv, "other-id")
	require.NoError(t, err)
	assert.Equal(t, "other-id", id)

	id, err = ResolveCalendar(ctx, srv, "primary")
	require.NoError(t, err)
	assert.Equal(t, "primary", id)

	_, err = ResolveCalendar(ctx, srv, "Missing")
	assert.ErrorIs(t, err, ErrCalendarNotFound)
}

func TestSyncEventCreatesThenPatches(t *testing.T) {
	srv, fake := newTestService(t)
	ctx := context.Background()

	idx, err := index.NewEventIndex(filepath.Join(t.TempDir(), "events.json"))
	require.NoError(t, err)
	client := NewCalendarClient(srv, "cal1", idx)

	entry := model.Entry{Subject: "Math", Date: time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC), Hours: 2}
	block := util.BlockTimes([]model.Entry{entry}, time.UTC, 18*time.Hour)[0]
	key := block.Key

	ev, action, err := client.SyncEvent(ctx, key, util.ConvertEntryToCalendarEvent(block, "2"))
	require.NoError(t, err)
	assert.Equal(t, Created, action)
	assert.Equal(t, ev.Id, idx.Get(key))

	_, action, err = client.SyncEvent(ctx, key, util.ConvertEntryToCalendarEvent(block, "2"))
	require.NoError(t, err)
	assert.Equal(t, Unchanged, action)

	moved := util.BlockTimes([]model.Entry{entry}, time.UTC, 7*time.Hour)[0]
	updated, action, err := client.SyncEvent(ctx, key, util.ConvertEntryToCalendarEvent(moved, "2"))
	require.NoError(t, err)
	assert.Equal(t, Updated, action)
	assert.Equal(t, "2025-01-10T07:00:00Z", updated.Start.DateTime)

	assert.Equal(t, 1, fake.inserts)
	assert.Equal(t, 1, fake.patches)

	require.NoError(t, client.DeleteEvent(ctx, ev.Id))
	found, err := client.GetEventByKey(ctx, key)
	require.NoError(t, err)
	assert.Nil(t, found)
}
