package rest

import (
	"context"
	"net/http"
	"net/url"

	"github.com/bwise1/bookgroups/internal/http/backend"
	"github.com/bwise1/bookgroups/internal/model"
	"github.com/bwise1/bookgroups/internal/query"
	"github.com/bwise1/bookgroups/internal/scroll"
	"github.com/bwise1/bookgroups/internal/session"
	"github.com/bwise1/bookgroups/internal/view"
	"github.com/bwise1/bookgroups/pkg/logger"
	"github.com/bwise1/bookgroups/util"
	"github.com/bwise1/bookgroups/util/tracing"
	"github.com/bwise1/bookgroups/util/values"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func (api *API) RecruitRoutes() chi.Router {
	mux := chi.NewRouter()
	mux.Get("/", api.RecruitPage)
	mux.Get("/next", api.RecruitNext)
	mux.With(api.RequireLoginPage).Get("/detail/{groupId}", api.DetailPage)
	mux.With(api.RequireLoginPage, SameOrigin).Post("/detail/{groupId}/join", api.membershipForm(true))
	mux.With(api.RequireLoginPage, SameOrigin).Post("/detail/{groupId}/leave", api.membershipForm(false))
	return mux
}

func (api *API) SearchRoutes() chi.Router {
	mux := chi.NewRouter()
	mux.Get("/", api.SearchPage)
	mux.Get("/next", api.SearchNext)
	return mux
}

// HomePage prefetches both feed sections concurrently and renders them from
// the dehydrated snapshot. A failed section renders as unavailable.
func (api *API) HomePage(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	cache := api.Deps.Cache

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		query.Prefetch(gctx, cache, keyBestGroup, api.Deps.Backend.BestGroups)
		return nil
	})
	g.Go(func() error {
		query.Prefetch(gctx, cache, keyBestBookshelf, api.Deps.Backend.BestBookshelves)
		return nil
	})
	_ = g.Wait()

	snap := cache.Dehydrate(keyBestGroup, keyBestBookshelf)
	page := view.HomePage{Page: api.basePage(ctx, "Reading groups")}
	page.BestGroups, page.BestGroupsErr = section[[]model.Group](snap, keyBestGroup)
	page.Bookshelves, page.BookshelvesErr = section[[]model.BookshelfPreview](snap, keyBestBookshelf)

	api.render(w, r, http.StatusOK, view.PageHome, &page.Page, &page, snap)
}

// DetailPage renders one group from its single prefetched query.
func (api *API) DetailPage(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, err := model.ParseGroupID(chi.URLParam(r, "groupId"))
	if err != nil {
		api.renderError(w, r, http.StatusNotFound, backend.MsgGroupDetailNotFound)
		return
	}

	page := view.DetailPage{Page: api.basePage(ctx, "Reading group")}
	status := http.StatusOK

	group, err := api.GroupDetail(ctx, id)
	if err != nil {
		page.Error = err.Error()
		status = util.StatusCode(backendStatus(err))
	} else {
		page.Title = group.Name
		page.Group = group
		page.Leader, page.HasLeader = group.Leader()
	}

	// the snapshot is published under the shared detail key; the viewer
	// scope only exists inside the process cache
	snap := query.DehydratedState{}
	if st, ok := api.Deps.Cache.GetState(detailCacheKey(ctx, id)); ok {
		snap.Queries = append(snap.Queries, query.DehydratedQuery{QueryKey: keyRecruitDetail(id), State: st})
	}

	api.render(w, r, status, view.PageDetail, &page.Page, &page, snap)
}

// membershipForm handles the join and leave buttons of the detail page and
// sends the browser back to the refreshed page.
func (api *API) membershipForm(join bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := model.ParseGroupID(chi.URLParam(r, "groupId"))
		if err != nil {
			api.renderError(w, r, http.StatusNotFound, backend.MsgGroupDetailNotFound)
			return
		}

		status, message, err := api.MembershipHelper(r.Context(), id, join)
		if err != nil {
			api.renderError(w, r, util.StatusCode(status), message)
			return
		}
		http.Redirect(w, r, "/recruit/detail/"+id.String(), http.StatusSeeOther)
	}
}

func (api *API) groupList(ctx context.Context) *scroll.List[model.Group] {
	sess, _ := session.FromContext(ctx)
	return scroll.NewList[model.Group]("group", "/recruit", api.Deps.Cache, pageCounter(sess),
		func(ctx context.Context, _ string, page int) (model.Page[model.Group], error) {
			return api.Deps.Backend.FindGroups(ctx, page)
		})
}

// bookList mounts the book search list. A keyword in the query string
// replaces the one kept in the session.
func (api *API) bookList(r *http.Request) *scroll.List[model.Book] {
	sess, _ := session.FromContext(r.Context())

	var keyword string
	if sess != nil {
		keyword = sess.SearchKeyword
	}
	list := scroll.NewList[model.Book]("book", "/search", api.Deps.Cache, pageCounter(sess), api.Deps.Backend.SearchBooks,
		scroll.RequireKeyword(), scroll.WithKeyword(keyword))

	if q := r.URL.Query(); q.Has("keyword") {
		if list.SetKeyword(q.Get("keyword")) && sess != nil {
			sess.SearchKeyword = list.Keyword()
			sess.ScrollPosition = 0
		}
	}
	return list
}

func (api *API) RecruitPage(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	list := api.groupList(ctx)

	page := view.ListPage[model.Group]{Page: api.basePage(ctx, "Recruiting groups"), NextURL: "/recruit/next"}
	mountList(ctx, list, &page)

	snap := query.DehydratedState{}
	if st, ok := api.Deps.Cache.GetState(list.Key()); ok {
		snap.Queries = append(snap.Queries, query.DehydratedQuery{QueryKey: list.Key(), State: st})
	}
	api.render(w, r, http.StatusOK, view.PageGroups, &page.Page, &page, snap)
}

func (api *API) RecruitNext(w http.ResponseWriter, r *http.Request) {
	nextBatch(api, w, r, api.groupList(r.Context()), view.FragmentGroups)
}

func (api *API) SearchPage(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	list := api.bookList(r)

	page := view.ListPage[model.Book]{
		Page:    api.basePage(ctx, "Search books"),
		Keyword: list.Keyword(),
		NextURL: "/search/next?keyword=" + url.QueryEscape(list.Keyword()),
	}
	mountList(ctx, list, &page)

	snap := query.DehydratedState{}
	if st, ok := api.Deps.Cache.GetState(list.Key()); ok {
		snap.Queries = append(snap.Queries, query.DehydratedQuery{QueryKey: list.Key(), State: st})
	}
	api.render(w, r, http.StatusOK, view.PageBooks, &page.Page, &page, snap)
}

func (api *API) SearchNext(w http.ResponseWriter, r *http.Request) {
	nextBatch(api, w, r, api.bookList(r), view.FragmentBooks)
}

func mountList[T any](ctx context.Context, list *scroll.List[T], page *view.ListPage[T]) {
	if err := list.Load(ctx); err != nil {
		page.Error = err.Error()
	}
	if sess, ok := session.FromContext(ctx); ok {
		page.ScrollPosition = sess.ScrollPosition
	}
	page.Items = list.Items()
	page.State = string(list.State())
	page.HasNext = list.HasNextPage()
}

// nextBatch answers an intersection trigger with the next page this session
// has not seen, or 204 when the list has nothing more. The page number comes
// from the session, never from how far the shared cache has grown.
func nextBatch[T any](api *API, w http.ResponseWriter, r *http.Request, list *scroll.List[T], fragment string) {
	ctx := r.Context()
	tc := tracing.FromContext(ctx)

	page, ok, err := list.LoadNext(ctx)
	if err != nil {
		writeErrorResponse(w, err, backendStatus(err), err.Error())
		return
	}
	if !ok || len(page.Documents) == 0 {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	w.Header().Set("X-Has-Next", boolString(!page.IsEnd))
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := api.Deps.Views.RenderFragment(w, fragment, page.Documents); err != nil {
		logger.FromContext(ctx).Error("unable to render list fragment", zap.Error(err), zap.String("request_id", tc.RequestID))
		http.Error(w, "unable to render list", http.StatusInternalServerError)
	}
}

type scrollPositionRequest struct {
	Position int `json:"position" validate:"min=0"`
}

func (api *API) SaveScrollPositionHandler(_ http.ResponseWriter, r *http.Request) *ServerResponse {
	tc := tracing.FromContext(r.Context())

	var req scrollPositionRequest
	if err := util.DecodeJSONBody(&tc, r.Body, &req); err != nil {
		return respondWithError(err, "unable to decode request", values.BadRequestBody, &tc)
	}
	if err := util.ValidateStruct(req); err != nil {
		return respondWithError(err, err.Error(), values.Unprocessable, &tc)
	}

	sess, ok := session.FromContext(r.Context())
	if !ok {
		return respondWithError(nil, "no session", values.NotAllowed, &tc)
	}
	sess.ScrollPosition = req.Position
	return &ServerResponse{
		Message:    "scroll position saved",
		Status:     values.Success,
		StatusCode: util.StatusCode(values.Success),
		Data:       sess,
	}
}

func (api *API) basePage(ctx context.Context, title string) view.Page {
	p := view.Page{Title: title}
	if sess, ok := session.FromContext(ctx); ok {
		p.Authenticated = sess.Authenticated
	}
	return p
}

// render embeds snap in base and writes the page. data must be a pointer
// to the page model that base belongs to.
func (api *API) render(w http.ResponseWriter, r *http.Request, status int, name string, base *view.Page, data interface{}, snap query.DehydratedState) {
	log := logger.FromContext(r.Context())

	if err := base.SetSnapshot(snap); err != nil {
		log.Error("unable to embed dehydrated state", zap.Error(err))
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := api.Deps.Views.Render(w, name, data); err != nil {
		log.Error("unable to render page", zap.String("page", name), zap.Error(err))
	}
}

func (api *API) renderError(w http.ResponseWriter, r *http.Request, status int, message string) {
	page := view.ErrorPage{Page: api.basePage(r.Context(), "Error"), Status: status, Message: message}
	api.render(w, r, status, view.PageError, &page.Page, &page, query.DehydratedState{})
}

// section returns the data of key in snap or, for a failed query, its error.
// Data kept from an earlier success is still shown after a failed refetch.
func section[T any](snap query.DehydratedState, key query.Key) (T, string) {
	var zero T
	st, ok := snap.Find(key)
	if !ok {
		return zero, ""
	}
	if v, ok := st.Data.(T); ok {
		return v, ""
	}
	return zero, st.Error
}

func pageCounter(sess *session.State) scroll.PageCounter {
	if sess == nil {
		return scroll.NewCounter()
	}
	return sess
}

func boolString(b bool) string {
	if b {
		return "true"
	}
	return "false"
}
