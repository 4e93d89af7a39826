// Package hubspottest runs an in-memory HubSpot CRM behind httptest so
// higher layers can be tested against the real client.
package hubspottest

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"strings"
	"sync"
	"testing"

	"salesdesk-service/internal/hubspot"
)

// Fake is a minimal HubSpot: objects, search, v4 associations, files,
// token introspection, owners and the OAuth token endpoint.
type Fake struct {
	Server *httptest.Server

	// PageSize caps search pages below the requested limit so paging can
	// be exercised with a handful of records.
	PageSize int

	mu      sync.Mutex
	objects map[string]map[string]map[string]string
	order   map[string][]string
	assocs  map[string]map[string][]string
	calls   map[string]int
	fail    map[string]int
	files   map[string]string
	owners  []hubspot.Owner
	nextID  int

	// TokenUser is returned by the access-token introspection endpoint.
	TokenUser string
	// RefreshCount counts grant_type=refresh_token calls.
	RefreshCount int
}

// New starts a fake and closes it when the test ends.
func New(t testing.TB) *Fake {
	t.Helper()
	f := &Fake{
		objects:   map[string]map[string]map[string]string{},
		order:     map[string][]string{},
		assocs:    map[string]map[string][]string{},
		calls:     map[string]int{},
		fail:      map[string]int{},
		files:     map[string]string{},
		nextID:    1000,
		TokenUser: "rep@example.com",
	}
	f.Server = httptest.NewServer(http.HandlerFunc(f.serve))
	t.Cleanup(f.Server.Close)
	return f
}

func (f *Fake) URL() string { return f.Server.URL }

// Client returns a hubspot client pointed at the fake.
func (f *Fake) Client() *hubspot.Client {
	return hubspot.New(f.Server.URL, "test-token", f.Server.Client())
}

// Put stores or replaces a record.
func (f *Fake) Put(objectType, id string, props map[string]string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.put(objectType, id, props)
}

func (f *Fake) put(objectType, id string, props map[string]string) {
	if f.objects[objectType] == nil {
		f.objects[objectType] = map[string]map[string]string{}
	}
	if _, exists := f.objects[objectType][id]; !exists {
		f.order[objectType] = append(f.order[objectType], id)
	}
	cp := map[string]string{"hs_object_id": id}
	for k, v := range props {
		cp[k] = v
	}
	f.objects[objectType][id] = cp
}

// Object returns a copy of a stored record's properties, or nil.
func (f *Fake) Object(objectType, id string) map[string]string {
	f.mu.Lock()
	defer f.mu.Unlock()
	src, ok := f.objects[objectType][id]
	if !ok {
		return nil
	}
	cp := make(map[string]string, len(src))
	for k, v := range src {
		cp[k] = v
	}
	return cp
}

// IDs lists record ids of a type in insertion order.
func (f *Fake) IDs(objectType string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.order[objectType]...)
}

// Associate links two records in both directions.
func (f *Fake) Associate(fromType, fromID, toType, toID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.associate(fromType, fromID, toType, toID)
}

func (f *Fake) associate(fromType, fromID, toType, toID string) {
	add := func(a, aID, b, bID string) {
		key := a + "/" + b
		if f.assocs[key] == nil {
			f.assocs[key] = map[string][]string{}
		}
		for _, existing := range f.assocs[key][aID] {
			if existing == bID {
				return
			}
		}
		f.assocs[key][aID] = append(f.assocs[key][aID], bID)
	}
	add(fromType, fromID, toType, toID)
	add(toType, toID, fromType, fromID)
}

// Associations lists ids linked from one record.
func (f *Fake) Associations(fromType, fromID, toType string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.assocs[fromType+"/"+toType][fromID]...)
}

// AddOwner registers a CRM owner for OwnerByEmail lookups.
func (f *Fake) AddOwner(o hubspot.Owner) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.owners = append(f.owners, o)
}

// FileName returns the uploaded name of a file id.
func (f *Fake) FileName(id string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.files[id]
}

// Fail makes every request whose "METHOD /path" starts with prefix answer status.
func (f *Fake) Fail(prefix string, status int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fail[prefix] = status
}

// Calls counts requests by "METHOD /path" (query string excluded).
func (f *Fake) Calls(key string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[key]
}

// CallsWithPrefix sums Calls over all keys starting with prefix.
func (f *Fake) CallsWithPrefix(prefix string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for k, v := range f.calls {
		if strings.HasPrefix(k, prefix) {
			n += v
		}
	}
	return n
}

func (f *Fake) serve(w http.ResponseWriter, r *http.Request) {
	key := r.Method + " " + r.URL.Path

	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[key]++
	for prefix, status := range f.fail {
		if strings.HasPrefix(key, prefix) {
			writeJSON(w, status, map[string]any{"status": "error", "message": "injected failure", "category": "TEST"})
			return
		}
	}

	parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
	switch {
	case r.Method == http.MethodPost && r.URL.Path == "/oauth/v1/token":
		f.handleToken(w, r)
	case r.Method == http.MethodGet && len(parts) == 4 && parts[0] == "oauth" && parts[2] == "access-tokens":
		writeJSON(w, http.StatusOK, hubspot.TokenInfo{User: f.TokenUser, HubID: 4242, UserID: 7, HubDomain: "example.hubspot.com"})
	case r.Method == http.MethodGet && len(parts) >= 3 && parts[0] == "crm" && parts[2] == "owners":
		f.handleOwners(w, r)
	case r.Method == http.MethodPost && r.URL.Path == "/files/v3/files":
		f.handleUpload(w, r)
	case len(parts) >= 4 && parts[0] == "crm" && parts[1] == "v4" && parts[2] == "associations":
		f.handleAssocBatch(w, r, parts)
	case r.Method == http.MethodPut && len(parts) == 9 && parts[1] == "v4" && parts[2] == "objects" && parts[6] == "default":
		f.associate(parts[3], parts[4], parts[7], parts[8])
		writeJSON(w, http.StatusOK, map[string]any{"status": "COMPLETE"})
	case len(parts) >= 4 && parts[0] == "crm" && parts[1] == "v3" && parts[2] == "objects":
		f.handleObjects(w, r, parts[3:])
	default:
		writeJSON(w, http.StatusNotFound, map[string]any{"message": "no route " + key})
	}
}

func (f *Fake) handleObjects(w http.ResponseWriter, r *http.Request, rest []string) {
	objectType := rest[0]
	switch {
	case len(rest) == 2 && rest[1] == "search" && r.Method == http.MethodPost:
		var req hubspot.SearchRequest
		if !decode(w, r, &req) {
			return
		}
		writeJSON(w, http.StatusOK, f.search(objectType, req))
	case len(rest) == 3 && rest[1] == "batch" && rest[2] == "read" && r.Method == http.MethodPost:
		var req struct {
			Properties []string `json:"properties"`
			Inputs     []struct {
				ID string `json:"id"`
			} `json:"inputs"`
		}
		if !decode(w, r, &req) {
			return
		}
		results := []hubspot.Object{}
		for _, in := range req.Inputs {
			if props, ok := f.objects[objectType][in.ID]; ok {
				results = append(results, hubspot.Object{ID: in.ID, Properties: pick(props, req.Properties)})
			}
		}
		writeJSON(w, http.StatusOK, map[string]any{"status": "COMPLETE", "results": results})
	case len(rest) == 1 && r.Method == http.MethodPost:
		var req struct {
			Properties   map[string]string `json:"properties"`
			Associations []struct {
				To struct {
					ID string `json:"id"`
				} `json:"to"`
			} `json:"associations"`
		}
		if !decode(w, r, &req) {
			return
		}
		f.nextID++
		id := strconv.Itoa(f.nextID)
		f.put(objectType, id, req.Properties)
		for _, a := range req.Associations {
			f.associate(objectType, id, f.typeOf(a.To.ID), a.To.ID)
		}
		writeJSON(w, http.StatusCreated, hubspot.Object{ID: id, Properties: f.objects[objectType][id]})
	case len(rest) == 2 && r.Method == http.MethodPatch:
		props, ok := f.objects[objectType][rest[1]]
		if !ok {
			writeJSON(w, http.StatusNotFound, map[string]any{"message": "Object not found"})
			return
		}
		var req struct {
			Properties map[string]string `json:"properties"`
		}
		if !decode(w, r, &req) {
			return
		}
		for k, v := range req.Properties {
			props[k] = v
		}
		writeJSON(w, http.StatusOK, hubspot.Object{ID: rest[1], Properties: props})
	case len(rest) == 2 && r.Method == http.MethodGet:
		props, ok := f.objects[objectType][rest[1]]
		if !ok {
			writeJSON(w, http.StatusNotFound, map[string]any{"message": "Object not found"})
			return
		}
		var want []string
		if p := r.URL.Query().Get("properties"); p != "" {
			want = strings.Split(p, ",")
		}
		out := map[string]any{"id": rest[1], "properties": pick(props, want)}
		if a := r.URL.Query().Get("associations"); a != "" {
			assocs := map[string]any{}
			for _, toType := range strings.Split(a, ",") {
				var results []map[string]string
				for _, id := range f.assocs[objectType+"/"+toType][rest[1]] {
					results = append(results, map[string]string{"id": id, "type": objectType + "_to_" + toType})
				}
				if len(results) > 0 {
					assocs[toType] = map[string]any{"results": results}
				}
			}
			out["associations"] = assocs
		}
		writeJSON(w, http.StatusOK, out)
	default:
		writeJSON(w, http.StatusNotFound, map[string]any{"message": "no object route"})
	}
}

// typeOf guesses the type of an association target from existing records.
func (f *Fake) typeOf(id string) string {
	for t, recs := range f.objects {
		if _, ok := recs[id]; ok {
			return t
		}
	}
	return "unknown"
}

func (f *Fake) search(objectType string, req hubspot.SearchRequest) map[string]any {
	var matched []string
	for _, id := range f.order[objectType] {
		props := f.objects[objectType][id]
		if matches(props, req) {
			matched = append(matched, id)
		}
	}
	if len(req.Sorts) > 0 {
		s := req.Sorts[0]
		sort.SliceStable(matched, func(i, j int) bool {
			a, b := f.objects[objectType][matched[i]][s.PropertyName], f.objects[objectType][matched[j]][s.PropertyName]
			less := compare(a, b) < 0
			if strings.EqualFold(s.Direction, "DESCENDING") {
				return compare(a, b) > 0
			}
			return less
		})
	}

	limit := req.Limit
	if limit <= 0 || limit > hubspot.SearchPageSize {
		limit = hubspot.SearchPageSize
	}
	if f.PageSize > 0 && f.PageSize < limit {
		limit = f.PageSize
	}
	offset, _ := strconv.Atoi(req.After)
	end := offset + limit
	if end > len(matched) {
		end = len(matched)
	}
	results := []hubspot.Object{}
	if offset < len(matched) {
		for _, id := range matched[offset:end] {
			results = append(results, hubspot.Object{ID: id, Properties: pick(f.objects[objectType][id], req.Properties)})
		}
	}
	resp := map[string]any{"total": len(matched), "results": results}
	if end < len(matched) {
		resp["paging"] = map[string]any{"next": map[string]any{"after": strconv.Itoa(end)}}
	}
	return resp
}

func matches(props map[string]string, req hubspot.SearchRequest) bool {
	if q := strings.ToLower(strings.TrimSpace(req.Query)); q != "" {
		found := false
		for _, v := range props {
			if strings.Contains(strings.ToLower(v), q) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if len(req.FilterGroups) == 0 {
		return true
	}
	for _, g := range req.FilterGroups {
		ok := true
		for _, flt := range g.Filters {
			if !matchFilter(props[flt.PropertyName], flt) {
				ok = false
				break
			}
		}
		if ok {
			return true
		}
	}
	return false
}

func matchFilter(v string, flt hubspot.Filter) bool {
	switch flt.Operator {
	case hubspot.OpEQ:
		return strings.EqualFold(v, flt.Value)
	case hubspot.OpNEQ:
		return !strings.EqualFold(v, flt.Value)
	case hubspot.OpGTE:
		return v != "" && compare(v, flt.Value) >= 0
	case hubspot.OpLTE:
		return v != "" && compare(v, flt.Value) <= 0
	case hubspot.OpIn:
		for _, x := range flt.Values {
			if strings.EqualFold(v, x) {
				return true
			}
		}
		return false
	case hubspot.OpContainsToken:
		token := strings.ToLower(strings.Trim(flt.Value, "*"))
		return strings.Contains(strings.ToLower(v), token)
	}
	return false
}

// compare orders numerically when both sides are integers.
func compare(a, b string) int {
	ai, errA := strconv.ParseInt(a, 10, 64)
	bi, errB := strconv.ParseInt(b, 10, 64)
	if errA == nil && errB == nil {
		switch {
		case ai < bi:
			return -1
		case ai > bi:
			return 1
		}
		return 0
	}
	return strings.Compare(a, b)
}

func pick(props map[string]string, want []string) map[string]string {
	out := map[string]string{"hs_object_id": props["hs_object_id"]}
	if len(want) == 0 {
		for k, v := range props {
			out[k] = v
		}
		return out
	}
	for _, k := range want {
		if v, ok := props[k]; ok {
			out[k] = v
		}
	}
	return out
}

func (f *Fake) handleAssocBatch(w http.ResponseWriter, r *http.Request, parts []string) {
	if len(parts) != 7 || parts[5] != "batch" || parts[6] != "read" || r.Method != http.MethodPost {
		writeJSON(w, http.StatusNotFound, map[string]any{"message": "no association route"})
		return
	}
	fromType, toType := parts[3], parts[4]
	var req struct {
		Inputs []struct {
			ID string `json:"id"`
		} `json:"inputs"`
	}
	if !decode(w, r, &req) {
		return
	}
	type to struct {
		ToObjectID int64 `json:"toObjectId"`
	}
	var results []map[string]any
	missing := 0
	for _, in := range req.Inputs {
		ids := f.assocs[fromType+"/"+toType][in.ID]
		if len(ids) == 0 {
			missing++
			continue
		}
		var tos []to
		for _, id := range ids {
			n, _ := strconv.ParseInt(id, 10, 64)
			tos = append(tos, to{ToObjectID: n})
		}
		results = append(results, map[string]any{"from": map[string]string{"id": in.ID}, "to": tos})
	}
	status := http.StatusOK
	if missing > 0 {
		status = http.StatusMultiStatus
	}
	writeJSON(w, status, map[string]any{"status": "COMPLETE", "results": results, "numErrors": missing})
}

func (f *Fake) handleUpload(w http.ResponseWriter, r *http.Request) {
	file, hdr, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"message": err.Error()})
		return
	}
	defer file.Close()
	_, _ = io.Copy(io.Discard, file)
	f.nextID++
	id := strconv.Itoa(f.nextID)
	f.files[id] = hdr.Filename
	writeJSON(w, http.StatusCreated, hubspot.File{ID: id, Name: hdr.Filename, URL: fmt.Sprintf("%s/files/%s", f.Server.URL, id)})
}

func (f *Fake) handleOwners(w http.ResponseWriter, r *http.Request) {
	email := r.URL.Query().Get("email")
	results := []hubspot.Owner{}
	for _, o := range f.owners {
		if email == "" || strings.EqualFold(o.Email, email) {
			results = append(results, o)
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"results": results})
}

func (f *Fake) handleToken(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"message": err.Error()})
		return
	}
	switch r.PostForm.Get("grant_type") {
	case "refresh_token":
		f.RefreshCount++
		writeJSON(w, http.StatusOK, map[string]any{
			"access_token":  fmt.Sprintf("refreshed-%d", f.RefreshCount),
			"refresh_token": r.PostForm.Get("refresh_token"),
			"token_type":    "bearer",
			"expires_in":    1800,
		})
	case "authorization_code":
		writeJSON(w, http.StatusOK, map[string]any{
			"access_token":  "access-" + r.PostForm.Get("code"),
			"refresh_token": "refresh-" + r.PostForm.Get("code"),
			"token_type":    "bearer",
			"expires_in":    1800,
		})
	default:
		writeJSON(w, http.StatusBadRequest, map[string]any{"message": "unsupported grant_type"})
	}
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"message": "invalid json: " + err.Error()})
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
