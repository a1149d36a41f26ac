package expense

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/fkhayef/roommate-ledger/pkg/middleware"
	"github.com/fkhayef/roommate-ledger/pkg/response"
)

func serve(t *testing.T, h http.Handler, method, path, user, body string) (*httptest.ResponseRecorder, response.APIResponse) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Test-User-ID", user)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var resp response.APIResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
	return rec, resp
}

func TestHandler_ExpenseLifecycle(t *testing.T) {
	svc, _, _, _ := newFixture(t)
	h := middleware.TestUserMiddleware(NewHandler(svc).Routes())

	body := `{"description":"Dinner","amount":"60.00","date":"2024-03-01","split_type":"EQUAL",
		"paid_by":[{"person_id":1}],"split_with":[1,2,3]}`
	rec, resp := serve(t, h, http.MethodPost, "/", "1", body)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body %s", rec.Code, rec.Body.String())
	}
	data := resp.Data.(map[string]any)
	if data["your_share"] != "20.00" || data["your_net"] != "40.00" {
		t.Errorf("creator view = %v", data)
	}

	rec, resp = serve(t, h, http.MethodGet, "/1", "2", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("get status = %d", rec.Code)
	}
	if got := resp.Data.(map[string]any)["your_net"]; got != "-20.00" {
		t.Errorf("alice your_net = %v, want -20.00", got)
	}

	if rec, _ := serve(t, h, http.MethodGet, "/1", "4", ""); rec.Code != http.StatusForbidden {
		t.Errorf("outsider get status = %d, want 403", rec.Code)
	}
	if rec, _ := serve(t, h, http.MethodGet, "/42", "1", ""); rec.Code != http.StatusNotFound {
		t.Errorf("missing get status = %d, want 404", rec.Code)
	}

	rec, resp = serve(t, h, http.MethodGet, "/?page=1&per_page=10", "3", "")
	if rec.Code != http.StatusOK || resp.Meta == nil || resp.Meta.Total != 1 {
		t.Errorf("list status = %d meta = %+v", rec.Code, resp.Meta)
	}

	if rec, _ := serve(t, h, http.MethodDelete, "/1", "1", ""); rec.Code != http.StatusOK {
		t.Errorf("delete status = %d", rec.Code)
	}
	if rec, _ := serve(t, h, http.MethodGet, "/1", "1", ""); rec.Code != http.StatusNotFound {
		t.Errorf("get after delete status = %d, want 404", rec.Code)
	}
}

func TestHandler_ValidationDetails(t *testing.T) {
	svc, _, _, _ := newFixture(t)
	h := middleware.TestUserMiddleware(NewHandler(svc).Routes())

	cases := []struct {
		name  string
		body  string
		kinds []string
	}{
		{
			name:  "custom off by one cent",
			body:  `{"description":"Rent","amount":"100.00","date":"2024-03-01","split_type":"CUSTOM","paid_by":[{"person_id":1}],"split_with":[1,2],"split_details":{"1":"50.00","2":"49.99"}}`,
			kinds: []string{"share_mismatch"},
		},
		{
			name:  "many problems at once",
			body:  `{"description":"","amount":"10.00","date":"2024-03-01","split_type":"EQUAL","paid_by":[{"person_id":1,"amount":"5.00"}],"split_with":[99]}`,
			kinds: []string{"missing_description", "paid_mismatch", "unknown_person"},
		},
		{
			name:  "bad amount",
			body:  `{"description":"Rent","amount":"ten","date":"2024-03-01","split_type":"EQUAL","paid_by":[{"person_id":1}],"split_with":[1]}`,
			kinds: []string{"invalid_amount"},
		},
		{
			name:  "bad date",
			body:  `{"description":"Rent","amount":"10.00","date":"March 1","split_type":"EQUAL","paid_by":[{"person_id":1}],"split_with":[1]}`,
			kinds: []string{"invalid_date"},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec, resp := serve(t, h, http.MethodPost, "/", "1", tc.body)
			if rec.Code != http.StatusUnprocessableEntity {
				t.Fatalf("status = %d, want 422; body %s", rec.Code, rec.Body.String())
			}
			got := make(map[string]bool)
			for _, d := range resp.Error.Details {
				got[d.Kind] = true
			}
			for _, k := range tc.kinds {
				if !got[k] {
					t.Errorf("details %+v missing %q", resp.Error.Details, k)
				}
			}
		})
	}

	if rec, _ := serve(t, h, http.MethodPost, "/", "1", `{not json`); rec.Code != http.StatusBadRequest {
		t.Errorf("malformed body status = %d, want 400", rec.Code)
	}
}
