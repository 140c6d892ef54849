// Copyright 2025 The SupplyMRI Authors
// SPDX-License-Identifier: Apache-2.0

package edgar

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/supplymri/supplymri/utils/httputils"
)

const sampleHit = `{
  "_id": "0001234567-24-000010:ex96-1.htm",
  "_score": 12.5,
  "_source": {
    "ciks": ["0001234567"],
    "display_names": ["Silver Peak Mining Corp  (SPMC)  (CIK 0001234567)"],
    "form": "10-K",
    "root_forms": ["10-K"],
    "file_type": "EX-96.1",
    "file_description": "Technical Report Summary",
    "file_date": "2024-03-01",
    "period_ending": "2023-12-31",
    "file_num": ["001-12345"],
    "film_num": "24123456",
    "items": null,
    "biz_states": ["NV"],
    "biz_locations": ["Reno, NV"],
    "inc_states": ["NV"]
  }
}`

func TestHitToDocument(t *testing.T) {
	var hit searchHit
	require.NoError(t, json.Unmarshal([]byte(sampleHit), &hit))

	score := 12.5
	want := Document{
		Adsh:            "0001234567-24-000010",
		FileName:        "ex96-1.htm",
		CIK:             "0001234567",
		CIKs:            stringList{"0001234567"},
		CompanyNames:    stringList{"Silver Peak Mining Corp  (SPMC)"},
		Form:            "10-K",
		RootForms:       stringList{"10-K"},
		FileType:        "EX-96.1",
		FileDescription: "Technical Report Summary",
		FileDate:        "2024-03-01",
		PeriodEnding:    "2023-12-31",
		FileNumbers:     stringList{"001-12345"},
		FilmNumbers:     stringList{"24123456"},
		Items:           stringList{},
		BizStates:       stringList{"NV"},
		BizLocations:    stringList{"Reno, NV"},
		IncStates:       stringList{"NV"},
		URL:             "https://www.sec.gov/Archives/edgar/data/1234567/000123456724000010/ex96-1.htm",
		Score:           &score,
	}

	got := hit.toDocument(DefaultArchivesURL)
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("toDocument() mismatch (-want +got):\n%s", diff)
	}
}

func TestHitToDocumentWithoutColon(t *testing.T) {
	hit := searchHit{ID: "report.htm"}
	hit.Source.Adsh = "0000000001-24-000001"

	got := hit.toDocument("http://archive/")
	assert.Equal(t, "0000000001-24-000001", got.Adsh)
	assert.Equal(t, "report.htm", got.FileName)
	assert.Empty(t, got.CIK)
	assert.Equal(t, "http://archive//000000000124000001/report.htm", got.URL)
}

func TestNormalizeForms(t *testing.T) {
	assert.Equal(t, "10-K,8-K,EX-96", normalizeForms([]string{"ex-96", "10-k", "8-K", "10-K", ""}))
	assert.Empty(t, normalizeForms(nil))
}

// fakeSearch serves total hits in pages of 100 and records the queries.
type fakeSearch struct {
	mu      sync.Mutex
	total   int
	queries []url.Values
}

func (f *fakeSearch) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	f.queries = append(f.queries, r.URL.Query())
	f.mu.Unlock()

	from, _ := strconv.Atoi(r.URL.Query().Get("from"))

	var hits []map[string]any

	for i := from; i < min(from+searchPageSize, f.total); i++ {
		desc := "Exhibit"
		if i%2 == 0 {
			desc = "Technical Report Summary"
		}

		hits = append(hits, map[string]any{
			"_id": fmt.Sprintf("0000000042-24-%06d:doc%d.htm", i, i),
			"_source": map[string]any{
				"ciks":             []string{"0000000042"},
				"display_names":    []string{"Acme Mining (CIK 0000000042)"},
				"file_description": desc,
			},
		})
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"hits": map[string]any{"hits": hits}})
}

func TestSearchPagination(t *testing.T) {
	fake := &fakeSearch{total: 250}
	server := httptest.NewServer(fake)
	defer server.Close()

	client := NewClient(&ClientOptions{SearchURL: server.URL})

	docs, err := client.Search(context.Background(), SearchQuery{
		Query: "S-K 1300",
		Limit: 1000,
		Forms: []string{"10-k", "ex-96"},
	})
	require.NoError(t, err)

	assert.Len(t, docs, 250)
	require.Len(t, fake.queries, 3, "stops after the short page")
	assert.Equal(t, "0", fake.queries[0].Get("from"))
	assert.Equal(t, "100", fake.queries[1].Get("from"))
	assert.Equal(t, "200", fake.queries[2].Get("from"))
	assert.Equal(t, "10-K,EX-96", fake.queries[0].Get("forms"))
	assert.Equal(t, "all", fake.queries[0].Get("dateRange"))
	assert.Equal(t, "custom", fake.queries[0].Get("category"))
	assert.Equal(t, "S-K 1300", fake.queries[0].Get("q"))

	assert.Equal(t, 3, client.Metrics.SearchPages)
	assert.Equal(t, 250, client.Metrics.SearchHits)
	assert.Equal(t, []string{"Acme Mining"}, []string(docs[0].CompanyNames))
	assert.Equal(t, DefaultArchivesURL+"/42/000000004224000000/doc0.htm", docs[0].URL)
}

func TestSearchLimitAndFilter(t *testing.T) {
	fake := &fakeSearch{total: 500}
	server := httptest.NewServer(fake)
	defer server.Close()

	client := NewClient(&ClientOptions{SearchURL: server.URL})

	docs, err := client.Search(context.Background(), SearchQuery{
		Query:             "lithium",
		Limit:             60,
		Start:             10,
		DateRange:         "1y",
		DescriptionFilter: "TECHNICAL",
	})
	require.NoError(t, err)

	require.Len(t, docs, 60)

	for _, d := range docs {
		assert.Equal(t, "Technical Report Summary", d.FileDescription)
	}

	require.Len(t, fake.queries, 2)
	assert.Equal(t, "10", fake.queries[0].Get("from"))
	assert.Equal(t, "110", fake.queries[1].Get("from"))
	assert.Equal(t, "1y", fake.queries[0].Get("dateRange"))
	assert.False(t, fake.queries[0].Has("forms"))
}

func TestSearchEmpty(t *testing.T) {
	fake := &fakeSearch{total: 0}
	server := httptest.NewServer(fake)
	defer server.Close()

	docs, err := NewClient(&ClientOptions{SearchURL: server.URL}).Search(context.Background(), SearchQuery{Query: "x"})
	require.NoError(t, err)
	assert.Empty(t, docs)
	assert.Len(t, fake.queries, 1)
}

func TestSearchErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("q") == "html" {
			w.Header().Set("Content-Type", "text/html")
			_, _ = w.Write([]byte("<html>maintenance</html>"))

			return
		}

		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	client := NewClient(&ClientOptions{SearchURL: server.URL})

	_, err := client.Search(context.Background(), SearchQuery{Query: "html"})
	require.ErrorIs(t, err, httputils.ErrUnexpectedContentType)

	_, err = client.Search(context.Background(), SearchQuery{Query: "denied"})

	var statusErr *httputils.StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusForbidden, statusErr.StatusCode)
	assert.Equal(t, httputils.ErrorTypeForbidden, statusErr.Type)
}

func TestStringList(t *testing.T) {
	var v struct {
		A stringList `json:"a"`
		B stringList `json:"b"`
		C stringList `json:"c"`
		D stringList `json:"d"`
	}

	require.NoError(t, json.Unmarshal([]byte(`{"a": "x", "b": [320193, "y", null], "c": null}`), &v))
	assert.Equal(t, stringList{"x"}, v.A)
	assert.Equal(t, stringList{"320193", "y"}, v.B)
	assert.Equal(t, stringList{}, v.C)
	assert.Nil(t, v.D)

	out, err := json.Marshal(v)
	require.NoError(t, err)
	assert.JSONEq(t, `{"a": ["x"], "b": ["320193", "y"], "c": [], "d": []}`, string(out))
}
