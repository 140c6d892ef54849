// Copyright 2025 The SupplyMRI Authors
// SPDX-License-Identifier: Apache-2.0

package sites

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/supplymri/supplymri/mapping"
	"github.com/supplymri/supplymri/spatial"
)

func setupServerTest(t *testing.T, seed bool) (*gin.Engine, Repository) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	_, repo := setupTestDB(t)
	if seed {
		require.NoError(t, repo.SaveSites(testSites()))
	}

	return NewServer(repo, mapping.MapOptions{Title: "Review"}).Router(), repo
}

func get(t *testing.T, router *gin.Engine, url string) *httptest.ResponseRecorder {
	t.Helper()

	req, err := http.NewRequest(http.MethodGet, url, nil)
	require.NoError(t, err)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	return w
}

func TestListSitesAPI(t *testing.T) {
	router, _ := setupServerTest(t, true)

	w := get(t, router, "/api/sites?per_page=1&page=2")
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Sites   []*Site `json:"sites"`
		Total   int     `json:"total"`
		Page    int     `json:"page"`
		PerPage int     `json:"per_page"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))

	assert.Equal(t, 2, resp.Total)
	assert.Equal(t, 2, resp.Page)
	assert.Equal(t, 1, resp.PerPage)
	require.Len(t, resp.Sites, 1)
	assert.Equal(t, "Silver Peak Project", resp.Sites[0].Project)
}

func TestListSitesAPI_Empty(t *testing.T) {
	router, _ := setupServerTest(t, false)

	w := get(t, router, "/api/sites")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"sites":[]`)
}

func TestSitesGeoJSONAPI(t *testing.T) {
	router, _ := setupServerTest(t, true)

	w := get(t, router, "/api/sites.geojson?method=direct_text")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "application/geo+json")

	var fc mapping.FeatureCollection
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &fc))
	require.Len(t, fc.Features, 1)
	assert.Equal(t, [2]float64{-114.3, 51.2}, fc.Features[0].Geometry.Coordinates)
	assert.Equal(t, "Red Rock Project", fc.Features[0].Properties["project"])
}

func TestGetSiteAPI(t *testing.T) {
	router, repo := setupServerTest(t, true)

	all, err := repo.ListSites(Filter{})
	require.NoError(t, err)

	w := get(t, router, fmt.Sprintf("/api/sites/%d", all[1].ID))
	require.Equal(t, http.StatusOK, w.Code)

	var site Site
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &site))
	assert.Equal(t, "mines.csv", site.Source)

	assert.Equal(t, http.StatusNotFound, get(t, router, "/api/sites/999").Code)
	assert.Equal(t, http.StatusBadRequest, get(t, router, "/api/sites/abc").Code)
}

func TestSitesInCellAPI(t *testing.T) {
	router, _ := setupServerTest(t, true)

	cells, err := spatial.ComputeH3(spatial.Point{Lat: 38.1, Lng: -117.5})
	require.NoError(t, err)

	w := get(t, router, fmt.Sprintf("/api/cells/4/%d", cells.Res(4)))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Silver Peak Project")

	assert.Equal(t, http.StatusBadRequest, get(t, router, "/api/cells/12/1").Code)
	assert.Equal(t, http.StatusBadRequest, get(t, router, "/api/cells/x/1").Code)
}

func TestProgressAPI(t *testing.T) {
	router, _ := setupServerTest(t, true)

	w := get(t, router, "/api/progress")
	require.Equal(t, http.StatusOK, w.Code)

	var resp ProgressResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, ProgressResponse{Total: 2, Direct: 1, Gazetteer: 1}, resp)
}

func TestMapView(t *testing.T) {
	router, _ := setupServerTest(t, true)

	w := get(t, router, "/")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, w.Body.String(), "<title>Review</title>")
	assert.Contains(t, w.Body.String(), "Red Rock Project")

	empty, _ := setupServerTest(t, false)
	w = get(t, empty, "/")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "No sites stored yet")
}
