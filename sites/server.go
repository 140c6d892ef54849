// Copyright 2025 The SupplyMRI Authors
// SPDX-License-Identifier: Apache-2.0

package sites

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/supplymri/supplymri/geoloc"
	"github.com/supplymri/supplymri/mapping"
)

// DefaultAddr is where Run listens when no address is given.
const DefaultAddr = "localhost:8080"

const defaultPerPage = 50

// Server exposes the stored sites as JSON, GeoJSON and a map page.
type Server struct {
	repo    Repository
	mapOpts mapping.MapOptions
}

// NewServer creates a review server over repo.
func NewServer(repo Repository, mapOpts mapping.MapOptions) *Server {
	return &Server{repo: repo, mapOpts: mapOpts}
}

// Router returns the engine with every route registered.
func (s *Server) Router() *gin.Engine {
	r := gin.Default()

	r.GET("/", s.mapView)
	r.GET("/api/sites", s.listSites)
	r.GET("/api/sites.geojson", s.sitesGeoJSON)
	r.GET("/api/sites/:id", s.getSite)
	r.GET("/api/cells/:res/:cell", s.sitesInCell)
	r.GET("/api/progress", s.getProgress)

	return r
}

// Run serves until the listener fails.
func (s *Server) Run(addr string) error {
	if addr == "" {
		addr = DefaultAddr
	}

	return s.Router().Run(addr)
}

func queryInt(ctx *gin.Context, name string, def int) int {
	v := def
	if p := ctx.Query(name); p != "" {
		if _, err := fmt.Sscanf(p, "%d", &v); err != nil || v < 1 {
			v = def
		}
	}

	return v
}

func (s *Server) mapView(ctx *gin.Context) {
	sites, err := s.repo.ListSites(Filter{})
	if err != nil {
		ctx.String(http.StatusInternalServerError, err.Error())

		return
	}

	if len(sites) == 0 {
		ctx.String(http.StatusOK, "No sites stored yet. Run `supplymri locate --db` first.")

		return
	}

	ctx.Header("Content-Type", "text/html; charset=utf-8")
	ctx.Status(http.StatusOK)

	if err := mapping.RenderHTMLMap(ctx.Writer, Records(sites), s.mapOpts); err != nil {
		_ = ctx.Error(err)
	}
}

func (s *Server) listSites(ctx *gin.Context) {
	page := queryInt(ctx, "page", 1)
	perPage := queryInt(ctx, "per_page", defaultPerPage)

	sites, err := s.repo.ListSites(Filter{
		Company: ctx.Query("company"),
		Method:  ctx.Query("method"),
		Limit:   perPage,
		Offset:  (page - 1) * perPage,
	})
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})

		return
	}

	total, err := s.repo.CountSites()
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})

		return
	}

	if sites == nil {
		sites = []*Site{}
	}

	ctx.JSON(http.StatusOK, gin.H{
		"sites":    sites,
		"total":    total,
		"page":     page,
		"per_page": perPage,
	})
}

func (s *Server) sitesGeoJSON(ctx *gin.Context) {
	sites, err := s.repo.ListSites(Filter{
		Company: ctx.Query("company"),
		Method:  ctx.Query("method"),
	})
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})

		return
	}

	fc, err := mapping.BuildFeatureCollection(Records(sites))
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})

		return
	}

	ctx.Header("Content-Type", "application/geo+json")
	ctx.JSON(http.StatusOK, fc)
}

func (s *Server) getSite(ctx *gin.Context) {
	id, err := strconv.ParseInt(ctx.Param("id"), 10, 64)
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})

		return
	}

	site, err := s.repo.GetSite(id)
	if errors.Is(err, ErrNotFound) {
		ctx.JSON(http.StatusNotFound, gin.H{"error": err.Error()})

		return
	} else if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})

		return
	}

	ctx.JSON(http.StatusOK, site)
}

func (s *Server) sitesInCell(ctx *gin.Context) {
	res, err := strconv.Atoi(ctx.Param("res"))
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid resolution"})

		return
	}

	cell, err := strconv.ParseInt(ctx.Param("cell"), 10, 64)
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid cell"})

		return
	}

	sites, err := s.repo.SitesInCell(res, cell)
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})

		return
	}

	if sites == nil {
		sites = []*Site{}
	}

	ctx.JSON(http.StatusOK, gin.H{"sites": sites, "res": res, "cell": cell})
}

// ProgressResponse summarizes how the stored sites were located.
type ProgressResponse struct {
	Total     int `json:"total"`
	Direct    int `json:"direct"`
	Gazetteer int `json:"gazetteer"`
}

func (s *Server) getProgress(ctx *gin.Context) {
	sites, err := s.repo.ListSites(Filter{})
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})

		return
	}

	var ret ProgressResponse

	for _, site := range sites {
		ret.Total++

		switch site.Method {
		case geoloc.MethodDirectText:
			ret.Direct++
		case geoloc.MethodGazetteer:
			ret.Gazetteer++
		}
	}

	ctx.JSON(http.StatusOK, ret)
}
