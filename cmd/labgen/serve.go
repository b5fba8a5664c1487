package main

import (
	"bytes"
	"database/sql"
	"embed"
	"html/template"
	"net/http"
	"strconv"
	"sync"

	"github.com/gin-gonic/gin"
)

//go:embed web/templates/*.gohtml
var tmplFS embed.FS

var tmplCache sync.Map

// newRouter wires the read-only run browser. Plans are created by the CLI;
// the web side only lists archived runs and serves their exports.
func newRouter(db *sql.DB) *gin.Engine {
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())

	r.GET("/healthz", func(c *gin.Context) { c.String(200, "ok") })
	r.GET("/", func(c *gin.Context) { c.Redirect(302, "/runs") })

	r.GET("/runs", func(c *gin.Context) {
		runs, err := listRuns(db)
		if err != nil {
			c.String(500, err.Error())
			return
		}
		render(c, "runs", gin.H{"Runs": runs})
	})

	r.GET("/runs/:id", func(c *gin.Context) {
		runID, err := strconv.ParseInt(c.Param("id"), 10, 64)
		if err != nil {
			c.String(400, "invalid run id")
			return
		}
		run, ok, err := runByID(db, runID)
		if err != nil {
			c.String(500, err.Error())
			return
		}
		if !ok {
			c.String(404, "run not found")
			return
		}
		bundle, err := bundleFromRun(db, runID)
		if err != nil {
			c.String(500, err.Error())
			return
		}
		render(c, "run", gin.H{"Run": run, "Bundle": bundle})
	})

	r.GET("/runs/:id/plan.yaml", func(c *gin.Context) {
		serveRunPlan(c, db, "yaml")
	})
	r.GET("/runs/:id/plan.json", func(c *gin.Context) {
		serveRunPlan(c, db, "json")
	})
	r.GET("/runs/:id/plan.csv", func(c *gin.Context) {
		serveRunPlan(c, db, "csv")
	})
	r.GET("/runs/:id/plan.xlsx", func(c *gin.Context) {
		serveRunPlan(c, db, "xlsx")
	})

	return r
}

func serveRunPlan(c *gin.Context, db *sql.DB, format string) {
	runID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.String(400, "invalid run id")
		return
	}
	bundle, err := bundleFromRun(db, runID)
	if err != nil {
		c.String(500, err.Error())
		return
	}
	name := "labgen_run_" + itoa64(runID) + "." + format

	if format == "xlsx" {
		out, err := exportXLSX(bundle)
		if err != nil {
			c.String(500, err.Error())
			return
		}
		c.Header("Content-Disposition", "attachment; filename="+name)
		c.Data(200, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", out)
		return
	}

	var buf bytes.Buffer
	contentType := "text/plain; charset=utf-8"
	switch format {
	case "yaml":
		err = writePlanYAML(&buf, bundle)
		contentType = "application/yaml"
	case "json":
		err = writePlanJSON(&buf, bundle)
		contentType = "application/json"
	case "csv":
		err = writePlanCSV(&buf, bundle)
		contentType = "text/csv"
	}
	if err != nil {
		c.String(500, err.Error())
		return
	}
	c.Header("Content-Disposition", "attachment; filename="+name)
	c.Data(200, contentType, buf.Bytes())
}

func render(c *gin.Context, name string, data any) {
	tmpl, err := loadPageTemplate(name)
	if err != nil {
		c.String(500, err.Error())
		return
	}
	c.Status(http.StatusOK)
	c.Header("Content-Type", "text/html; charset=utf-8")
	if err := tmpl.ExecuteTemplate(c.Writer, "layout", data); err != nil {
		c.String(500, err.Error())
	}
}

func loadPageTemplate(name string) (*template.Template, error) {
	if cached, ok := tmplCache.Load(name); ok {
		return cached.(*template.Template), nil
	}
	files := []string{
		"web/templates/layout.gohtml",
		"web/templates/" + name + ".gohtml",
	}
	tmpl, err := template.New("").ParseFS(tmplFS, files...)
	if err != nil {
		return nil, err
	}
	tmplCache.Store(name, tmpl)
	return tmpl, nil
}
